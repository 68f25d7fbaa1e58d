package interfaces

import (
	"context"
	"net/http"

	"github.com/KevinKickass/OpenPLCConsole/internal/config"
	"github.com/KevinKickass/OpenPLCConsole/internal/devices"
	"github.com/KevinKickass/OpenPLCConsole/internal/modbus"
	"github.com/KevinKickass/OpenPLCConsole/internal/storage"
	"github.com/KevinKickass/OpenPLCConsole/internal/telemetry"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State        string `json:"state"`
	DeviceTypes  int    `json:"device_types"`
	OpenSessions int    `json:"open_sessions"`
	StoreBackend string `json:"store_backend"`
	Timestamp    int64  `json:"timestamp"`
}

type LifecycleManager interface {
	Config() *config.Config
	Storage() storage.DeviceStore
	Catalog() *devices.Catalog
	Sessions() *devices.SessionManager
	Composer() *devices.Composer
	Ports() devices.PortLister
	Prober() *modbus.Prober
	Telemetry() telemetry.Collector
	// MetricsHandler is nil when metrics are disabled.
	MetricsHandler() http.Handler
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
