package storage

import (
	"context"
	"errors"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
)

var ErrDeviceNotFound = errors.New("device not found")

// DeviceStore persists finished device records. SaveDevice creates the
// device when rec.ID is empty and replaces it otherwise; the returned record
// carries the assigned id.
type DeviceStore interface {
	SaveDevice(ctx context.Context, rec types.DeviceRecord) (types.DeviceRecord, error)
	GetDevice(ctx context.Context, id string) (types.DeviceRecord, error)
	ListDevices(ctx context.Context) ([]types.DeviceRecord, error)
	DeleteDevice(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close()
}
