package system

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/api/rest"
	"github.com/KevinKickass/OpenPLCConsole/internal/api/websocket"
	"github.com/KevinKickass/OpenPLCConsole/internal/config"
	"github.com/KevinKickass/OpenPLCConsole/internal/devices"
	"github.com/KevinKickass/OpenPLCConsole/internal/interfaces"
	"github.com/KevinKickass/OpenPLCConsole/internal/modbus"
	"github.com/KevinKickass/OpenPLCConsole/internal/ports"
	"github.com/KevinKickass/OpenPLCConsole/internal/storage"
	"github.com/KevinKickass/OpenPLCConsole/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// OpenStore connects to PostgreSQL when a database host is configured and
// falls back to the in-memory store otherwise.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.DeviceStore, string, error) {
	if !cfg.Enabled() {
		logger.Warn("No database configured, devices are kept in memory only")
		return storage.NewMemoryStore(), StoreBackendMemory, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := storage.NewPostgresClient(connectCtx, cfg)
	if err != nil {
		return nil, "", err
	}

	logger.Info("Database connected successfully",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return db, StoreBackendPostgres, nil
}

type LifecycleManager struct {
	config       *config.Config
	store        storage.DeviceStore
	storeBackend string
	catalog      *devices.Catalog
	ports        *ports.Enumerator
	sessions     *devices.SessionManager
	composer     *devices.Composer
	prober       *modbus.Prober
	collector    telemetry.Collector
	metrics      http.Handler
	wsHub        *websocket.Hub
	logger       *zap.Logger

	restServer   *rest.Server
	grpcServer   *grpc.Server
	healthServer *health.Server

	stateMu      sync.RWMutex
	currentState SystemState

	shutdownOnce sync.Once
}

func NewLifecycleManager(
	store storage.DeviceStore,
	storeBackend string,
	cfg *config.Config,
	logger *zap.Logger,
) (*LifecycleManager, error) {
	catalog, err := devices.LoadCatalog(cfg.DeviceTypes.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load device types: %w", err)
	}

	if _, err := catalog.Lookup(cfg.DeviceTypes.DefaultType); err != nil {
		return nil, fmt.Errorf("default device type: %w", err)
	}

	enumerator := ports.NewEnumerator(cfg.Serial.Ports, cfg.Serial.Patterns, logger)

	collector := telemetry.Noop()
	var metrics http.Handler
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		promCollector, err := telemetry.NewPrometheusCollector(registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		collector = promCollector
		metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	sessions := devices.NewSessionManager(catalog, devices.SessionOptions{
		DefaultType:   cfg.DeviceTypes.DefaultType,
		IdleTimeout:   cfg.Sessions.IdleTimeout,
		SweepInterval: cfg.Sessions.SweepInterval,
		Telemetry:     collector,
	}, logger)

	lm := &LifecycleManager{
		config:       cfg,
		store:        store,
		storeBackend: storeBackend,
		catalog:      catalog,
		ports:        enumerator,
		sessions:     sessions,
		composer:     devices.NewComposer(catalog, enumerator, logger),
		prober:       modbus.NewProber(cfg.Modbus.Timeout, collector, logger),
		collector:    collector,
		metrics:      metrics,
		wsHub:        websocket.NewHub(logger),
		logger:       logger,
		currentState: StateInitializing,
	}
	lm.wsHub.SetStatusProvider(lm)

	return lm, nil
}

// Start starts the entire system
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting OpenPLC Console",
		zap.Int("device_types", lm.catalog.Len()),
		zap.String("store", lm.storeBackend))

	go lm.wsHub.Run()

	if err := lm.sessions.Start(); err != nil {
		lm.setError(fmt.Errorf("failed to start session manager: %w", err))
		return err
	}

	if lm.config.Server.GRPCPort > 0 {
		if err := lm.startGRPCServer(); err != nil {
			lm.setError(fmt.Errorf("failed to start gRPC: %w", err))
			return err
		}
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.setState(StateRunning)
	if lm.healthServer != nil {
		lm.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort))

	return nil
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)
		lm.wsHub.Stop()
		lm.store.Close()
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	// 1. Drop open edit sessions
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := lm.sessions.Stop(ctx); err != nil {
			errChan <- fmt.Errorf("session manager stop failed: %w", err)
		}
	}()

	// 2. REST API Server graceful shutdown
	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	// 3. gRPC Server graceful stop
	if lm.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.logger.Info("Stopping gRPC server")
			lm.healthServer.Shutdown()
			lm.grpcServer.GracefulStop()
		}()
	}

	// Wait for all shutdowns
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lm.logger.Info("Graceful shutdown completed")
		return nil
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		if lm.grpcServer != nil {
			lm.grpcServer.Stop()
		}
		return fmt.Errorf("shutdown timeout exceeded")
	case err := <-errChan:
		return err
	}
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	lm.grpcServer = grpc.NewServer()
	lm.healthServer = health.NewServer()
	lm.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	healthpb.RegisterHealthServer(lm.grpcServer, lm.healthServer)

	go func() {
		lm.logger.Info("gRPC server listening",
			zap.Int("port", lm.config.Server.GRPCPort),
			zap.String("services", "grpc.health.v1.Health"))
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub)
	return lm.restServer.Start()
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected system state change", zap.Error(err))
	}
	lm.currentState = state
	lm.stateMu.Unlock()

	lm.broadcastStatus()
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))
	lm.setState(StateError)
}

func (lm *LifecycleManager) broadcastStatus() {
	lm.wsHub.Broadcast(websocket.NewSystemStatusMessage(lm.GetCurrentStatus()))
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state := lm.currentState
	lm.stateMu.RUnlock()

	return interfaces.SystemStatus{
		State:        state.String(),
		DeviceTypes:  lm.catalog.Len(),
		OpenSessions: lm.sessions.Count(),
		StoreBackend: lm.storeBackend,
		Timestamp:    time.Now().Unix(),
	}
}

// StatusSnapshot feeds newly connected websocket clients
func (lm *LifecycleManager) StatusSnapshot() any {
	return lm.GetCurrentStatus()
}

// Storage returns the device store
func (lm *LifecycleManager) Storage() storage.DeviceStore {
	return lm.store
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

func (lm *LifecycleManager) Catalog() *devices.Catalog {
	return lm.catalog
}

func (lm *LifecycleManager) Sessions() *devices.SessionManager {
	return lm.sessions
}

func (lm *LifecycleManager) Composer() *devices.Composer {
	return lm.composer
}

func (lm *LifecycleManager) Ports() devices.PortLister {
	return lm.ports
}

func (lm *LifecycleManager) Prober() *modbus.Prober {
	return lm.prober
}

func (lm *LifecycleManager) Telemetry() telemetry.Collector {
	return lm.collector
}

func (lm *LifecycleManager) MetricsHandler() http.Handler {
	return lm.metrics
}
