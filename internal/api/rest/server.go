package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenPLCConsole/internal/api/websocket"
	"github.com/KevinKickass/OpenPLCConsole/internal/config"
	"github.com/KevinKickass/OpenPLCConsole/internal/interfaces"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	logger *zap.Logger
	server *http.Server
	wsHub  *websocket.Hub
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		lm:     lm,
		logger: logger,
		wsHub:  wsHub,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	s.router.GET("/health", s.healthCheck)

	if handler := s.lm.MetricsHandler(); handler != nil {
		s.router.GET(s.lm.Config().Metrics.Path, gin.WrapH(handler))
	}

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
		}

		// ==================== DEVICE TYPES ====================
		deviceTypes := v1.Group("/device-types")
		{
			deviceTypes.GET("", s.listDeviceTypes)
			deviceTypes.GET("/:id", s.getDeviceType)
		}

		// ==================== SERIAL PORTS ====================
		v1.GET("/ports", s.listPorts)

		// ==================== DEVICES ====================
		devices := v1.Group("/devices")
		{
			devices.GET("", s.listDevices)
			devices.GET("/:id", s.getDevice)
			devices.POST("", s.saveDevice)
			devices.DELETE("/:id", s.deleteDevice)
			devices.POST("/:id/probe", s.probeDevice)
		}

		// ==================== EDIT SESSIONS ====================
		sessions := v1.Group("/device-sessions")
		{
			sessions.POST("", s.openSession)
			sessions.GET("/:id", s.getSession)
			sessions.PATCH("/:id/fields", s.editField)
			sessions.PATCH("/:id/registers", s.editRegister)
			sessions.PUT("/:id/type", s.switchSessionType)
			sessions.POST("/:id/submit", s.submitSession)
			sessions.POST("/:id/probe", s.probeSession)
			sessions.DELETE("/:id", s.cancelSession)
		}

		// ==================== WEBSOCKET ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}

	if err := s.lm.Storage().Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["store_error"] = err.Error()
	}

	c.JSON(status, body)
}

func (s *Server) broadcast(msg websocket.Message) {
	if s.wsHub != nil {
		s.wsHub.Broadcast(msg)
	}
}
