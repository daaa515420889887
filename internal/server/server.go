package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/jerome00253/RIB-Factory/internal/config"
	"github.com/jerome00253/RIB-Factory/internal/handler"
	"github.com/jerome00253/RIB-Factory/internal/metrics"
	"github.com/jerome00253/RIB-Factory/internal/middleware"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

type Server struct {
	echo          *echo.Echo
	cfg           *config.Config
	logger        *logger.Logger
	metrics       *metrics.Metrics
	scanHandler   *handler.ScanHandler
	healthHandler *handler.HealthHandler
	setupOnce     sync.Once
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	m *metrics.Metrics,
	scanHandler *handler.ScanHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &Server{
		echo:          e,
		cfg:           cfg,
		logger:        log,
		metrics:       m,
		scanHandler:   scanHandler,
		healthHandler: healthHandler,
	}
}

func (s *Server) Start() error {
	s.Handler()

	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info(context.Background(), "Starting HTTP server",
		"address", addr,
	)

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(echoMiddleware.CORS())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Logging(s.logger))
	s.echo.Use(middleware.Metrics(s.metrics))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler.Check)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	s.echo.POST("/scans", s.scanHandler.Upload)
	s.echo.GET("/scans", s.scanHandler.List)
	s.echo.GET("/scans/export", s.scanHandler.Export)
	s.echo.GET("/scans/status", s.scanHandler.Status)
	s.echo.DELETE("/scans", s.scanHandler.DeleteAll)
	s.echo.DELETE("/scans/not-detected", s.scanHandler.DeleteNotDetected)
	s.echo.GET("/scans/:id", s.scanHandler.Get)
	s.echo.DELETE("/scans/:id", s.scanHandler.Delete)
}

// Handler registers middleware and routes exactly once, however many times
// it is called and whether or not Start is also used on the same Server.
func (s *Server) Handler() *echo.Echo {
	s.setupOnce.Do(func() {
		s.setupMiddleware()
		s.setupRoutes()
	})
	return s.echo
}
