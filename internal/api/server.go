package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	mw "github.com/androsik2006/radmon/internal/api/middleware"
	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/buildinfo"
	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/events"
	"github.com/androsik2006/radmon/internal/history"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/monitor"
	"github.com/androsik2006/radmon/internal/radiation"
	"github.com/androsik2006/radmon/internal/report"
)

// Collector runs and reports collection cycles.
type Collector interface {
	CollectNow(ctx context.Context) (events.CycleCompleted, error)
	State() monitor.State
	LastCycle() (events.CycleCompleted, bool)
}

// SensorRegistry lists sensors with operator overrides and changes their status.
type SensorRegistry interface {
	Sensors() []radiation.SensorDescriptor
	SetStatus(ctx context.Context, sensorID string, status radiation.SensorStatus) error
}

// Alerter sends the operator test notification and records alarm resets.
type Alerter interface {
	SendTest(ctx context.Context) error
	ResetAlarms(operator string)
}

// BackupRunner creates a database backup.
type BackupRunner interface {
	Run(ctx context.Context) (*backup.Result, error)
}

// Reloader re-reads the configuration file.
type Reloader interface {
	Reload() error
}

// Store is the part of the datastore the API reads from.
type Store interface {
	report.Source
	GetStatistics(ctx context.Context, now time.Time) (datastore.Statistics, error)
	GetDailyAggregates(ctx context.Context, day time.Time) ([]datastore.DailyAggregate, error)
	GetRecentMeasurements(ctx context.Context, limit int) ([]datastore.MeasurementRecord, error)
	GetRecentAlerts(ctx context.Context, limit int) ([]datastore.Alert, error)
	ClearAlerts(ctx context.Context) (int64, error)
}

// Server is the HTTP server of the monitoring engine.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	// Core components
	echo   *echo.Echo
	config *Config
	log    logger.Logger
	info   *buildinfo.Context

	// Dependencies
	snapshot  func() *conf.Snapshot
	collector Collector
	sensors   SensorRegistry
	history   *history.Store
	store     Store
	alerter   Alerter
	backups   BackupRunner
	reloader  Reloader
	reports   *report.Generator
	metrics   http.Handler

	statsCache *cache.Cache

	// Lifecycle management
	mu        sync.Mutex
	listener  net.Listener
	wg        sync.WaitGroup
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithConfig replaces the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithLogger sets the logger for the server.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithBuildInfo sets the build metadata shown by the health endpoint.
func WithBuildInfo(info *buildinfo.Context) ServerOption {
	return func(s *Server) {
		s.info = info
	}
}

// WithSnapshot sets the source of the current configuration snapshot.
func WithSnapshot(fn func() *conf.Snapshot) ServerOption {
	return func(s *Server) {
		s.snapshot = fn
	}
}

// WithCollector sets the collection scheduler.
func WithCollector(c Collector) ServerOption {
	return func(s *Server) {
		s.collector = c
	}
}

// WithSensorRegistry sets the sensor status registry.
func WithSensorRegistry(r SensorRegistry) ServerOption {
	return func(s *Server) {
		s.sensors = r
	}
}

// WithHistory sets the in-memory history store.
func WithHistory(h *history.Store) ServerOption {
	return func(s *Server) {
		s.history = h
	}
}

// WithStore sets the datastore. It also backs the report endpoints.
func WithStore(store Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithAlerter sets the alert dispatcher.
func WithAlerter(a Alerter) ServerOption {
	return func(s *Server) {
		s.alerter = a
	}
}

// WithBackups sets the backup manager.
func WithBackups(b BackupRunner) ServerOption {
	return func(s *Server) {
		s.backups = b
	}
}

// WithReloader sets the configuration reloader.
func WithReloader(r Reloader) ServerOption {
	return func(s *Server) {
		s.reloader = r
	}
}

// WithMetricsHandler sets the handler served at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    ConfigFromSettings(settings),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.snapshot == nil {
		snap := conf.NewSnapshot(settings)
		s.snapshot = func() *conf.Snapshot { return snap }
	}
	if s.history == nil {
		return nil, errors.Newf("api server requires a history store").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.log == nil {
		s.log = GetLogger()
	}
	if s.store != nil {
		s.reports = report.NewGenerator(s.store)
	}
	s.statsCache = cache.New(s.config.StatsCacheTTL, 2*s.config.StatsCacheTTL)

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleHTTPError

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", s.config.Address()),
		logger.Bool("metrics", s.metricsEnabled()))
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, mw.MetricsSkipper))

	s.echo.Use(mw.Hardening{
		AllowedOrigins: s.config.AllowedOrigins,
		BodyLimit:      s.config.BodyLimit,
	}.Middlewares()...)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.metricsEnabled() {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.healthCheck)

	// Sensors and history
	v1.GET("/sensors", s.listSensors)
	v1.PUT("/sensors/:id/status", s.setSensorStatus)
	v1.GET("/sensors/:id/history", s.sensorHistory)
	v1.GET("/history", s.alignedHistory)

	// Alerts
	v1.GET("/alerts", s.listAlerts)
	v1.GET("/alerts/db", s.listStoredAlerts)
	v1.DELETE("/alerts", s.clearAlerts)
	v1.POST("/alarms/reset", s.resetAlarms)
	v1.POST("/notify/test", s.sendTestNotification)

	// Statistics and reports
	v1.GET("/stats", s.getStatistics)
	v1.GET("/stats/daily", s.getDailyStatistics)
	v1.GET("/measurements", s.listMeasurements)
	v1.GET("/reports/:kind", s.downloadReport)

	// Control
	v1.POST("/collect", s.collectNow)
	v1.POST("/backup", s.runBackup)
	v1.POST("/config/reload", s.reloadConfig)
	v1.GET("/system", s.systemInfo)
}

func (s *Server) metricsEnabled() bool {
	return s.config.Metrics && s.metrics != nil
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	resp := map[string]any{
		"status":         "healthy",
		"version":        s.info.Version(),
		"build_date":     s.info.BuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	if s.collector != nil {
		resp["scheduler"] = s.collector.State()
		if last, ok := s.collector.LastCycle(); ok {
			resp["last_cycle"] = last.FinishedAt.Format(time.RFC3339)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Start binds the listen address and serves HTTP requests in a background
// goroutine. A bind failure is returned directly. Use Shutdown to stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("address", s.config.Address()).
			Build()
	}

	s.mu.Lock()
	s.listener = ln
	s.echo.Listener = ln
	s.mu.Unlock()

	s.wg.Go(func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error", logger.Error(err))
		}
	})
	s.log.Info("HTTP server started", logger.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return errors.New(err).
			Component("api").
			Category(errors.CategorySystem).
			Build()
	}
	s.wg.Wait()
	s.log.Info("HTTP server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
