package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/audit"
	"github.com/nerrad567/gray-logic-alarms/internal/directory"
	"github.com/nerrad567/gray-logic-alarms/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-alarms/internal/notification"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds all component checks of one health request.
const healthCheckTimeout = 3 * time.Second

// HealthChecker is satisfied by the database, MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Logger is the logging interface used by the server.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    Logger
	Directory *directory.Directory
	Classes   *notification.Registry

	// Deliveries serves the delivery trail. Optional; without it the
	// endpoint reports 503.
	Deliveries audit.Repository

	// Checks are reported by /health under their map key. Optional.
	Checks map[string]HealthChecker

	Version string
}

// Server is the diagnostics HTTP server.
type Server struct {
	cfg       config.APIConfig
	logger    Logger
	directory *directory.Directory
	classes   *notification.Registry
	trail     audit.Repository
	checks    map[string]HealthChecker
	version   string
	server    *http.Server
}

// New creates a server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Directory == nil {
		return nil, errors.New("device directory is required")
	}
	if deps.Classes == nil {
		return nil, errors.New("notification class registry is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		directory: deps.Directory,
		classes:   deps.Classes,
		trail:     deps.Deliveries,
		checks:    deps.Checks,
		version:   deps.Version,
	}, nil
}

// Start binds the listener and serves in the background. A bind failure
// (port in use) is returned here rather than logged later.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
