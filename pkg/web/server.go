// Package web serves a camera over HTTP: an index page, single stills,
// an MJPEG stream, websocket feeds and a small settings API.
package web

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-camhttpd/pkg/camera"
	"github.com/teslashibe/go-camhttpd/pkg/hub"
	"github.com/teslashibe/go-camhttpd/pkg/mjpeg"
)

//go:embed static/index.html
var indexHTML []byte

// ErrTooManyHandlers is returned when registering more URI handlers than
// Config.MaxHandlers allows.
var ErrTooManyHandlers = errors.New("web: too many URI handlers")

// Config holds HTTP server settings.
type Config struct {
	Port            int           // TCP port to listen on
	MaxHandlers     int           // Upper bound on registered URI handlers
	StatusInterval  time.Duration // How often /ws/status clients get a snapshot
	ShutdownTimeout time.Duration // Grace period for open connections on shutdown
	AccessLog       bool          // Log every request
}

// DefaultConfig returns the stock configuration: port 80, 16 handlers.
func DefaultConfig() Config {
	return Config{
		Port:            80,
		MaxHandlers:     16,
		StatusInterval:  time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration and returns any errors found.
func (c Config) Validate() []string {
	var errs []string
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port must be 0-65535, got %d", c.Port))
	}
	if c.MaxHandlers <= 0 {
		errs = append(errs, "max_handlers must be positive")
	}
	if c.StatusInterval <= 0 {
		errs = append(errs, "status_interval must be positive")
	}
	return errs
}

// Server is the camera HTTP server.
type Server struct {
	cfg      Config
	app      *fiber.App
	streamer *mjpeg.Streamer
	settings *camera.Manager
	logger   *slog.Logger

	statusHub  *hub.Hub
	cameraName string
	started    time.Time
	handlers   int

	// ctx bounds every stream; Shutdown cancels it so open streams end.
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCameraName sets the driver name reported by /api/status.
func WithCameraName(name string) Option {
	return func(s *Server) {
		s.cameraName = name
	}
}

// NewServer builds the fiber app and registers every route.
func NewServer(cfg Config, streamer *mjpeg.Streamer, settings *camera.Manager, opts ...Option) (*Server, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("web: invalid config: %v", errs)
	}

	if settings == nil {
		settings = camera.NewManager(camera.DefaultSettings())
	}

	s := &Server{
		cfg:      cfg,
		streamer: streamer,
		settings: settings,
		logger:   slog.Default(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.statusHub = hub.New("status", s.logger)
	s.statusHub.Greeting = func() (hub.Message, bool) {
		msg, err := s.statusMessage()
		return msg, err == nil
	}

	app := fiber.New(fiber.Config{
		AppName:               "camhttpd",
		DisableStartupMessage: true,
		ErrorHandler:          jsonError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app = app
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes() error {
	routes := []struct {
		method string
		path   string
		h      fiber.Handler
	}{
		{fiber.MethodGet, "/", s.handleIndex},
		{fiber.MethodGet, "/jpg", s.handleJPG},
		{fiber.MethodGet, "/stream", s.handleStream},
		{fiber.MethodGet, "/ws/stream", websocket.New(s.handleStreamWS)},
		{fiber.MethodGet, "/ws/status", websocket.New(s.handleStatusWS)},
		{fiber.MethodGet, "/api/status", s.handleStatus},
		{fiber.MethodGet, "/api/camera", s.handleGetCamera},
		{fiber.MethodPost, "/api/camera", s.handleSetCamera},
		{fiber.MethodGet, "/api/camera/presets", s.handlePresets},
		{fiber.MethodGet, "/health", s.handleHealth},
	}
	for _, r := range routes {
		if err := s.Handle(r.method, r.path, r.h); err != nil {
			return err
		}
	}
	return nil
}

// Handle registers an extra URI handler. It fails with ErrTooManyHandlers
// once Config.MaxHandlers handlers exist.
func (s *Server) Handle(method, path string, h fiber.Handler) error {
	if s.handlers >= s.cfg.MaxHandlers {
		return fmt.Errorf("%w: %s %s exceeds limit of %d", ErrTooManyHandlers, method, path, s.cfg.MaxHandlers)
	}
	s.app.Add(method, path, h)
	s.handlers++
	return nil
}

// HandlerCount returns the number of registered URI handlers.
func (s *Server) HandlerCount() int {
	return s.handlers
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// StatusHub returns the hub feeding /ws/status.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// Run listens on the configured port until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(s.ctx)
	go s.publishStatus()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.cancel()
		return err
	case <-ctx.Done():
	}
	return s.Shutdown()
}

// Shutdown ends open streams and stops the server.
func (s *Server) Shutdown() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// publishStatus pushes a snapshot to /ws/status clients every StatusInterval.
func (s *Server) publishStatus() {
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if msg, err := s.statusMessage(); err == nil {
				s.statusHub.Broadcast(msg)
			}
		}
	}
}

// jsonError renders handler errors as {"error": "..."}.
func jsonError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
