// Package web serves the companion session API over HTTP and websockets.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/metrics"
	"github.com/teslashibe/go-companion/pkg/session"
)

// Defaults.
const (
	DefaultAddr        = ":8080"
	DefaultCORSOrigins = "*"
	DefaultBodyLimit   = 16 * 1024 * 1024
)

// ErrMissingDependency indicates a server built without the session manager
// or another required component.
var ErrMissingDependency = errors.New("web: missing dependency")

// Config holds server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string

	// JWTSecret enables bearer token authentication. When empty the
	// X-User-ID header identifies the caller.
	JWTSecret string

	// CORSOrigins is a comma separated list of allowed origins.
	CORSOrigins string

	// BodyLimit caps request bodies and websocket frames in bytes.
	BodyLimit int

	Logger *slog.Logger
}

// Option configures a Server.
type Option func(*Config)

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:        DefaultAddr,
		CORSOrigins: DefaultCORSOrigins,
		BodyLimit:   DefaultBodyLimit,
		Logger:      slog.Default(),
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		if addr != "" {
			c.Addr = addr
		}
	}
}

// WithJWTSecret enables HS256 bearer authentication.
func WithJWTSecret(secret string) Option {
	return func(c *Config) { c.JWTSecret = secret }
}

// WithCORSOrigins sets the allowed origins.
func WithCORSOrigins(origins string) Option {
	return func(c *Config) {
		if origins != "" {
			c.CORSOrigins = origins
		}
	}
}

// WithBodyLimit caps request bodies.
func WithBodyLimit(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BodyLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// Languages lists what the service converses in.
type Languages interface {
	Supported() []language.Info
	Default() string
}

// Calls exposes the meeting platform to the API.
type Calls interface {
	Platform() string
	Answer(ctx context.Context, h meeting.Handle, sdp string) error
}

// Deps are the components the server fronts. Events and Metrics are
// optional.
type Deps struct {
	Sessions  *session.Manager
	Languages Languages
	Calls     Calls
	Events    *hub.Hub
	Metrics   *metrics.Metrics
}

// Server is the companion API server.
type Server struct {
	app    *fiber.App
	config *Config
	deps   Deps
	logger *slog.Logger

	// ctx bounds websocket pipeline cycles; canceled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates the API server and registers its routes.
func NewServer(deps Deps, opts ...Option) (*Server, error) {
	if deps.Sessions == nil || deps.Languages == nil || deps.Calls == nil {
		return nil, ErrMissingDependency
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: cfg.Logger.With("component", "web.server"),
		ctx:    ctx,
		cancel: cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Companion",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
	}))

	app.Get("/healthz", s.handleHealth)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	// API routes
	api := app.Group("/api/ai", s.authenticate)
	api.Get("/supported-languages", s.handleSupportedLanguages)
	api.Post("/start-session", s.handleStartSession)
	api.Post("/voice-message", s.handleVoiceMessage)
	api.Post("/end-session", s.handleEndSession)
	api.Get("/active-session", s.handleActiveSession)
	api.Get("/sessions/:id", s.handleSessionInfo)
	api.Get("/sessions/:id/messages", s.handleSessionMessages)
	api.Post("/sessions/:id/answer", s.handleAnswer)
	api.Get("/stats", s.handleStats)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, s.authenticate)

	// WebSocket routes
	app.Get("/ws/sessions/:id", websocket.New(s.handleSessionWS, websocket.Config{
		ReadBufferSize:  32 * 1024,
		WriteBufferSize: 32 * 1024,
	}))
	if deps.Events != nil {
		app.Get("/ws/events", websocket.New(s.handleEventsWS))
	}

	s.app = app
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("api listening", "addr", s.config.Addr, "auth", s.authMode())
	return s.app.Listen(s.config.Addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("api server stopped", "error", err)
		}
	}()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) authMode() string {
	if s.config.JWTSecret != "" {
		return "jwt"
	}
	return "header"
}

// PublishEvents returns a session event handler that forwards events to the
// hub, addressed to the session's user.
func PublishEvents(h *hub.Hub, logger *slog.Logger) func(session.Event) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(e session.Event) {
		if err := h.BroadcastJSON(e.UserID, e); err != nil {
			logger.Warn("event not published", "type", e.Type, "error", err)
		}
	}
}

func since(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
