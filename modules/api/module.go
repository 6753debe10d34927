package api

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/effectiveone/facebook-clone-backend/domain/presence"
	"github.com/effectiveone/facebook-clone-backend/modules/auth"
	presencemodule "github.com/effectiveone/facebook-clone-backend/modules/presence"
	"github.com/effectiveone/facebook-clone-backend/modules/social"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redisstorage "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
)

// Config holds the HTTP API settings.
type Config struct {
	Addr              string
	AllowedOrigins    string
	RedisAddr         string
	RequestsPerMinute int
}

// Module is the HTTP API module.
type Module struct {
	app      *fiber.App
	social   social.SocialPort
	tokens   *auth.JWTManager
	presence PresenceReader
	storage  fiber.Storage
	config   Config
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new API module.
func NewModule(config Config, tokens *auth.JWTManager, presenceReader PresenceReader, logger types.Logger) *Module {
	return &Module{
		tokens:   tokens,
		presence: presenceReader,
		config:   config,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"social"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "social":
		m.social = social.NewSocialAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *Module) Start(ctx context.Context) error {
	if m.social == nil {
		return fmt.Errorf("social dependency not set")
	}

	if m.config.RedisAddr != "" {
		m.storage = m.redisStorage(ctx)
	}

	handlers := NewHandlers(m.social, m.tokens, m.presence, m.logger)
	m.app = newApp(handlers, m.tokens, m.config.AllowedOrigins,
		newRateLimiter(m.config.RequestsPerMinute, m.storage), m.logger)

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.config.Addr)
	return nil
}

// redisStorage returns the shared limiter storage, or nil to keep limits in memory.
func (m *Module) redisStorage(ctx context.Context) fiber.Storage {
	client := redis.NewClient(&redis.Options{Addr: m.config.RedisAddr})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		m.logger.Warn("Redis not available, HTTP rate limits kept in memory", "addr", m.config.RedisAddr, "error", err)
		return nil
	}

	host, port := parseRedisAddr(m.config.RedisAddr)
	m.logger.Info("Using Redis for HTTP rate limits", "addr", m.config.RedisAddr)
	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		PoolSize: 10,
	})
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			m.logger.Warn("Failed to close limiter storage", "error", err)
		}
	}
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{
		"addr":    m.config.Addr,
		"limiter": "memory",
	}
	if m.storage != nil {
		details["limiter"] = "redis"
		// Simple health check: try to get a non-existent key
		if _, err := m.storage.Get("__health_check__"); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("limiter storage check failed: %v", err),
				Details: details,
			}
		}
	}

	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// newApp builds the Fiber app and its routes.
func newApp(handlers *Handlers, tokens TokenValidator, allowedOrigins string, rateLimit fiber.Handler, moduleLogger types.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Social API",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(moduleLogger),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	apiRoutes := app.Group("/api")
	if rateLimit != nil {
		apiRoutes.Use(rateLimit)
	}

	v1 := apiRoutes.Group("/v1")
	v1.Post("/users", handlers.CreateUser)

	protected := v1.Group("", AuthMiddleware(tokens))
	protected.Get("/presence", handlers.Presence)
	protected.Get("/friends", handlers.Friends)
	protected.Delete("/friends/:id", handlers.Unfriend)
	protected.Post("/messages/direct", handlers.SendDirectMessage)

	invitations := apiRoutes.Group("/friend-invitation", AuthMiddleware(tokens))
	invitations.Post("/invite", handlers.Invite)
	invitations.Post("/accept", handlers.Accept)
	invitations.Post("/reject", handlers.Reject)

	return app
}

// newRateLimiter limits requests per client IP over a sliding minute.
// A nil storage keeps the counters in memory.
func newRateLimiter(perMinute int, storage fiber.Storage) fiber.Handler {
	if perMinute <= 0 {
		return nil
	}
	return limiter.New(limiter.Config{
		Max:               perMinute,
		Expiration:        time.Minute,
		Storage:           storage,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "too_many_requests",
				Message: "Rate limit exceeded. Please retry later.",
			})
		},
	})
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(moduleLogger types.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		} else {
			moduleLogger.Error("Unhandled HTTP error", "path", c.Path(), "error", err)
		}

		return c.Status(code).JSON(ErrorResponse{
			Error:   "server_error",
			Message: message,
		})
	}
}

// parseRedisAddr parses "host:port" into host and port.
// Returns defaults (127.0.0.1:6379) for invalid or missing values.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return host, port
}

// registryReader reads presence straight from the registries.
type registryReader struct {
	connections *presencemodule.ConnectionRegistry
	rooms       *presencemodule.RoomRegistry
}

// NewPresenceReader exposes the registries of the presence module to the API.
func NewPresenceReader(m *presencemodule.Module) PresenceReader {
	return registryReader{connections: m.Connections(), rooms: m.Rooms()}
}

func (r registryReader) OnlineUserIDs() []string {
	return r.connections.OnlineUserIDs()
}

func (r registryReader) Rooms() []presence.Room {
	return r.rooms.Rooms()
}
