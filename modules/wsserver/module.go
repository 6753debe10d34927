package wsserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/effectiveone/facebook-clone-backend/modules/presence"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// Config holds the websocket server settings.
type Config struct {
	Addr              string
	AllowedOrigins    string
	SendQueue         int
	MessagesPerSecond int
	Burst             int
	RedisAddr         string
}

// Module implements the WebSocket server module using Fiber framework.
type Module struct {
	app    *fiber.App
	server *Server
	redis  *redis.Client
	config Config
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new WebSocket server module over the presence registries.
func NewModule(config Config, presenceModule *presence.Module, identifier Identifier, moduleLogger types.Logger) *Module {
	server := NewServer(
		presenceModule.Connections(),
		presenceModule.Rooms(),
		presenceModule.Dispatcher(),
		moduleLogger,
		WithIdentifier(identifier),
		WithSendQueue(config.SendQueue),
		WithLimiter(NewTokenBucketLimiter(config.MessagesPerSecond, config.Burst)),
	)
	return &Module{
		server: server,
		config: config,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// Server returns the protocol server. It is the presence pusher.
func (m *Module) Server() *Server {
	return m.server
}

// Start initializes and starts the WebSocket server.
func (m *Module) Start(ctx context.Context) error {
	if m.config.RedisAddr != "" {
		m.useRedisLimiter(ctx)
	}

	m.app = newApp(m.server, m.config.AllowedOrigins, m.logger)

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors
	select {
	case err := <-errCh:
		return fmt.Errorf("WebSocket server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	m.logger.Info("WebSocket server started", "addr", m.config.Addr)
	return nil
}

// useRedisLimiter replaces the in-memory limiter by the shared Redis one.
// An unreachable Redis keeps the in-memory limiter.
func (m *Module) useRedisLimiter(ctx context.Context) {
	client := redis.NewClient(&redis.Options{Addr: m.config.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		m.logger.Warn("Redis not available, using in-memory rate limiter", "addr", m.config.RedisAddr, "error", err)
		client.Close()
		return
	}

	limit, window := windowFor(m.config.MessagesPerSecond, m.config.Burst)
	m.redis = client
	m.server.limiter = NewSlidingWindowLimiter(client, limit, window, "ws:ratelimit:")
	m.logger.Info("Using Redis rate limiter", "addr", m.config.RedisAddr, "limit", limit, "window", window)
}

// Stop closes every connection and shuts down the WebSocket server.
func (m *Module) Stop(ctx context.Context) error {
	m.server.CloseAll()

	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Warn("Failed to close Redis client", "error", err)
		}
	}
	m.logger.Info("WebSocket server stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	details := map[string]any{
		"connections": m.server.ClientCount(),
		"limiter":     "memory",
	}
	if m.redis != nil {
		details["limiter"] = "redis"
		if err := m.redis.Ping(ctx).Err(); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("redis ping failed: %v", err),
				Details: details,
			}
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// newApp builds the Fiber app serving /ws and /health.
func newApp(server *Server, allowedOrigins string, moduleLogger types.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Presence WebSocket Server",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(moduleLogger),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))

	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "healthy",
			"service":     "ws-server",
			"connections": server.ClientCount(),
		})
	})

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		server.Handle(c)
	}, websocket.Config{
		Origins: splitOrigins(allowedOrigins),
	}))

	return app
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// errorHandler handles errors globally.
func errorHandler(moduleLogger types.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		moduleLogger.Error("HTTP error", "code", code, "message", message, "error", err)

		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}
