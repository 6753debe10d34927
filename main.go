package main

import (
	"context"
	"log"
	"os"

	"github.com/effectiveone/facebook-clone-backend/config"
	"github.com/effectiveone/facebook-clone-backend/modules/api"
	"github.com/effectiveone/facebook-clone-backend/modules/auth"
	"github.com/effectiveone/facebook-clone-backend/modules/presence"
	"github.com/effectiveone/facebook-clone-backend/modules/social"
	"github.com/effectiveone/facebook-clone-backend/modules/wsserver"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Social Presence Backend - Fiber + WebSocket + EventBus ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	tokens := auth.NewJWTManager(auth.Config{
		SecretKey:     cfg.TokenSecret,
		TokenDuration: cfg.TokenTTL,
		Issuer:        auth.DefaultConfig().Issuer,
	})

	// Create modules
	socialModule := social.NewModule(cfg.DatabasePath, logger.WithModule("social"))
	presenceModule := presence.NewModule(logger.WithModule("presence"), cfg.DispatchTimeout)
	wsModule := wsserver.NewModule(wsserver.Config{
		Addr:              cfg.WSAddr(),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		SendQueue:         cfg.WSSendQueue,
		MessagesPerSecond: cfg.WSMessagesPerSecond,
		Burst:             cfg.WSBurst,
		RedisAddr:         cfg.RedisAddr,
	}, presenceModule, wsserver.NewIdentifier(cfg.WSIdentityMode, tokens), logger.WithModule("ws-server"))
	apiModule := api.NewModule(api.Config{
		Addr:              cfg.HTTPAddr(),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RedisAddr:         cfg.RedisAddr,
		RequestsPerMinute: cfg.HTTPRequestsPerMinute,
	}, tokens, api.NewPresenceReader(presenceModule), logger.WithModule("api"))

	// The websocket server delivers the dispatcher's targeted pushes.
	// (This is done manually because connections are not exposed via ServiceContainer)
	presenceModule.SetPusher(wsModule.Server())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - social: social graph (ServiceProviderModule + EventEmitterModule)
	// - presence: registries and dispatcher (EventConsumerModule, depends on social)
	// - ws-server: websocket transport over the presence registries
	// - api: HTTP API (depends on social)
	app.Register(socialModule)
	app.Register(presenceModule)
	app.Register(wsModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	limiter := "in-memory"
	if cfg.RedisAddr != "" {
		limiter = "redis at " + cfg.RedisAddr + " (in-memory if unreachable)"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - Social store: sqlite at %s", cfg.DatabasePath)
	log.Printf("  - Rate limits: %s", limiter)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                          - Health check")
	log.Println("  POST   /api/v1/users                    - Create a user profile")
	log.Println("  GET    /api/v1/friends                  - List friends")
	log.Println("  GET    /api/v1/presence                 - Online users and rooms")
	log.Println("  DELETE /api/v1/friends/:id              - Remove a friend")
	log.Println("  POST   /api/v1/messages/direct          - Send a direct message")
	log.Println("  POST   /api/friend-invitation/invite    - Invite by mail address")
	log.Println("  POST   /api/friend-invitation/accept    - Accept an invitation")
	log.Println("  POST   /api/friend-invitation/reject    - Reject an invitation")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws), identity mode %q:", cfg.WSPort, cfg.WSIdentityMode)
	log.Println("  Client messages: identity-assert, room-create, room-join, room-leave, direct-chat-history, ping")
	log.Println("  Server messages: online-users, room-created, room-update, friends-list, friends-invitations,")
	log.Println("                   invitation-status-changed, direct-chat-history, pong, error")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
