package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/team-taskboard/modules/api"
	"github.com/example/team-taskboard/modules/auth"
	"github.com/example/team-taskboard/modules/broadcast"
	cachemod "github.com/example/team-taskboard/modules/cache"
	"github.com/example/team-taskboard/modules/task"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Team Taskboard ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	authModule := auth.NewModule()
	taskModule := task.NewModule()
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule()

	// Inject broadcast hub into API module
	// (This is done manually because the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Optional Redis cache for per-user task lists
	var cacheModule *cachemod.Module
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cacheModule = cachemod.NewModule(redisAddr)
		app.Register(cacheModule)
	}

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - auth: user directory + JWT issuing (ServiceProviderModule)
	// - task: core domain (ServiceProviderModule + EventEmitterModule, depends on auth)
	// - broadcast: event consumer fanning task events out to WebSocket sessions
	// - api: driving adapter (Fiber HTTP/WebSocket server, depends on auth and task)
	app.Register(authModule)
	app.Register(taskModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wire the cache after start; the task module works uncached without it.
	if cacheModule != nil {
		taskModule.SetCache(cacheModule.GetCache())
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
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

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Println("Realtime sync:")
	log.Println("  - TaskChanged events -> broadcast module -> permitted WebSocket sessions")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                      - Health check")
	log.Println("  POST   /api/v1/auth/register        - Register")
	log.Println("  POST   /api/v1/auth/login           - Login")
	log.Println("  POST   /api/v1/auth/refresh         - Refresh tokens")
	log.Println("  GET    /api/v1/me                   - Current user (auth)")
	log.Println("  GET    /api/v1/team/members         - Team members with presence (auth)")
	log.Println("  GET    /api/v1/tasks                - List visible tasks (auth)")
	log.Println("  POST   /api/v1/tasks                - Create task (auth)")
	log.Println("  GET    /api/v1/tasks/:id            - Get task (auth)")
	log.Println("  PUT    /api/v1/tasks/:id            - Update task (auth)")
	log.Println("  PATCH  /api/v1/tasks/:id/status     - Set task status (auth)")
	log.Println("  DELETE /api/v1/tasks/:id            - Delete task (auth, creator only)")
	log.Println("  POST   /api/v1/tasks/:id/comments   - Add comment (auth)")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Send {\"type\":\"join\",\"token\":\"<access token>\"} to start receiving task events")
	log.Println("  Message types: join, leave")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
