package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"go-duet/internal/infrastructure/database"
	queueAdapter "go-duet/internal/infrastructure/queue/adapter"
	"go-duet/internal/pkg/dm/application/task"
	backendAdapter "go-duet/internal/pkg/dm/backend/adapter"
)

// The worker consumes compensation tasks: conversations created by a resolve
// whose membership insert failed are deleted here instead of lingering
// unreferenced.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := database.NewPoolFromEnv(ctx)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	srv, err := queueAdapter.NewAsynqServerFromEnv()
	if err != nil {
		log.Fatalf("failed to create queue server: %v", err)
	}

	// The worker never publishes push events, so no redis client is wired in.
	backend := backendAdapter.NewPgBackend(pool, nil)
	task.RegisterCleanupConversationTask(srv, backend)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("worker started")
	if err := srv.Run(runCtx); err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
}
