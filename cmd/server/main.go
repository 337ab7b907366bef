package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/rpattn/fleetline/internal/config"
	"github.com/rpattn/fleetline/internal/db"
	"github.com/rpattn/fleetline/internal/httpapi"
	"github.com/rpattn/fleetline/internal/middleware"
	"github.com/rpattn/fleetline/internal/realtime"
	"github.com/rpattn/fleetline/internal/repository"
	"github.com/rpattn/fleetline/internal/timeline"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	activityRepo := repository.NewActivityRepository(conn.Pool)
	workOrderRepo := repository.NewWorkOrderRepository(conn.Pool)
	profileRepo := repository.NewUserProfileRepository(conn.Pool)

	// Create realtime manager over the websocket transport
	manager := realtime.NewManager(
		realtime.NewWebSocketFactory(cfg.Realtime.URL),
		realtime.DefaultConfig(),
	)
	defer manager.Cleanup()

	// Create timeline service
	service := timeline.NewService(activityRepo, workOrderRepo, profileRepo, manager)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	apiHandler := middleware.LoggingMiddleware(httpapi.NewHandler(service))
	http.Handle("/", corsHandler.Handler(apiHandler))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting timeline server on %s", cfg.Server.Addr)
		log.Printf("Timeline API available at http://localhost%s/api/work-orders/{id}/timeline", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
