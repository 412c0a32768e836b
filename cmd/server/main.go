package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dotaladder/backend/internal/api"
	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/database"
	"github.com/dotaladder/backend/internal/migrations"
	"github.com/dotaladder/backend/internal/queue"
	"github.com/dotaladder/backend/internal/redis"
	"github.com/dotaladder/backend/internal/store"
	"github.com/dotaladder/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Connect to the job queue
	jobs, err := queue.Dial(cfg.AMQPURL, cfg.QueueName)
	if err != nil {
		log.Fatalf("Failed to connect to job queue: %v", err)
	}
	defer jobs.Close()

	st := store.New(db)

	// Relay bot match events into the websocket feed
	ws.StartMatchEventSubscriber(context.Background(), rdb)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.GET("/ws/matches", ws.HandleWebSocket)
	api.SetupRoutes(router, st, jobs, rdb, cfg)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting ladder API server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
