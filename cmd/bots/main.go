package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dotaladder/backend/internal/bot"
	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/database"
	"github.com/dotaladder/backend/internal/dota"
	"github.com/dotaladder/backend/internal/queue"
	"github.com/dotaladder/backend/internal/redis"
	"github.com/dotaladder/backend/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	if len(cfg.BotCredentials) == 0 {
		log.Fatal("No bot credentials configured, set BOT_CREDENTIALS")
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

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

	manager := bot.NewManager(cfg, store.New(db), jobs, bot.NewRedisPublisher(rdb),
		func() dota.Client { return dota.NewBridge(cfg.DotaBridgeURL) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down bot pool...")
		cancel()
	}()

	log.Printf("Starting bot pool with %d credentials (target size %d)",
		len(cfg.BotCredentials), cfg.BotPoolSize)
	manager.Run(ctx)
	log.Println("Bot pool stopped")
}
