package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/database"
	"github.com/dotaladder/backend/internal/models"
	"github.com/dotaladder/backend/internal/store"
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

	raw := os.Getenv("ADMIN_STEAM_ID")
	if raw == "" {
		log.Fatal("Set ADMIN_STEAM_ID to the steam id to promote")
	}
	steamID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Fatalf("Invalid ADMIN_STEAM_ID %q: %v", raw, err)
	}

	st := store.New(db)
	if _, err := st.GetOrCreateUser(steamID); err != nil {
		log.Fatalf("Failed to create user %d: %v", steamID, err)
	}
	if err := st.GivePermission(steamID, models.PermissionAdmin); err != nil {
		log.Fatalf("Failed to grant admin to %d: %v", steamID, err)
	}

	log.Printf("User %d is now an admin", steamID)
}
