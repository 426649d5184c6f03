package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/nextolk/backend/internal/config"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	// Parse command
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command != "up" && command != "down" {
		fmt.Println("Usage: migrate [up|down]")
		fmt.Println("  up   - Create or update all tables and indexes")
		fmt.Println("  down - Drop every table (destroys all data)")
		os.Exit(1)
	}

	cfg, err := config.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Log.Level, "logs/migrate.log"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// Initialize database connection
	if err := database.Initialize(cfg.Database, cfg.Debug); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	switch command {
	case "up":
		logger.Log.Info("Running migrations...")
		if err := database.Migrate(); err != nil {
			logger.Log.Fatal("Migration failed", zap.Error(err))
		}
		logger.Log.Info("All migrations completed successfully")
	case "down":
		if cfg.IsProduction() && os.Getenv("CONFIRM_DROP") != "yes" {
			logger.Log.Fatal("Refusing to drop tables outside development without CONFIRM_DROP=yes")
		}
		logger.Log.Warn("Dropping all tables...")
		if err := database.DropAll(database.DB); err != nil {
			logger.Log.Fatal("Rollback failed", zap.Error(err))
		}
		logger.Log.Info("All tables dropped")
	}
}
