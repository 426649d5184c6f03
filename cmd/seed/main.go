package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/nextolk/backend/internal/config"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/search"
	"github.com/nextolk/backend/internal/seed"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	// Parse command
	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command != "dev" && command != "test" && command != "clean" {
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed the fixed alice/bob/charlie/diana/eve accounts")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Log.Level, "logs/seed.log"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// Initialize database connection
	if err := database.Initialize(cfg.Database, false); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	seeder := seed.NewSeeder(database.DB)

	switch command {
	case "dev":
		logger.Log.Info("Seeding development database...")
		err = seeder.SeedDev()
	case "test":
		logger.Log.Info("Seeding test database...")
		err = seeder.SeedTest()
	case "clean":
		logger.Log.Info("Cleaning seed data...")
		err = seeder.Clean()
	}
	if err != nil {
		logger.Log.Fatal("Seeding failed", zap.String("command", command), zap.Error(err))
	}

	if command != "clean" && cfg.ElasticsearchURL != "" {
		reindex(ctx, cfg.ElasticsearchURL)
	}

	logger.Log.Info("Seed command finished", zap.String("command", command))
}

// reindex pushes the seeded rows into Elasticsearch. Failures leave search on
// the database fallback, so they are only logged.
func reindex(ctx context.Context, url string) {
	client, err := search.NewClient(url)
	if err != nil {
		logger.Log.Warn("Skipping search reindex", zap.Error(err))
		return
	}
	if err := client.InitializeIndices(ctx); err != nil {
		logger.Log.Warn("Skipping search reindex", zap.Error(err))
		return
	}

	var total int64
	database.DB.Table("videos").Count(&total)
	var products int64
	database.DB.Table("products").Count(&products)
	total += products

	n, err := search.NewService(client, database.DB, nil).Reconcile(ctx, int(total)+1)
	if err != nil {
		logger.Log.Warn("Search reindex failed", zap.Error(err))
		return
	}
	logger.Log.Info("Indexed seed data", zap.Int("documents", n))
}
