package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/nextolk/backend/internal/config"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/repository"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Parse command-line flags
	username := flag.String("username", "", "Username of the user to promote to admin")
	revoke := flag.Bool("revoke", false, "Revoke admin privileges instead of granting")
	flag.Parse()

	if *username == "" {
		fmt.Println("Usage: promote-admin -username=alice")
		fmt.Println("       promote-admin -username=alice -revoke")
		os.Exit(2)
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize database
	if err := database.Initialize(cfg.Database, false); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	user, err := repository.NewUserRepository(database.DB).SetAdmin(ctx, *username, !*revoke)
	if errors.Is(err, repository.ErrUserNotFound) {
		fmt.Printf("User not found: %s\n", *username)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Failed to update admin privileges: %v\n", err)
		os.Exit(1)
	}

	if *revoke {
		fmt.Printf("Revoked admin privileges from %s\n", user.Username)
		return
	}
	fmt.Printf("%s (id %d) is now an admin and can manage shop categories\n", user.Username, user.ID)
}
