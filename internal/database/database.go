package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nextolk/backend/internal/config"
	applogger "github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

func gormConfig(debug bool) *gorm.Config {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if debug {
		gormLogger = logger.Default.LogMode(logger.Info)
	}
	return &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Initialize connects to postgres when a DSN is configured and falls back to
// a SQLite file otherwise.
func Initialize(cfg config.DatabaseConfig, debug bool) error {
	dsn := cfg.DSN()
	if dsn == "" {
		db, err := OpenSQLite(cfg.SQLitePath, debug)
		if err != nil {
			return err
		}
		DB = db
		applogger.Log.Info("Database connected", zap.String("driver", "sqlite"), zap.String("path", cfg.SQLitePath))
		return nil
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(debug))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	applogger.Log.Info("Database connected", zap.String("driver", "postgres"))
	return nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced. A path of
// ":memory:" gives a private in-memory database, which is what tests use.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}

	cfg := gormConfig(debug)
	if !debug {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite serializes writers anyway; one connection also keeps an
	// in-memory database alive and shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate runs auto-migration for all models on DB
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return MigrateDB(DB)
}

// MigrateDB runs auto-migration and index creation against db
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	applogger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes adds the composite indexes the feed and listing queries use.
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_videos_user_created ON videos (user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_videos_status_updated ON videos (processing_status, updated_at)",
		"CREATE INDEX IF NOT EXISTS idx_comments_video_created ON comments (video_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_follows_follower_created ON follows (follower_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_seller_created ON products (seller_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_created ON products (category_id, created_at DESC)",
	}
	if db.Dialector.Name() == "postgres" {
		statements = append(statements,
			"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
			"CREATE INDEX IF NOT EXISTS idx_products_available ON products (created_at DESC) WHERE is_available = true",
		)
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// DropAll drops every table in reverse migration order
func DropAll(db *gorm.DB) error {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func Health(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
