package config

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds every setting the server and the command-line tools read
// from the environment.
type Config struct {
	Port        string `env:"PORT, default=8787"`
	Environment string `env:"ENVIRONMENT, default=development"`
	Debug       bool   `env:"DEBUG, default=false"`
	BaseURL     string `env:"BASE_URL, default=http://localhost:8787"`

	Database  DatabaseConfig
	Auth      AuthConfig
	Media     MediaConfig
	Transcode TranscodeConfig
	Redis     RedisConfig
	OTP       OTPConfig
	Telemetry TelemetryConfig
	Log       LogConfig
	Schedule  MaintenanceConfig

	ElasticsearchURL   string   `env:"ELASTICSEARCH_URL"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=https://africana-1b1c6.web.app,https://africana-1b1c6.firebaseapp.com,https://nextolk.onrender.com"`
	RequiredServices   []string `env:"REQUIRED_SERVICES"`
}

type DatabaseConfig struct {
	URL        string `env:"DATABASE_URL"`
	Host       string `env:"DB_HOST"`
	Port       string `env:"DB_PORT, default=5432"`
	User       string `env:"DB_USER, default=postgres"`
	Password   string `env:"DB_PASSWORD"`
	Name       string `env:"DB_NAME, default=nextolk"`
	SSLMode    string `env:"DB_SSLMODE, default=disable"`
	SQLitePath string `env:"SQLITE_PATH, default=nextolk.db"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL, default=5m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL, default=24h"`
}

type MediaConfig struct {
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Bucket          string `env:"AWS_STORAGE_BUCKET_NAME"`
	Region          string `env:"AWS_S3_REGION_NAME, default=us-east-1"`
	CustomDomain    string `env:"AWS_S3_CUSTOM_DOMAIN"`
	DefaultACL      string `env:"AWS_DEFAULT_ACL, default=public-read"`
	Root            string `env:"MEDIA_ROOT, default=mediafiles"`
}

type TranscodeConfig struct {
	Workers     int           `env:"TRANSCODE_WORKERS, default=0"`
	QueueSize   int           `env:"TRANSCODE_QUEUE_SIZE, default=100"`
	Timeout     time.Duration `env:"TRANSCODE_TIMEOUT, default=10m"`
	MaxUploadMB int64         `env:"MAX_VIDEO_UPLOAD_MB, default=200"`
	TempDir     string        `env:"TEMP_DIR"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT, default=6379"`
	Password string `env:"REDIS_PASSWORD"`
}

type OTPConfig struct {
	TTL               time.Duration `env:"OTP_TTL, default=5m"`
	RequestsPerMinute int           `env:"OTP_REQUESTS_PER_MINUTE, default=3"`
}

type TelemetryConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED, default=false"`
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT, default=localhost:4318"`
	SamplingRate float64 `env:"OTEL_SAMPLING_RATE, default=1.0"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL, default=info"`
	File  string `env:"LOG_FILE, default=logs/server.log"`
}

type MaintenanceConfig struct {
	Schedule        string        `env:"MAINTENANCE_SCHEDULE, default=@every 5m"`
	StuckVideoAfter time.Duration `env:"STUCK_VIDEO_AFTER, default=30m"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration through the given lookuper. Tests pass an
// envconfig.MapLookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set outside development")
		}
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Transcode.QueueSize <= 0 {
		return fmt.Errorf("TRANSCODE_QUEUE_SIZE must be positive, got %d", c.Transcode.QueueSize)
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATE must be between 0 and 1, got %v", c.Telemetry.SamplingRate)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// IsProduction reports whether the server runs outside a development setup.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env != "development" && env != "dev" && env != "test"
}

// UseS3 reports whether media should go to S3 instead of the local disk.
func (c *Config) UseS3() bool {
	return c.Media.Bucket != ""
}

// AllowAllOrigins reports whether CORS should accept any origin. DEBUG
// opens it up, as does a "*" entry in CORS_ALLOWED_ORIGINS.
func (c *Config) AllowAllOrigins() bool {
	if c.Debug {
		return true
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// WebSocketOriginPatterns turns the CORS origins into the host patterns the
// websocket upgrader matches against
func (c *Config) WebSocketOriginPatterns() []string {
	if c.AllowAllOrigins() {
		return []string{"*"}
	}
	hosts := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, origin := range c.CORSAllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// TranscodeWorkers resolves the worker count, defaulting to the CPU count
// capped at 8.
func (c *Config) TranscodeWorkers() int {
	if c.Transcode.Workers > 0 {
		return c.Transcode.Workers
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}

// MaxVideoUploadBytes is the upload size ceiling for a single video.
func (c *Config) MaxVideoUploadBytes() int64 {
	return c.Transcode.MaxUploadMB << 20
}

// DSN returns the postgres connection string, or "" when SQLite should be
// used instead.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}
