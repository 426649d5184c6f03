package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "us-east-1", cfg.Media.Region)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 3, cfg.OTP.RequestsPerMinute)
	assert.Equal(t, 100, cfg.Transcode.QueueSize)
	assert.Equal(t, int64(200<<20), cfg.MaxVideoUploadBytes())
	assert.Equal(t, "@every 5m", cfg.Schedule.Schedule)
	assert.Len(t, cfg.CORSAllowedOrigins, 3)
	assert.NotEmpty(t, cfg.Auth.JWTSecret, "development gets a fallback secret")
	assert.False(t, cfg.UseS3())
	assert.False(t, cfg.RedisEnabled())
	assert.Empty(t, cfg.Database.DSN())
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENVIRONMENT": "production",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENVIRONMENT":             "production",
		"JWT_SECRET":              "s3cret",
		"BASE_URL":                "https://api.nextolk.com/",
		"AWS_STORAGE_BUCKET_NAME": "nextolk-media",
		"REDIS_HOST":              "redis",
		"TRANSCODE_WORKERS":       "3",
		"DB_HOST":                 "db",
		"DB_PASSWORD":             "pw",
		"CORS_ALLOWED_ORIGINS":    "https://a.example,https://b.example",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://api.nextolk.com", cfg.BaseURL)
	assert.True(t, cfg.UseS3())
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 3, cfg.TranscodeWorkers())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "host=db user=postgres password=pw dbname=nextolk port=5432 sslmode=disable", cfg.Database.DSN())
}

func TestDatabaseURLWins(t *testing.T) {
	d := DatabaseConfig{URL: "postgres://u:p@h/db", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@h/db", d.DSN())
}

func TestTranscodeWorkersCapped(t *testing.T) {
	cfg := &Config{}
	n := cfg.TranscodeWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 8)
}

func TestInvalidSamplingRate(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"OTEL_SAMPLING_RATE": "1.5",
	}))
	assert.Error(t, err)
}

func TestDebugAllowsAllOrigins(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"DEBUG":                "true",
		"CORS_ALLOWED_ORIGINS": "https://a.example",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.AllowAllOrigins())
	assert.Equal(t, []string{"*"}, cfg.WebSocketOriginPatterns())
}

func TestOriginAllowList(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: []string{"https://a.example", "http://localhost:3000", "not a url"}}
	assert.False(t, cfg.AllowAllOrigins())
	assert.Equal(t, []string{"a.example", "localhost:3000"}, cfg.WebSocketOriginPatterns())

	cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, "*")
	assert.True(t, cfg.AllowAllOrigins())
}
