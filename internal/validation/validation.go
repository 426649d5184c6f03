package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/config"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/search"
	"github.com/nextolk/backend/internal/storage"
	"go.uber.org/zap"
)

// CheckFunc probes one external service
type CheckFunc func(ctx context.Context) error

// ServiceValidator verifies the services listed in REQUIRED_SERVICES before
// the server starts taking traffic
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]CheckFunc
	timeout          time.Duration
}

// NewServiceValidator creates a validator with the built-in checks for
// database, elasticsearch, s3 and redis
func NewServiceValidator(cfg *config.Config) *ServiceValidator {
	sv := &ServiceValidator{
		requiredServices: normalize(cfg.RequiredServices),
		timeout:          10 * time.Second,
	}
	sv.checks = map[string]CheckFunc{
		"database":      validateDatabase,
		"elasticsearch": func(ctx context.Context) error { return validateElasticsearch(ctx, cfg.ElasticsearchURL) },
		"s3":            func(ctx context.Context) error { return validateS3(ctx, cfg) },
		"redis":         func(ctx context.Context) error { return validateRedis(cfg.Redis) },
	}
	return sv
}

// WithCheck replaces or adds the check for name
func (sv *ServiceValidator) WithCheck(name string, check CheckFunc) *ServiceValidator {
	sv.checks[strings.ToLower(name)] = check
	return sv
}

// Known lists the service names that can be required
func (sv *ServiceValidator) Known() []string {
	names := make([]string, 0, len(sv.checks))
	for name := range sv.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateServices runs the check of every required service and fails on the
// first one that does not answer
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.requiredServices))

	for _, serviceName := range sv.requiredServices {
		check, ok := sv.checks[serviceName]
		if !ok {
			logger.Log.Warn("Unknown service type in validation", zap.String("service", serviceName))
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed", zap.String("service", serviceName), zap.Error(err))
			return fmt.Errorf("required service %q validation failed: %w", serviceName, err)
		}

		logger.Log.Info("Service validated successfully", zap.String("service", serviceName))
	}

	logger.Log.Info("All required services validated successfully")
	return nil
}

func validateDatabase(ctx context.Context) error {
	return database.Health(ctx)
}

func validateElasticsearch(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is required for Elasticsearch validation")
	}
	client, err := search.NewClient(url)
	if err != nil {
		return err
	}
	return client.Ping(ctx)
}

func validateS3(ctx context.Context, cfg *config.Config) error {
	if !cfg.UseS3() {
		return fmt.Errorf("AWS_STORAGE_BUCKET_NAME is required for S3 validation")
	}
	store, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	return store.(*storage.S3Store).CheckBucketAccess(ctx)
}

func validateRedis(rc config.RedisConfig) error {
	if rc.Host == "" {
		return fmt.Errorf("REDIS_HOST is required for Redis validation")
	}
	client, err := cache.NewRedisClient(rc.Host, rc.Port, rc.Password)
	if err != nil {
		return err
	}
	return client.Close()
}

func normalize(services []string) []string {
	out := make([]string, 0, len(services))
	for _, s := range services {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
