package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/nextolk/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateServicesNoneRequired(t *testing.T) {
	sv := NewServiceValidator(&config.Config{})
	assert.NoError(t, sv.ValidateServices(context.Background()))
}

func TestValidateServicesRunsRequiredChecks(t *testing.T) {
	var called []string
	sv := NewServiceValidator(&config.Config{RequiredServices: []string{" Redis ", "database", "gorse"}})
	sv.WithCheck("redis", func(ctx context.Context) error {
		called = append(called, "redis")
		return nil
	})
	sv.WithCheck("database", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		called = append(called, "database")
		return nil
	})

	require.NoError(t, sv.ValidateServices(context.Background()))
	assert.Equal(t, []string{"redis", "database"}, called)
}

func TestValidateServicesStopsOnFailure(t *testing.T) {
	boom := errors.New("connection refused")
	ran := false
	sv := NewServiceValidator(&config.Config{RequiredServices: []string{"s3", "redis"}})
	sv.WithCheck("s3", func(ctx context.Context) error { return boom })
	sv.WithCheck("redis", func(ctx context.Context) error {
		ran = true
		return nil
	})

	err := sv.ValidateServices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"s3"`)
	assert.False(t, ran)
}

func TestBuiltInChecksRequireConfiguration(t *testing.T) {
	ctx := context.Background()
	assert.ErrorContains(t, validateElasticsearch(ctx, ""), "ELASTICSEARCH_URL")
	assert.ErrorContains(t, validateS3(ctx, &config.Config{}), "AWS_STORAGE_BUCKET_NAME")
	assert.ErrorContains(t, validateRedis(config.RedisConfig{}), "REDIS_HOST")
}

func TestKnown(t *testing.T) {
	sv := NewServiceValidator(&config.Config{})
	assert.Equal(t, []string{"database", "elasticsearch", "redis", "s3"}, sv.Known())
}
