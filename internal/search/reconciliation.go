package search

import (
	"context"
	"fmt"
	"time"

	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultReconcileSample bounds how many rows of each kind one pass touches
const DefaultReconcileSample = 100

// Reconcile reindexes a random sample of completed videos and products.
// Like and comment counters change without a reindex, so a periodic pass
// keeps ranking signals from drifting. It returns how many documents were
// written.
func (s *Service) Reconcile(ctx context.Context, sample int) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	if sample <= 0 {
		sample = DefaultReconcileSample
	}
	start := time.Now()

	var videos []models.Video
	if err := s.db.WithContext(ctx).Preload("User").
		Where("processing_status = ?", models.ProcessingComplete).
		Order("RANDOM()").Limit(sample).Find(&videos).Error; err != nil {
		return 0, fmt.Errorf("failed to sample videos: %w", err)
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Seller").Preload("Category").
		Order("RANDOM()").Limit(sample).Find(&products).Error; err != nil {
		return 0, fmt.Errorf("failed to sample products: %w", err)
	}

	resynced := 0
	for i := range videos {
		if err := s.client.IndexDocument(ctx, IndexVideos, videos[i].ID, NewVideoDoc(&videos[i])); err != nil {
			logger.Log.Warn("Failed to reconcile video", logger.WithVideoID(videos[i].ID), zap.Error(err))
			continue
		}
		resynced++
	}
	for i := range products {
		if err := s.client.IndexDocument(ctx, IndexProducts, products[i].ID, NewProductDoc(&products[i])); err != nil {
			logger.Log.Warn("Failed to reconcile product", logger.WithProductID(products[i].ID), zap.Error(err))
			continue
		}
		resynced++
	}

	if resynced > 0 {
		s.invalidate(ctx, KindVideos)
		s.invalidate(ctx, KindProducts)
	}

	logger.Log.Info("Search reconciliation completed",
		zap.Int("videos", len(videos)),
		zap.Int("products", len(products)),
		zap.Int("resynced", resynced),
		logger.WithDuration(time.Since(start)),
	)
	return resynced, nil
}
