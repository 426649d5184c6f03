package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/metrics"
	"github.com/nextolk/backend/internal/models"
	"github.com/nextolk/backend/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kind selects what a search returns
type Kind string

const (
	KindVideos   Kind = IndexVideos
	KindProducts Kind = IndexProducts
)

// ParseKind maps the type query parameter. Empty means videos.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "video", "videos":
		return KindVideos, true
	case "product", "products":
		return KindProducts, true
	}
	return "", false
}

// Backend names reported on results and metrics
const (
	BackendElasticsearch = "elasticsearch"
	BackendDatabase      = "database"
)

// Results holds one page of hits, already loaded from the database
type Results struct {
	Kind     Kind
	Backend  string
	Total    int64
	Videos   []models.Video
	Products []models.Product
}

// Service answers searches from Elasticsearch when a client is configured
// and from SQL LIKE queries otherwise. Indexing calls are no-ops without a
// client.
type Service struct {
	client   *Client
	db       *gorm.DB
	cache    cache.Store
	cacheTTL time.Duration
}

// NewService builds a Service. client and store may be nil.
func NewService(client *Client, db *gorm.DB, store cache.Store) *Service {
	return &Service{
		client:   client,
		db:       db,
		cache:    store,
		cacheTTL: time.Minute,
	}
}

// Enabled reports whether Elasticsearch backs the service
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Search returns one page of kind matching query. Elasticsearch failures
// degrade to the database path.
func (s *Service) Search(ctx context.Context, kind Kind, query string, limit, offset int) (_ *Results, err error) {
	query = strings.TrimSpace(query)
	ctx, span := telemetry.TraceSearch(ctx, string(kind), query)
	defer func() { telemetry.EndSpan(span, err) }()
	res := &Results{Kind: kind}

	if s.Enabled() {
		page, err := s.searchIDs(ctx, kind, query, limit, offset)
		if err == nil {
			res.Backend = BackendElasticsearch
			span.SetAttributes(attribute.String("search.backend", res.Backend))
			res.Total = page.Total
			if err := s.loadByIDs(ctx, res, page.IDs); err != nil {
				return nil, err
			}
			metrics.Get().SearchRequestsTotal.WithLabelValues(string(kind), res.Backend).Inc()
			return res, nil
		}
		logger.Log.Warn("Elasticsearch search failed, using database", zap.String("index", string(kind)), zap.Error(err))
	}

	res.Backend = BackendDatabase
	span.SetAttributes(attribute.String("search.backend", res.Backend))
	if err := s.searchDB(ctx, res, query, limit, offset); err != nil {
		return nil, err
	}
	metrics.Get().SearchRequestsTotal.WithLabelValues(string(kind), res.Backend).Inc()
	return res, nil
}

func (s *Service) loadByIDs(ctx context.Context, res *Results, ids []uint) error {
	if len(ids) == 0 {
		res.Videos = []models.Video{}
		res.Products = []models.Product{}
		return nil
	}
	order := make(map[uint]int, len(ids))
	for i, id := range ids {
		order[id] = i
	}

	switch res.Kind {
	case KindProducts:
		var rows []models.Product
		if err := s.db.WithContext(ctx).Preload("Seller").Preload("Category").
			Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		res.Products = make([]models.Product, len(rows))
		sortByRank(rows, order, func(p models.Product) uint { return p.ID }, res.Products)
	default:
		var rows []models.Video
		if err := s.db.WithContext(ctx).Preload("User.Profile").
			Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to load videos: %w", err)
		}
		res.Videos = make([]models.Video, len(rows))
		sortByRank(rows, order, func(v models.Video) uint { return v.ID }, res.Videos)
	}
	return nil
}

// sortByRank copies rows into out in search rank order
func sortByRank[T any](rows []T, order map[uint]int, id func(T) uint, out []T) {
	ranked := make([]*T, len(order))
	for i := range rows {
		ranked[order[id(rows[i])]] = &rows[i]
	}
	n := 0
	for _, r := range ranked {
		if r != nil {
			out[n] = *r
			n++
		}
	}
}

// likePattern escapes LIKE wildcards and wraps q for a contains match
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

func (s *Service) searchDB(ctx context.Context, res *Results, query string, limit, offset int) error {
	db := s.db.WithContext(ctx)

	switch res.Kind {
	case KindProducts:
		q := db.Model(&models.Product{}).Where("is_available = ?", true)
		if query != "" {
			p := likePattern(query)
			q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, p, p)
		}
		if err := q.Count(&res.Total).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		res.Products = []models.Product{}
		return q.Preload("Seller").Preload("Category").
			Order("created_at DESC, id DESC").Limit(limit).Offset(offset).
			Find(&res.Products).Error

	default:
		q := db.Model(&models.Video{}).Where("processing_status = ?", models.ProcessingComplete)
		if query != "" {
			p := likePattern(strings.TrimPrefix(query, "#"))
			q = q.Where(`LOWER(caption) LIKE ? ESCAPE '\' OR LOWER(hashtags) LIKE ? ESCAPE '\' OR LOWER(audio_name) LIKE ? ESCAPE '\'`, p, p, p)
		}
		if err := q.Count(&res.Total).Error; err != nil {
			return fmt.Errorf("failed to count videos: %w", err)
		}
		res.Videos = []models.Video{}
		return q.Preload("User.Profile").
			Order("created_at DESC, id DESC").Limit(limit).Offset(offset).
			Find(&res.Videos).Error
	}
}

// IndexVideo indexes a completed video, or removes it from the index when it
// is not complete.
func (s *Service) IndexVideo(ctx context.Context, videoID uint) error {
	if !s.Enabled() {
		return nil
	}
	var video models.Video
	if err := s.db.WithContext(ctx).Preload("User").First(&video, videoID).Error; err != nil {
		return fmt.Errorf("failed to load video %d: %w", videoID, err)
	}
	defer s.invalidate(ctx, KindVideos)
	if video.ProcessingStatus != models.ProcessingComplete {
		return s.client.DeleteDocument(ctx, IndexVideos, video.ID)
	}
	return s.client.IndexDocument(ctx, IndexVideos, video.ID, NewVideoDoc(&video))
}

// IndexProduct indexes the current state of a product
func (s *Service) IndexProduct(ctx context.Context, productID uint) error {
	if !s.Enabled() {
		return nil
	}
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Seller").Preload("Category").First(&product, productID).Error; err != nil {
		return fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	defer s.invalidate(ctx, KindProducts)
	return s.client.IndexDocument(ctx, IndexProducts, product.ID, NewProductDoc(&product))
}

// DeleteVideo removes a video from the index
func (s *Service) DeleteVideo(ctx context.Context, videoID uint) error {
	if !s.Enabled() {
		return nil
	}
	defer s.invalidate(ctx, KindVideos)
	return s.client.DeleteDocument(ctx, IndexVideos, videoID)
}

// DeleteProduct removes a product from the index
func (s *Service) DeleteProduct(ctx context.Context, productID uint) error {
	if !s.Enabled() {
		return nil
	}
	defer s.invalidate(ctx, KindProducts)
	return s.client.DeleteDocument(ctx, IndexProducts, productID)
}
