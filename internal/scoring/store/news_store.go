package store

import (
	"context"
	"fmt"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/repository"
	"golang-stock-scorer/pkg/common"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"

	"github.com/patrickmn/go-cache"
)

// NewsStore is the two-level cache of article sentiments keyed by URL.
type NewsStore interface {
	Get(ctx context.Context, url string) (*entity.NewsSentiment, bool)
	Put(ctx context.Context, record *entity.NewsSentiment) error
}

type newsStore struct {
	memory  *cache.Cache
	repo    repository.NewsSentimentRepository
	logger  *logger.Logger
	metrics *metrics.Registry
}

func NewNewsStore(repo repository.NewsSentimentRepository, log *logger.Logger, m *metrics.Registry) NewsStore {
	return &newsStore{
		memory:  cache.New(cache.NoExpiration, 0),
		repo:    repo,
		logger:  log,
		metrics: m,
	}
}

func newsKey(url string) string {
	return common.CacheKeyNewsPrefix + ":" + url
}

func (s *newsStore) Get(ctx context.Context, url string) (*entity.NewsSentiment, bool) {
	key := newsKey(url)
	if v, ok := s.memory.Get(key); ok {
		s.metrics.CacheHits.WithLabelValues("memory", string(entity.CategoryNews)).Inc()
		return v.(*entity.NewsSentiment).Clone(), true
	}

	record, err := s.repo.FindByURL(ctx, url)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("find_news").Inc()
		s.logger.WarnContext(ctx, "Durable news store unavailable, treating as miss",
			logger.StringField("url", url),
			logger.ErrorField(err),
		)
		return nil, false
	}
	if record == nil {
		return nil, false
	}
	s.memory.Set(key, record.Clone(), cache.NoExpiration)
	return record, true
}

// Put merges into any cached entry without overwriting stored fields, then
// upserts with the same fill-only-NULL semantics.
func (s *newsStore) Put(ctx context.Context, record *entity.NewsSentiment) error {
	if record == nil || record.URL == "" {
		return fmt.Errorf("invalid news sentiment key")
	}
	key := newsKey(record.URL)

	merged := record.Clone()
	if v, ok := s.memory.Get(key); ok {
		merged = v.(*entity.NewsSentiment).Clone()
		merged.Merge(record)
	}
	s.memory.Set(key, merged, cache.NoExpiration)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durableWriteTimeout)
	defer cancel()
	if err := s.repo.Upsert(writeCtx, record.Clone()); err != nil {
		s.metrics.StoreErrors.WithLabelValues("upsert_news").Inc()
		s.logger.ErrorContext(ctx, "Failed to persist news sentiment",
			logger.StringField("url", record.URL),
			logger.ErrorField(err),
		)
	}
	return nil
}
