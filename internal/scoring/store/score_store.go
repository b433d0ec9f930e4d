// Package store keeps score records in process memory in front of the
// durable repository.
package store

import (
	"context"
	"fmt"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/repository"
	"golang-stock-scorer/pkg/common"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
	"golang-stock-scorer/pkg/utils"

	"github.com/patrickmn/go-cache"
)

// durableWriteTimeout bounds a write that has already been committed to memory.
const durableWriteTimeout = 10 * time.Second

// ScoreStore is the two-level cache of score records.
type ScoreStore interface {
	Get(ctx context.Context, stockID string, date time.Time, category entity.Category) (*entity.ScoreRecord, bool)
	Put(ctx context.Context, record *entity.ScoreRecord) error
}

type scoreStore struct {
	memory  *cache.Cache
	repo    repository.ScoreRecordRepository
	logger  *logger.Logger
	metrics *metrics.Registry
}

// NewScoreStore creates a store whose memory entries never expire.
func NewScoreStore(repo repository.ScoreRecordRepository, log *logger.Logger, m *metrics.Registry) ScoreStore {
	return &scoreStore{
		memory:  cache.New(cache.NoExpiration, 0),
		repo:    repo,
		logger:  log,
		metrics: m,
	}
}

// ScoreKey is the cache key of a record.
func ScoreKey(stockID string, date time.Time, category entity.Category) string {
	return fmt.Sprintf("%s:%s:%s:%s", common.CacheKeyScorePrefix, stockID, utils.FormatDate(date), category)
}

// Get looks in memory first, then in the durable store. A durable hit is
// copied into memory. A durable failure is logged and reported as a miss.
func (s *scoreStore) Get(ctx context.Context, stockID string, date time.Time, category entity.Category) (*entity.ScoreRecord, bool) {
	key := ScoreKey(stockID, date, category)
	if v, ok := s.memory.Get(key); ok {
		s.metrics.CacheHits.WithLabelValues("memory", string(category)).Inc()
		return v.(*entity.ScoreRecord).Clone(), true
	}

	record, err := s.repo.Find(ctx, stockID, date, category)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("find").Inc()
		s.logger.WarnContext(ctx, "Durable score store unavailable, treating as miss",
			logger.StringField("key", key),
			logger.ErrorField(err),
		)
		return nil, false
	}
	if record == nil {
		s.metrics.CacheMisses.WithLabelValues(string(category)).Inc()
		return nil, false
	}

	s.metrics.CacheHits.WithLabelValues("durable", string(category)).Inc()
	s.memory.Set(key, record.Clone(), cache.NoExpiration)
	return record, true
}

// Put overwrites the memory entry and upserts the durable row once. A
// durable failure is logged and dropped; the memory entry stays.
func (s *scoreStore) Put(ctx context.Context, record *entity.ScoreRecord) error {
	if record == nil || record.StockID == "" || record.RecordDate.IsZero() || !record.Category.Valid() {
		return fmt.Errorf("invalid score record key")
	}
	key := ScoreKey(record.StockID, record.RecordDate, record.Category)
	s.memory.Set(key, record.Clone(), cache.NoExpiration)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durableWriteTimeout)
	defer cancel()
	if err := s.repo.Upsert(writeCtx, record.Clone()); err != nil {
		s.metrics.StoreErrors.WithLabelValues("upsert").Inc()
		s.logger.ErrorContext(ctx, "Failed to persist score record",
			logger.StringField("key", key),
			logger.ErrorField(err),
		)
	}
	return nil
}
