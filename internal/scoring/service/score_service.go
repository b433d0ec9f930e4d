package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/repository"
	"golang-stock-scorer/internal/scoring/scorer"
	"golang-stock-scorer/internal/scoring/store"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
	"golang-stock-scorer/pkg/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ErrInsightUnavailable is returned when no insight generator is configured.
var ErrInsightUnavailable = errors.New("insight generator not configured")

// DateResolver assigns the trading date of a request.
type DateResolver interface {
	Resolve(ctx context.Context, category entity.Category, now time.Time, explicit *time.Time) (time.Time, error)
}

// ScoreService computes and caches daily category scores.
type ScoreService interface {
	GetOrComputeScore(ctx context.Context, stockID string, category entity.Category, explicit *time.Time) (*entity.ScoreRecord, error)
	GetOrComputeNewsSentiment(ctx context.Context, url string) (*entity.NewsSentiment, error)
	AttachInsight(ctx context.Context, stockID string, category entity.Category, explicit *time.Time) (*entity.ScoreRecord, error)
	History(ctx context.Context, stockID string, category entity.Category, from, to time.Time) ([]entity.ScoreRecord, error)
}

// Options tunes the score service.
type Options struct {
	ComputeTimeout time.Duration
	InsightEnabled bool
	Now            func() time.Time
}

type scoreService struct {
	directory repository.StockDirectoryRepository
	resolver  DateResolver
	store     store.ScoreStore
	history   repository.ScoreRecordRepository
	pipelines map[entity.Category]ScorePipeline
	news      NewsAnalyzer
	insight   repository.InsightRepository
	opts      Options
	flights   *flightGroup
	logger    *logger.Logger
	metrics   *metrics.Registry
}

// NewScoreService wires the pipelines into the orchestrator. news and
// insight may be nil.
func NewScoreService(
	directory repository.StockDirectoryRepository,
	resolver DateResolver,
	scoreStore store.ScoreStore,
	history repository.ScoreRecordRepository,
	pipelines []ScorePipeline,
	news NewsAnalyzer,
	insight repository.InsightRepository,
	opts Options,
	log *logger.Logger,
	m *metrics.Registry,
) ScoreService {
	if opts.Now == nil {
		opts.Now = utils.TimeNowTaipei
	}
	if opts.ComputeTimeout <= 0 {
		opts.ComputeTimeout = time.Minute
	}
	byCategory := make(map[entity.Category]ScorePipeline, len(pipelines))
	for _, p := range pipelines {
		byCategory[p.GetCategory()] = p
	}
	return &scoreService{
		directory: directory,
		resolver:  resolver,
		store:     scoreStore,
		history:   history,
		pipelines: byCategory,
		news:      news,
		insight:   insight,
		opts:      opts,
		flights:   newFlightGroup(),
		logger:    log,
		metrics:   m,
	}
}

// StripSuffix removes the exchange suffix of a symbol, 2330.TW becoming 2330.
func StripSuffix(stockID string) string {
	stockID = strings.TrimSpace(stockID)
	if strings.HasPrefix(stockID, "^") {
		return strings.ToUpper(stockID)
	}
	if i := strings.IndexByte(stockID, '.'); i > 0 {
		return stockID[:i]
	}
	return stockID
}

// GetOrComputeScore returns the record of (stock, trading date, category),
// computing and storing it on a miss. Concurrent misses for one key share
// a single computation.
func (s *scoreService) GetOrComputeScore(ctx context.Context, stockID string, category entity.Category, explicit *time.Time) (*entity.ScoreRecord, error) {
	pipeline, ok := s.pipelines[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dto.ErrInvalidCategory, category)
	}

	stock, err := s.directory.Lookup(ctx, StripSuffix(stockID))
	if err != nil {
		return nil, err
	}

	date, err := s.resolver.Resolve(ctx, category, s.opts.Now(), explicit)
	if err != nil {
		return nil, err
	}

	if rec, ok := s.store.Get(ctx, stock.Code, date, category); ok {
		return rec, nil
	}

	key := store.ScoreKey(stock.Code, date, category)
	v, err := s.flights.Do(ctx, key, func(f *flight) (interface{}, error) {
		if rec, ok := s.store.Get(f.ctx, stock.Code, date, category); ok {
			return rec, nil
		}
		return s.compute(f, pipeline, *stock, date)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.ScoreRecord).Clone(), nil
}

// compute runs on the flight context, so one waiter going away does not fail
// the others. The record is stored only while some waiter still wants it.
func (s *scoreService) compute(f *flight, pipeline ScorePipeline, stock entity.Stock, date time.Time) (*entity.ScoreRecord, error) {
	ctx := f.ctx
	category := pipeline.GetCategory()
	fields := []zap.Field{
		logger.StringField("stock_id", stock.Code),
		logger.StringField("category", string(category)),
		logger.StringField("record_date", utils.FormatDate(date)),
	}

	computeCtx, cancel := context.WithTimeout(ctx, s.opts.ComputeTimeout)
	defer cancel()

	started := time.Now()
	result, err := s.execute(computeCtx, pipeline, stock, date)
	s.metrics.ComputeDuration.WithLabelValues(string(category)).Observe(time.Since(started).Seconds())

	switch {
	case err == nil:
	case errors.Is(err, dto.ErrNoData):
		s.metrics.ComputeFailures.WithLabelValues(string(category), "no_data").Inc()
		s.logger.InfoContext(ctx, "Nothing to score", append(fields, logger.ErrorField(err))...)
		return nil, err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.metrics.ComputeFailures.WithLabelValues(string(category), "canceled").Inc()
		return nil, err
	default:
		s.metrics.ComputeFailures.WithLabelValues(string(category), "error").Inc()
		s.logger.ErrorContext(ctx, "Failed to compute score", append(fields, logger.ErrorField(err))...)
		var ce *dto.ComputeError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &dto.ComputeError{StockID: stock.Code, Category: string(category), Err: err}
	}

	record, err := toRecord(stock.Code, date, category, result)
	if err != nil {
		return nil, &dto.ComputeError{StockID: stock.Code, Category: string(category), Err: err}
	}

	if s.opts.InsightEnabled && s.insight != nil {
		if text, err := s.generateInsight(ctx, stock, record); err == nil {
			record.Insight = &text
		} else {
			s.logger.WarnContext(ctx, "Insight unavailable", append(fields, logger.ErrorField(err))...)
		}
	}

	if f.abandoned() {
		s.metrics.ComputeFailures.WithLabelValues(string(category), "canceled").Inc()
		return nil, context.Canceled
	}
	if err := s.store.Put(ctx, record); err != nil {
		return nil, &dto.ComputeError{StockID: stock.Code, Category: string(category), Err: err}
	}

	s.logger.InfoContext(ctx, "Score computed", append(fields, logger.Field("score", record.Score))...)
	return record, nil
}

// execute runs the pipeline and turns a panic into a ComputeError.
func (s *scoreService) execute(ctx context.Context, pipeline ScorePipeline, stock entity.Stock, date time.Time) (result *dto.ScoreResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Recovered from panic in score pipeline",
				logger.StringField("stock_id", stock.Code),
				logger.StringField("category", string(pipeline.GetCategory())),
				logger.StringField("stack", string(debug.Stack())),
			)
			result = nil
			err = &dto.ComputeError{StockID: stock.Code, Category: string(pipeline.GetCategory()), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	result, err = pipeline.Execute(ctx, stock, date)
	if err == nil && result == nil {
		err = fmt.Errorf("pipeline returned no result")
	}
	return result, err
}

func toRecord(stockID string, date time.Time, category entity.Category, result *dto.ScoreResult) (*entity.ScoreRecord, error) {
	detail := result.Detail
	if detail == nil {
		detail = map[string]interface{}{}
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score detail: %w", err)
	}

	positive, negative := scorer.Factors(result.SubScores)
	if positive == nil {
		positive = []string{}
	}
	if negative == nil {
		negative = []string{}
	}
	return &entity.ScoreRecord{
		StockID:         stockID,
		RecordDate:      date,
		Category:        category,
		Score:           result.Score,
		Direction:       result.Direction,
		DirectionLabel:  result.DirectionLabel,
		Detail:          datatypes.JSON(raw),
		PositiveFactors: positive,
		NegativeFactors: negative,
	}, nil
}

// AttachInsight returns the record with a generated insight, generating
// and storing it once.
func (s *scoreService) AttachInsight(ctx context.Context, stockID string, category entity.Category, explicit *time.Time) (*entity.ScoreRecord, error) {
	if s.insight == nil {
		return nil, ErrInsightUnavailable
	}
	record, err := s.GetOrComputeScore(ctx, stockID, category, explicit)
	if err != nil {
		return nil, err
	}
	if record.Insight != nil {
		return record, nil
	}

	stock, err := s.directory.Lookup(ctx, record.StockID)
	if err != nil {
		return nil, err
	}
	text, err := s.generateInsight(ctx, *stock, record)
	if err != nil {
		return nil, fmt.Errorf("failed to generate insight: %w", err)
	}
	record.Insight = &text
	if err := s.store.Put(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *scoreService) generateInsight(ctx context.Context, stock entity.Stock, record *entity.ScoreRecord) (string, error) {
	var detail map[string]interface{}
	if len(record.Detail) > 0 {
		if err := json.Unmarshal(record.Detail, &detail); err != nil {
			return "", fmt.Errorf("failed to decode score detail: %w", err)
		}
	}
	return s.insight.GenerateInsight(ctx, dto.InsightFacts{
		StockID:         record.StockID,
		StockName:       stock.Name,
		Category:        string(record.Category),
		Date:            utils.FormatDate(record.RecordDate),
		TotalScore:      record.Score,
		DirectionLabel:  record.DirectionLabel,
		PositiveFactors: record.PositiveFactors,
		NegativeFactors: record.NegativeFactors,
		Detail:          detail,
	})
}

// GetOrComputeNewsSentiment returns the cached sentiment of one article URL.
func (s *scoreService) GetOrComputeNewsSentiment(ctx context.Context, url string) (*entity.NewsSentiment, error) {
	if s.news == nil {
		return nil, fmt.Errorf("%w: news sentiment", dto.ErrNoData)
	}
	v, err := s.flights.Do(ctx, "news:"+url, func(f *flight) (interface{}, error) {
		return s.news.Analyze(f.ctx, dto.Article{URL: url})
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.NewsSentiment).Clone(), nil
}

// History lists stored records of one stock and category.
func (s *scoreService) History(ctx context.Context, stockID string, category entity.Category, from, to time.Time) ([]entity.ScoreRecord, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %s", dto.ErrInvalidCategory, category)
	}
	if to.Before(from) {
		from, to = to, from
	}
	return s.history.FindRange(ctx, StripSuffix(stockID), category, from, to)
}
