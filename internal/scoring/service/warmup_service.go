package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/telegram"
	"golang-stock-scorer/pkg/utils"

	"github.com/robfig/cron/v3"
)

// WarmupService precomputes the scores of a watchlist so the first request
// of the day is a cache hit.
type WarmupService interface {
	Start(ctx context.Context) error
	Run(ctx context.Context) telegram.WarmupSummary
}

// WarmupConfig lists what to precompute and when.
type WarmupConfig struct {
	Cron          string
	Watchlist     []string
	Categories    []entity.Category
	MaxConcurrent int
}

type warmupService struct {
	scores   ScoreService
	notifier telegram.Notifier
	cfg      WarmupConfig
	logger   *logger.Logger
}

// NewWarmupService creates the warmup job. notifier may be nil.
func NewWarmupService(scores ScoreService, notifier telegram.Notifier, cfg WarmupConfig, log *logger.Logger) WarmupService {
	if len(cfg.Categories) == 0 {
		cfg.Categories = entity.Categories
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &warmupService{scores: scores, notifier: notifier, cfg: cfg, logger: log}
}

// Start runs the job on its cron schedule until ctx is done.
func (s *warmupService) Start(ctx context.Context) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(utils.GetTaipeiTimeLocation()))
	if _, err := c.AddFunc(s.cfg.Cron, func() { s.Run(ctx) }); err != nil {
		return err
	}

	s.logger.Info("Warmup scheduled",
		logger.StringField("cron", s.cfg.Cron),
		logger.IntField("stocks", len(s.cfg.Watchlist)),
	)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Warmup service stopping")
	return nil
}

// Run computes every (stock, category) pair of the watchlist once.
func (s *warmupService) Run(ctx context.Context) telegram.WarmupSummary {
	summary := telegram.WarmupSummary{StartedAt: utils.TimeNowTaipei()}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, s.cfg.MaxConcurrent)
	)
watchlist:
	for _, stockID := range s.cfg.Watchlist {
		for _, category := range s.cfg.Categories {
			if !utils.ShouldContinue(ctx, s.logger) {
				break watchlist
			}
			wg.Add(1)
			utils.GoSafe(func() {
				defer wg.Done()
				semaphore <- struct{}{}
				defer func() { <-semaphore }()

				rec, err := s.scores.GetOrComputeScore(ctx, stockID, category, nil)
				item := telegram.WarmupItem{StockID: stockID, Category: string(category)}
				switch {
				case err == nil:
					item.Status = telegram.WarmupOK
					item.Score = rec.Score
					item.DirectionLabel = rec.DirectionLabel
				case errors.Is(err, dto.ErrNoData):
					item.Status = telegram.WarmupNoData
				default:
					item.Status = telegram.WarmupFailed
					item.Error = err.Error()
					s.logger.WarnContext(ctx, "Warmup failed",
						logger.StringField("stock_id", stockID),
						logger.StringField("category", string(category)),
						logger.ErrorField(err),
					)
				}
				mu.Lock()
				summary.Items = append(summary.Items, item)
				mu.Unlock()
			})
		}
	}
	wg.Wait()
	summary.Duration = time.Since(summary.StartedAt)

	s.logger.Info("Warmup finished",
		logger.IntField("ok", summary.Count(telegram.WarmupOK)),
		logger.IntField("no_data", summary.Count(telegram.WarmupNoData)),
		logger.IntField("failed", summary.Count(telegram.WarmupFailed)),
	)

	if s.notifier != nil {
		for _, msg := range telegram.FormatWarmupSummary(summary) {
			if err := s.notifier.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send warmup summary", logger.ErrorField(err))
				break
			}
		}
	}
	return summary
}
