package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/indicator"
	"golang-stock-scorer/internal/scoring/repository"
	"golang-stock-scorer/internal/scoring/scorer"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/utils"
)

// ScorePipeline gathers the inputs of one category and scores them.
// ErrNoData is returned when every input is unavailable.
type ScorePipeline interface {
	Execute(ctx context.Context, stock entity.Stock, date time.Time) (*dto.ScoreResult, error)
	GetCategory() entity.Category
}

// fundamentalsPipeline scores the latest fundamentals snapshot.
type fundamentalsPipeline struct {
	repo   repository.FundamentalsRepository
	scorer *scorer.FundamentalsScorer
	logger *logger.Logger
}

func NewFundamentalsPipeline(repo repository.FundamentalsRepository, log *logger.Logger) ScorePipeline {
	return &fundamentalsPipeline{repo: repo, scorer: scorer.NewFundamentalsScorer(), logger: log}
}

func (p *fundamentalsPipeline) GetCategory() entity.Category { return entity.CategoryFundamentals }

func (p *fundamentalsPipeline) Execute(ctx context.Context, stock entity.Stock, _ time.Time) (*dto.ScoreResult, error) {
	if stock.Market == entity.MarketIndex {
		return nil, fmt.Errorf("%w: %s has no fundamentals", dto.ErrNoData, stock.Code)
	}
	f, err := p.repo.GetFundamentals(ctx, stock.Code)
	if err != nil {
		p.logger.WarnContext(ctx, "Fundamentals unavailable", logger.StringField("stock_id", stock.Code), logger.ErrorField(err))
		return nil, fmt.Errorf("%w: fundamentals of %s", dto.ErrNoData, stock.Code)
	}
	if f == nil || !f.Available() {
		return nil, fmt.Errorf("%w: fundamentals of %s", dto.ErrNoData, stock.Code)
	}
	result := p.scorer.Score(*f)
	return &result, nil
}

// chipPipeline joins prices, institutional flows, main force and margin
// over the lookback window and scores the latest aligned day.
type chipPipeline struct {
	prices       repository.PriceRepository
	chip         repository.ChipRepository
	scorer       *scorer.ChipScorer
	lookbackDays int
	logger       *logger.Logger
}

func NewChipPipeline(prices repository.PriceRepository, chip repository.ChipRepository, lookbackDays int, log *logger.Logger) ScorePipeline {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &chipPipeline{prices: prices, chip: chip, scorer: scorer.NewChipScorer(), lookbackDays: lookbackDays, logger: log}
}

func (p *chipPipeline) GetCategory() entity.Category { return entity.CategoryChip }

func (p *chipPipeline) Execute(ctx context.Context, stock entity.Stock, date time.Time) (*dto.ScoreResult, error) {
	if stock.Market == entity.MarketIndex {
		return nil, fmt.Errorf("%w: index %s has no chip data", dto.ErrNoData, stock.Code)
	}
	start := date.AddDate(0, 0, -p.lookbackDays)

	var (
		series dto.ChipSeries
		wg     sync.WaitGroup
	)
	fetch := func(name string, fn func() error) {
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			if err := fn(); err != nil {
				p.logger.WarnContext(ctx, "Chip input unavailable",
					logger.StringField("stock_id", stock.Code),
					logger.StringField("input", name),
					logger.ErrorField(err),
				)
			}
		})
	}
	fetch("prices", func() (err error) {
		series.Prices, err = p.prices.GetDailyBars(ctx, stock.Symbol(), start, date)
		return err
	})
	fetch("institutional", func() (err error) {
		series.Institutional, err = p.chip.GetInstitutionalFlows(ctx, stock.Code, start, date)
		return err
	})
	fetch("main_force", func() (err error) {
		series.MainForce, err = p.chip.GetMainForce(ctx, stock.Code, start, date)
		return err
	})
	fetch("margin", func() (err error) {
		series.Margin, err = p.chip.GetMarginTrading(ctx, stock.Code, start, date)
		return err
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(series.Institutional) == 0 && len(series.MainForce) == 0 && len(series.Margin) == 0 {
		return nil, fmt.Errorf("%w: chip inputs of %s", dto.ErrNoData, stock.Code)
	}

	rows := indicator.BuildChipTable(series)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no aligned chip rows for %s", dto.ErrNoData, stock.Code)
	}
	result := p.scorer.Score(rows)
	return &result, nil
}

// technicalPipeline computes indicators from daily bars and scores the
// latest row against the one before it.
type technicalPipeline struct {
	prices       repository.PriceRepository
	scorer       *scorer.TechnicalScorer
	lookbackDays int
	opts         indicator.Options
	logger       *logger.Logger
}

func NewTechnicalPipeline(prices repository.PriceRepository, lookbackDays int, opts indicator.Options, log *logger.Logger) ScorePipeline {
	if lookbackDays <= 0 {
		lookbackDays = 180
	}
	if opts.BiasPeriod <= 0 {
		opts = indicator.DefaultOptions
	}
	return &technicalPipeline{prices: prices, scorer: scorer.NewTechnicalScorer(), lookbackDays: lookbackDays, opts: opts, logger: log}
}

func (p *technicalPipeline) GetCategory() entity.Category { return entity.CategoryTechnical }

func (p *technicalPipeline) Execute(ctx context.Context, stock entity.Stock, date time.Time) (*dto.ScoreResult, error) {
	bars, err := p.prices.GetDailyBars(ctx, stock.Symbol(), date.AddDate(0, 0, -p.lookbackDays), date)
	if err != nil {
		p.logger.WarnContext(ctx, "Price series unavailable", logger.StringField("stock_id", stock.Code), logger.ErrorField(err))
		return nil, fmt.Errorf("%w: prices of %s", dto.ErrNoData, stock.Code)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: prices of %s", dto.ErrNoData, stock.Code)
	}

	rows := indicator.BuildTechnicalTable(bars, p.opts)
	result := p.scorer.Score(rows)
	if n := len(rows); n > 0 {
		d := rows[n-1].Date
		result.DataDate = &d
	}
	return &result, nil
}
