package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/indicator"
	"golang-stock-scorer/internal/scoring/repository"
	"golang-stock-scorer/internal/scoring/service"
	"golang-stock-scorer/internal/scoring/store"
	"golang-stock-scorer/internal/scoring/tradingday"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
	"golang-stock-scorer/pkg/postgres"
	"golang-stock-scorer/pkg/redis"
	"golang-stock-scorer/pkg/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/genai"
)

// app holds the wired services shared by the serve and warmup commands.
type app struct {
	scores  service.ScoreService
	warmup  service.WarmupService
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}
	m := metrics.NewRegistry(reg)

	// Initialize database
	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	// Initialize repositories
	yahoo := repository.NewYahooFinanceRepository(cfg.YahooFinance, appLogger, m)
	var calendar repository.IndexRepository = yahoo
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Warn("Redis unavailable, trading calendar is not shared", logger.ErrorField(err))
		} else {
			a.closers = append(a.closers, func() { _ = redisClient.Close() })
			calendar = repository.NewTradingCalendarRepository(redisClient.Client, yahoo, appLogger)
		}
	}
	finmind := repository.NewFinMindRepository(cfg.FinMind, appLogger, m)
	directory := repository.NewStockListRepository(cfg.StockList, appLogger, m)
	feed := repository.NewNewsFeedRepository(cfg.NewsFeed, appLogger, m)
	reader := repository.NewArticleReaderRepository(cfg.NewsFeed, appLogger, m)
	sentiment := repository.NewSentimentRepository(cfg.Sentiment, appLogger, m)
	scoreRepo := repository.NewScoreRecordRepository(db.DB)
	newsRepo := repository.NewNewsSentimentRepository(db.DB)

	var insight repository.InsightRepository
	if cfg.Gemini.APIKey != "" {
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize genai client: %w", err)
		}
		insight = repository.NewGeminiInsightRepository(cfg.Gemini, appLogger, genaiClient.Models)
	}

	// Initialize stores
	scoreStore := store.NewScoreStore(scoreRepo, appLogger, m)
	newsStore := store.NewNewsStore(newsRepo, appLogger, m)

	resolverCfg, err := resolverConfig(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	resolver := tradingday.NewResolver(resolverCfg, calendar, appLogger)

	// Initialize pipelines
	news := service.NewNewsPipeline(feed, reader, sentiment, newsStore,
		cfg.Scoring.NewsArticleLimit, cfg.NewsFeed.MaxConcurrent, appLogger)
	pipelines := []service.ScorePipeline{
		service.NewFundamentalsPipeline(finmind, appLogger),
		service.NewChipPipeline(yahoo, finmind, cfg.Scoring.ChipLookbackDays, appLogger),
		service.NewTechnicalPipeline(yahoo, cfg.Scoring.TechnicalLookbackDays,
			indicator.Options{BiasPeriod: cfg.Scoring.BiasPeriod}, appLogger),
		news,
	}

	a.scores = service.NewScoreService(directory, resolver, scoreStore, scoreRepo, pipelines, news, insight,
		service.Options{
			ComputeTimeout: cfg.Scoring.ComputeTimeout,
			InsightEnabled: cfg.Scoring.InsightEnabled && insight != nil,
		}, appLogger, m)

	var notifier telegram.Notifier
	if n, err := telegram.NewClient(telegram.Config{BotToken: cfg.Telegram.BotToken, ChatID: cfg.Telegram.ChatID}); err == nil {
		notifier = n
	} else {
		appLogger.Info("Telegram notifier disabled", logger.ErrorField(err))
	}

	categories, err := parseCategories(cfg.Warmup.Categories)
	if err != nil {
		return nil, err
	}
	a.warmup = service.NewWarmupService(a.scores, notifier, service.WarmupConfig{
		Cron:          cfg.Warmup.Cron,
		Watchlist:     cfg.Warmup.Watchlist,
		Categories:    categories,
		MaxConcurrent: cfg.Warmup.MaxConcurrent,
	}, appLogger)

	return a, nil
}

func resolverConfig(cfg config.Scoring) (tradingday.Config, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return tradingday.Config{}, fmt.Errorf("invalid scoring timezone %q: %w", cfg.Timezone, err)
	}
	cutoffs := make(map[entity.Category]int, len(tradingday.DefaultCutoffHours))
	for c, h := range tradingday.DefaultCutoffHours {
		cutoffs[c] = h
	}
	for name, hour := range cfg.CutoffHours {
		c := entity.Category(strings.ToLower(name))
		if !c.Valid() {
			return tradingday.Config{}, fmt.Errorf("unknown cutoff category %q", name)
		}
		if hour < 0 || hour > 23 {
			return tradingday.Config{}, fmt.Errorf("cutoff hour of %s out of range: %d", name, hour)
		}
		cutoffs[c] = hour
	}
	return tradingday.Config{
		Location:        loc,
		CutoffHours:     cutoffs,
		ReferenceSymbol: cfg.ReferenceIndex,
		LookbackDays:    cfg.CalendarLookbackDays,
	}, nil
}

func parseCategories(names []string) ([]entity.Category, error) {
	out := make([]entity.Category, 0, len(names))
	for _, name := range names {
		c := entity.Category(strings.ToLower(strings.TrimSpace(name)))
		if !c.Valid() {
			return nil, fmt.Errorf("unknown warmup category %q", name)
		}
		out = append(out, c)
	}
	return out, nil
}
