package repository

import (
	"context"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
)

// PriceRepository serves daily OHLCV bars.
type PriceRepository interface {
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]dto.PriceBar, error)
}

// IndexRepository lists the dates an index traded on.
type IndexRepository interface {
	GetTradingDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error)
}

// ChipRepository serves institutional, broker and margin series.
type ChipRepository interface {
	GetInstitutionalFlows(ctx context.Context, stockID string, start, end time.Time) ([]dto.InstitutionalFlow, error)
	GetMainForce(ctx context.Context, stockID string, start, end time.Time) ([]dto.MainForceFlow, error)
	GetMarginTrading(ctx context.Context, stockID string, start, end time.Time) ([]dto.MarginTrading, error)
}

// FundamentalsRepository serves the latest fundamentals snapshot.
type FundamentalsRepository interface {
	GetFundamentals(ctx context.Context, stockID string) (*dto.Fundamentals, error)
}

// StockDirectoryRepository resolves a code or name to a listed stock.
type StockDirectoryRepository interface {
	Lookup(ctx context.Context, keyword string) (*entity.Stock, error)
}

// NewsFeedRepository lists recent articles about a stock.
type NewsFeedRepository interface {
	ListArticles(ctx context.Context, stock entity.Stock, limit int) ([]dto.Article, error)
}

// ArticleReaderRepository extracts the readable text of an article.
type ArticleReaderRepository interface {
	Read(ctx context.Context, url string) (string, error)
}

// SentimentRepository classifies a text into positive, neutral and negative probabilities.
type SentimentRepository interface {
	Predict(ctx context.Context, text string) (*dto.SentimentPrediction, error)
}

// InsightRepository writes a short natural-language summary of a score.
type InsightRepository interface {
	GenerateInsight(ctx context.Context, facts dto.InsightFacts) (string, error)
}

// ScoreRecordRepository is the durable store of score records.
type ScoreRecordRepository interface {
	Upsert(ctx context.Context, record *entity.ScoreRecord) error
	Find(ctx context.Context, stockID string, date time.Time, category entity.Category) (*entity.ScoreRecord, error)
	FindRange(ctx context.Context, stockID string, category entity.Category, from, to time.Time) ([]entity.ScoreRecord, error)
}

// NewsSentimentRepository is the durable store of article sentiments.
type NewsSentimentRepository interface {
	Upsert(ctx context.Context, record *entity.NewsSentiment) error
	FindByURL(ctx context.Context, url string) (*entity.NewsSentiment, error)
}
