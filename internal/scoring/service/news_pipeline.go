package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/repository"
	"golang-stock-scorer/internal/scoring/scorer"
	"golang-stock-scorer/internal/scoring/store"
	"golang-stock-scorer/pkg/common"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/utils"
)

// newsPipeline classifies the latest articles of a stock. Each article is
// cached by URL and reused once it has content and all three probabilities.
type newsPipeline struct {
	feed          repository.NewsFeedRepository
	reader        repository.ArticleReaderRepository
	sentiment     repository.SentimentRepository
	store         store.NewsStore
	scorer        *scorer.NewsScorer
	limit         int
	maxConcurrent int
	logger        *logger.Logger
}

// NewsAnalyzer resolves the sentiment of a single article.
type NewsAnalyzer interface {
	Analyze(ctx context.Context, article dto.Article) (*entity.NewsSentiment, error)
}

// NewsPipeline is the news ScorePipeline that also analyzes single articles.
type NewsPipeline interface {
	ScorePipeline
	NewsAnalyzer
}

func NewNewsPipeline(
	feed repository.NewsFeedRepository,
	reader repository.ArticleReaderRepository,
	sentiment repository.SentimentRepository,
	newsStore store.NewsStore,
	limit, maxConcurrent int,
	log *logger.Logger,
) NewsPipeline {
	if limit <= 0 {
		limit = common.DefaultNewsArticleLimit
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &newsPipeline{
		feed:          feed,
		reader:        reader,
		sentiment:     sentiment,
		store:         newsStore,
		scorer:        scorer.NewNewsScorer(),
		limit:         limit,
		maxConcurrent: maxConcurrent,
		logger:        log,
	}
}

func (p *newsPipeline) GetCategory() entity.Category { return entity.CategoryNews }

// Execute never returns ErrNoData: an empty feed scores as the no-data record.
func (p *newsPipeline) Execute(ctx context.Context, stock entity.Stock, _ time.Time) (*dto.ScoreResult, error) {
	articles, err := p.feed.ListArticles(ctx, stock, p.limit)
	if err != nil {
		p.logger.WarnContext(ctx, "News feed unavailable", logger.StringField("stock_id", stock.Code), logger.ErrorField(err))
		articles = nil
	}

	results := make([]dto.ArticleSentiment, len(articles))
	semaphore := make(chan struct{}, p.maxConcurrent)
	var wg sync.WaitGroup
	for i, article := range articles {
		if !utils.ShouldContinue(ctx, p.logger) {
			break
		}
		results[i].Article = article
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			record, err := p.Analyze(ctx, article)
			if err != nil {
				p.logger.WarnContext(ctx, "Article sentiment unavailable",
					logger.StringField("stock_id", stock.Code),
					logger.StringField("url", article.URL),
					logger.ErrorField(err),
				)
			}
			if record == nil {
				return
			}
			results[i].Content = record.Content
			if record.Complete() {
				results[i].Prediction = &dto.SentimentPrediction{
					Positive: *record.Positive,
					Neutral:  *record.Neutral,
					Negative: *record.Negative,
				}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := p.scorer.Score(results)
	return &result, nil
}

// Analyze returns the cached sentiment of an article, reading and
// classifying only what is still missing. A partial record with its
// content may be returned together with an error.
func (p *newsPipeline) Analyze(ctx context.Context, article dto.Article) (*entity.NewsSentiment, error) {
	if article.URL == "" {
		return nil, fmt.Errorf("%w: empty article url", dto.ErrInputUnavailable)
	}
	cached, ok := p.store.Get(ctx, article.URL)
	if ok && cached.Complete() {
		return cached, nil
	}

	record := &entity.NewsSentiment{URL: article.URL}
	if article.Source != "" {
		record.Source = utils.ToPointer(article.Source)
	}
	if article.Title != "" {
		record.Title = utils.ToPointer(article.Title)
	}
	if ok {
		record.Merge(cached)
	}

	if record.Content == nil {
		text, err := p.reader.Read(ctx, article.URL)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, fmt.Errorf("%w: no readable text at %s", dto.ErrInputUnavailable, article.URL)
		}
		record.Content = utils.ToPointer(text)
	}

	prediction, err := p.sentiment.Predict(ctx, *record.Content)
	if err != nil {
		_ = p.store.Put(ctx, record)
		return record, err
	}
	record.Merge(&entity.NewsSentiment{
		Positive: utils.ToPointer(prediction.Positive),
		Neutral:  utils.ToPointer(prediction.Neutral),
		Negative: utils.ToPointer(prediction.Negative),
	})

	if err := p.store.Put(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
