package repository

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"

	"github.com/mmcdole/gofeed"
)

type newsFeedRepository struct {
	cfg    config.NewsFeed
	log    *logger.Logger
	client *upstreamClient
}

// NewNewsFeedRepository lists articles from the Google News RSS search.
func NewNewsFeedRepository(cfg config.NewsFeed, log *logger.Logger, m *metrics.Registry) NewsFeedRepository {
	return &newsFeedRepository{
		cfg:    cfg,
		log:    log,
		client: newUpstreamClient("news_feed", config.Upstream{Timeout: cfg.Timeout}, log, m),
	}
}

func (r *newsFeedRepository) feedURL(stock entity.Stock) string {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(stock.Name+" "+stock.Code))
	q.Set("hl", r.cfg.Language)
	q.Set("gl", r.cfg.Region)
	q.Set("ceid", fmt.Sprintf("%s:%s", r.cfg.Region, feedLanguage(r.cfg.Language)))
	return r.cfg.BaseURL + "?" + q.Encode()
}

func feedLanguage(hl string) string {
	if strings.EqualFold(hl, "zh-TW") {
		return "zh-Hant"
	}
	return hl
}

// ListArticles returns at most limit articles, newest first.
func (r *newsFeedRepository) ListArticles(ctx context.Context, stock entity.Stock, limit int) ([]dto.Article, error) {
	body, err := r.client.get(ctx, r.feedURL(stock), map[string]string{"Accept": "application/rss+xml, application/xml"})
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("stock_id", stock.Code))
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	sort.SliceStable(feed.Items, func(i, j int) bool {
		if feed.Items[i].PublishedParsed == nil || feed.Items[j].PublishedParsed == nil {
			return false
		}
		return feed.Items[i].PublishedParsed.After(*feed.Items[j].PublishedParsed)
	})

	articles := make([]dto.Article, 0, limit)
	seen := make(map[string]struct{})
	for _, item := range feed.Items {
		if limit > 0 && len(articles) >= limit {
			break
		}
		if item.Link == "" {
			continue
		}
		if _, dup := seen[item.Link]; dup {
			continue
		}
		seen[item.Link] = struct{}{}

		title, source := splitSource(item.Title)
		articles = append(articles, dto.Article{
			URL:         item.Link,
			Title:       title,
			Source:      source,
			PublishedAt: item.PublishedParsed,
		})
	}
	return articles, nil
}

// splitSource separates the "Title - Publisher" form Google News uses.
func splitSource(title string) (string, string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}
