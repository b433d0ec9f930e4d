package repository

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
)

type articleReaderRepository struct {
	maxLength int
	log       *logger.Logger
	client    *upstreamClient
}

// NewArticleReaderRepository extracts article text with readability and goquery.
func NewArticleReaderRepository(cfg config.NewsFeed, log *logger.Logger, m *metrics.Registry) ArticleReaderRepository {
	return &articleReaderRepository{
		maxLength: cfg.ArticleMaxLength,
		log:       log,
		client:    newUpstreamClient("article_reader", config.Upstream{Timeout: cfg.Timeout}, log, m),
	}
}

func (r *articleReaderRepository) Read(ctx context.Context, url string) (string, error) {
	body, err := r.client.get(ctx, url, map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "zh-TW,zh;q=0.9,en;q=0.5",
	})
	if err != nil {
		return "", err
	}

	text, err := ExtractText(string(body))
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to parse news content", logger.ErrorField(err), logger.StringField("url", url))
		return "", err
	}
	return truncateRunes(text, r.maxLength), nil
}

// ExtractText returns the main readable text of an HTML page with control
// whitespace removed. The whole page is used when readability finds no
// candidate.
func ExtractText(html string) (string, error) {
	doc, err := readability.NewDocument(html)
	if err != nil {
		return "", fmt.Errorf("failed to parse news content: %w", err)
	}

	text, err := documentText(doc.Content())
	if err != nil {
		return "", err
	}
	if text == "" {
		if text, err = documentText(html); err != nil {
			return "", err
		}
	}
	return text, nil
}

func documentText(html string) (string, error) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse news content: %w", err)
	}
	dom.Find("script, style, noscript").Remove()

	text := strings.TrimSpace(dom.Text())
	text = strings.NewReplacer("\n", "", "\t", "", "\r", "", "\f", "").Replace(text)
	return strings.ToValidUTF8(text, ""), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
