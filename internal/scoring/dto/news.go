package dto

import "time"

// Article is one news item listed for a stock.
type Article struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// SentimentPrediction is the class probability triple of one text.
type SentimentPrediction struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// ArticleSentiment is an article with its prediction. Prediction is nil
// when the article could not be read or classified.
type ArticleSentiment struct {
	Article    Article              `json:"article"`
	Prediction *SentimentPrediction `json:"prediction"`
	Content    *string              `json:"content"`
}

// NewsSentimentResponse is the HTTP representation of one cached article sentiment.
type NewsSentimentResponse struct {
	URL      string   `json:"url"`
	Positive *float64 `json:"positive"`
	Neutral  *float64 `json:"neutral"`
	Negative *float64 `json:"negative"`
	Content  *string  `json:"content"`
}
