package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
)

// Classifier output labels, in model head order.
const (
	labelPositive = "LABEL_0"
	labelNeutral  = "LABEL_1"
	labelNegative = "LABEL_2"
)

type sentimentRequest struct {
	Inputs  string                 `json:"inputs"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type sentimentLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type sentimentRepository struct {
	cfg    config.Sentiment
	log    *logger.Logger
	client *upstreamClient
}

// NewSentimentRepository calls a text-classification inference endpoint
// that returns the three class probabilities.
func NewSentimentRepository(cfg config.Sentiment, log *logger.Logger, m *metrics.Registry) SentimentRepository {
	if cfg.ChunkRunes <= 0 {
		cfg.ChunkRunes = 500
	}
	return &sentimentRepository{
		cfg:    cfg,
		log:    log,
		client: newUpstreamClient("sentiment", cfg.Upstream, log, m),
	}
}

// Predict classifies text. Text longer than the model window is split into
// equal chunks whose probabilities are averaged.
func (r *sentimentRepository) Predict(ctx context.Context, text string) (*dto.SentimentPrediction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", dto.ErrInputUnavailable)
	}

	parts := SplitChunks(text, r.cfg.ChunkRunes)
	var total dto.SentimentPrediction
	for _, part := range parts {
		p, err := r.predictOne(ctx, part)
		if err != nil {
			return nil, err
		}
		total.Positive += p.Positive
		total.Neutral += p.Neutral
		total.Negative += p.Negative
	}

	n := float64(len(parts))
	return &dto.SentimentPrediction{
		Positive: total.Positive / n,
		Neutral:  total.Neutral / n,
		Negative: total.Negative / n,
	}, nil
}

func (r *sentimentRepository) predictOne(ctx context.Context, text string) (*dto.SentimentPrediction, error) {
	payload, err := json.Marshal(sentimentRequest{
		Inputs:  text,
		Options: map[string]interface{}{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json", "Accept": "application/json"}
	if r.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + r.cfg.APIKey
	}
	body, err := r.client.do(ctx, http.MethodPost, r.cfg.BaseURL, func() io.Reader { return bytes.NewReader(payload) }, headers)
	if err != nil {
		return nil, err
	}
	return parseSentiment(body)
}

// parseSentiment accepts both [[{label,score}...]] and [{label,score}...].
func parseSentiment(body []byte) (*dto.SentimentPrediction, error) {
	var labels []sentimentLabel
	var nested [][]sentimentLabel
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		labels = nested[0]
	} else if err := json.Unmarshal(body, &labels); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment response: %w", err)
	}

	var p dto.SentimentPrediction
	found := 0
	for _, l := range labels {
		switch strings.ToUpper(l.Label) {
		case labelPositive, "POSITIVE":
			p.Positive = l.Score
		case labelNeutral, "NEUTRAL":
			p.Neutral = l.Score
		case labelNegative, "NEGATIVE":
			p.Negative = l.Score
		default:
			continue
		}
		found++
	}
	if found != 3 {
		return nil, fmt.Errorf("sentiment response carried %d of 3 labels", found)
	}
	return &p, nil
}

// SplitChunks splits text into ceil(len/size) parts of equal rune length,
// the last part taking the remainder.
func SplitChunks(text string, size int) []string {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}
	parts := (len(runes) + size - 1) / size
	width := len(runes) / parts
	out := make([]string, 0, parts)
	for i := 0; i < parts; i++ {
		start := i * width
		end := start + width
		if i == parts-1 {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
