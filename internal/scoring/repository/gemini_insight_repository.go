package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// TokenCounter counts prompt tokens before a request is sent.
type TokenCounter interface {
	CountTokens(ctx context.Context, model string, contents []*genai.Content, config *genai.CountTokensConfig) (*genai.CountTokensResponse, error)
}

// geminiInsightRepository is an implementation of InsightRepository that uses the Google Gemini API.
type geminiInsightRepository struct {
	client         *http.Client
	cfg            config.Gemini
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	tokenCounter   TokenCounter
}

// NewGeminiInsightRepository creates a new instance of geminiInsightRepository.
// A nil tokenCounter skips the token budget.
func NewGeminiInsightRepository(cfg config.Gemini, log *logger.Logger, tokenCounter TokenCounter) InsightRepository {
	limit := rate.Inf
	if cfg.MaxRequestPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.MaxRequestPerMinute))
	}

	return &geminiInsightRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(limit, 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.MaxTokenPerMinute),
		tokenCounter:   tokenCounter,
	}
}

// GenerateInsight returns a short commentary on one score record.
func (r *geminiInsightRepository) GenerateInsight(ctx context.Context, facts dto.InsightFacts) (string, error) {
	prompt := BuildInsightPrompt(facts)

	resp, err := r.executeGeminiAIRequest(ctx, prompt)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("invalid response from Gemini API: no content found")
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

func (r *geminiInsightRepository) executeGeminiAIRequest(ctx context.Context, prompt string) (*dto.GeminiAPIResponse, error) {
	if r.tokenCounter != nil {
		contents := []*genai.Content{
			genai.NewContentFromText(InsightSystemPrompt+"\n"+prompt, "user"),
		}
		tokenResp, err := r.tokenCounter.CountTokens(ctx, r.cfg.Model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to count tokens: %w", err)
		}

		r.logger.Debug("Gemini token count",
			logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
			logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
		)

		if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
			return nil, fmt.Errorf("failed to wait for token limit: %w", err)
		}
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	payload := dto.GeminiAPIRequest{
		SystemInstruction: &dto.Content{Parts: []dto.Part{{Text: InsightSystemPrompt}}},
		Contents:          []dto.Content{{Role: "user", Parts: []dto.Part{{Text: prompt}}}},
		GenerationConfig:  &dto.GenerationConf{MaxOutputTokens: 512},
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to marshal payload", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	apiURL := fmt.Sprintf("%s/%s:generateContent?key=%s", r.cfg.BaseURL, r.cfg.Model, r.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		r.logger.Error("Failed to create new http request", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to send request to Gemini API", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send request to Gemini API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.ErrorContext(ctx, "Received non-OK response from Gemini API", logger.IntField("status_code", resp.StatusCode))
		return nil, fmt.Errorf("received non-OK response from Gemini API: %d - %s", resp.StatusCode, string(body))
	}

	var geminiResp dto.GeminiAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		r.logger.ErrorContext(ctx, "Failed to decode response body", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &geminiResp, nil
}
