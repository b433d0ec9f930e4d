package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/pkg/common"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrUpstreamStatus is returned when a collaborator answers with a non-2xx status.
var ErrUpstreamStatus = errors.New("upstream returned non-OK status")

// upstreamClient is the shared HTTP plumbing of the collaborator adapters:
// one rate limiter and one circuit breaker per upstream.
type upstreamClient struct {
	name           string
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	log            *logger.Logger
	metrics        *metrics.Registry
}

func newUpstreamClient(name string, cfg config.Upstream, log *logger.Logger, m *metrics.Registry) *upstreamClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.MaxRequestPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.MaxRequestPerMinute))
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				logger.StringField("upstream", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
		},
	}

	return &upstreamClient{
		name:           name,
		httpClient:     &http.Client{Timeout: timeout},
		requestLimiter: rate.NewLimiter(limit, 1),
		breaker:        gobreaker.NewCircuitBreaker(settings),
		log:            log,
		metrics:        m,
	}
}

// get performs a rate limited GET through the breaker and returns the body.
func (c *upstreamClient) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

func (c *upstreamClient) do(ctx context.Context, method, url string, body func() io.Reader, headers map[string]string) ([]byte, error) {
	fields := []zap.Field{
		zap.String("upstream", c.name),
		zap.String("method", method),
		zap.String("url", redact(url)),
	}

	if err := c.requestLimiter.Wait(ctx); err != nil {
		fields = append(fields, zap.Error(err))
		c.log.ErrorContext(ctx, "Failed to wait for request limit", fields...)
		return nil, err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = body()
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create new http request: %w", err)
		}
		req.Header.Set("User-Agent", common.DefaultUserAgent)
		req.Header.Set("Accept", "*/*")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request to %s: %w", c.name, err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body from %s: %w", c.name, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %s %d", ErrUpstreamStatus, c.name, resp.StatusCode)
		}
		return payload, nil
	})
	if err != nil {
		c.metrics.UpstreamCalls.WithLabelValues(c.name, outcome(err)).Inc()
		fields = append(fields, zap.Error(err))
		c.log.ErrorContext(ctx, "Upstream request failed", fields...)
		return nil, err
	}

	c.metrics.UpstreamCalls.WithLabelValues(c.name, "ok").Inc()
	return out.([]byte), nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, ErrUpstreamStatus):
		return "bad_status"
	default:
		return "error"
	}
}

// redact drops the query string, which may carry API keys or tokens.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
