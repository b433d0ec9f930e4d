package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// TokenLimiter throttles LLM prompts by token count per minute.
type TokenLimiter struct {
	limiter *rate.Limiter
	max     int
}

// NewTokenLimiter allows maxTokensPerMinute tokens per rolling minute.
func NewTokenLimiter(maxTokensPerMinute int) *TokenLimiter {
	if maxTokensPerMinute <= 0 {
		return &TokenLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	perToken := time.Minute / time.Duration(maxTokensPerMinute)
	return &TokenLimiter{
		limiter: rate.NewLimiter(rate.Every(perToken), maxTokensPerMinute),
		max:     maxTokensPerMinute,
	}
}

// Wait blocks until n tokens are available. Requests above the per-minute
// budget wait for the full budget instead of failing.
func (t *TokenLimiter) Wait(ctx context.Context, n int) error {
	if t.max > 0 && n > t.max {
		n = t.max
	}
	return t.limiter.WaitN(ctx, n)
}

// GetRemaining reports the tokens currently available.
func (t *TokenLimiter) GetRemaining() int {
	if t.max == 0 {
		return -1
	}
	return int(t.limiter.Tokens())
}
