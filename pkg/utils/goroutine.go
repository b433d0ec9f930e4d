package utils

import (
	"context"
	"log"
	"runtime/debug"

	"golang-stock-scorer/pkg/logger"
)

// GoSafe runs fn in a goroutine and recovers from panics.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// ShouldContinue reports false once ctx is done.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.Warn("Context done, stop processing", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}
