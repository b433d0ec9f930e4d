package dto

import (
	"errors"
	"fmt"
)

var (
	// ErrStockNotFound means the identifier does not resolve to a listed stock.
	ErrStockNotFound = errors.New("stock not found")
	// ErrNoData means the stock is known but there is nothing to score.
	ErrNoData = errors.New("no data")
	// ErrInvalidCategory means the requested category is unknown.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInputUnavailable is returned by collaborators whose source failed.
	ErrInputUnavailable = errors.New("input unavailable")
)

// ComputeError wraps an unexpected scorer failure.
type ComputeError struct {
	StockID  string
	Category string
	Err      error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("compute %s score for %s: %v", e.Category, e.StockID, e.Err)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
