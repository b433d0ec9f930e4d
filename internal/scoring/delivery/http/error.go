package http

import (
	"context"
	"errors"
	"net/http"

	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/service"
	"golang-stock-scorer/pkg/logger"

	"github.com/labstack/echo/v4"
)

// writeError maps service errors to status codes. ErrNoData is not a
// failure: the stock exists, there is just nothing to score.
func writeError(c echo.Context, log *logger.Logger, err error) error {
	ctx := c.Request().Context()
	var ce *dto.ComputeError
	switch {
	case errors.Is(err, dto.ErrNoData):
		return c.JSON(http.StatusOK, dto.NoDataResponse{Message: err.Error(), Data: nil})
	case errors.Is(err, dto.ErrStockNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, dto.ErrInvalidCategory):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, dto.ErrInputUnavailable):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInsightUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "score computation timed out"})
	case errors.As(err, &ce):
		log.ErrorContext(ctx, "Score computation failed",
			logger.StringField("stock_id", ce.StockID),
			logger.StringField("category", ce.Category),
			logger.ErrorField(ce.Err),
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute score"})
	default:
		log.ErrorContext(ctx, "Request failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}
