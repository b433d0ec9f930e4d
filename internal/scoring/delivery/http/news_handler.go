package http

import (
	"net/http"
	"strings"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/service"
	"golang-stock-scorer/pkg/logger"

	"github.com/labstack/echo/v4"
)

// NewsHandler handles HTTP requests for article sentiment.
type NewsHandler struct {
	scoreService service.ScoreService
	logger       *logger.Logger
}

// NewNewsHandler creates a new NewsHandler.
func NewNewsHandler(scoreService service.ScoreService, logger *logger.Logger) *NewsHandler {
	return &NewsHandler{scoreService: scoreService, logger: logger}
}

// RegisterRoutes registers the news routes to the Echo group.
func (h *NewsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/sentiment", h.GetSentiment)
}

// GetSentiment godoc
// @Summary Get the sentiment of a news article
// @Description Returns the cached sentiment of the article, reading and classifying it on first request
// @Tags news
// @Produce  json
// @Param   url  query  string true  "Article URL"
// @Success 200 {object} dto.NewsSentimentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /news/sentiment [get]
func (h *NewsHandler) GetSentiment(c echo.Context) error {
	url := strings.TrimSpace(c.QueryParam("url"))
	if url == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "url is required"})
	}

	record, err := h.scoreService.GetOrComputeNewsSentiment(c.Request().Context(), url)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toNewsResponse(record))
}

func toNewsResponse(n *entity.NewsSentiment) dto.NewsSentimentResponse {
	return dto.NewsSentimentResponse{
		URL:      n.URL,
		Positive: n.Positive,
		Neutral:  n.Neutral,
		Negative: n.Negative,
		Content:  n.Content,
	}
}
