package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/service"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/utils"

	"github.com/labstack/echo/v4"
)

// ScoreHandler handles HTTP requests for category scores.
type ScoreHandler struct {
	scoreService service.ScoreService
	logger       *logger.Logger
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scoreService service.ScoreService, logger *logger.Logger) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService, logger: logger}
}

// RegisterRoutes registers the score routes to the Echo group.
func (h *ScoreHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/:category", h.GetScore)
	g.GET("/:category/history", h.GetHistory)
	g.POST("/:category/insight", h.CreateInsight)
}

// GetScore godoc
// @Summary Get the daily score of a stock
// @Description Returns the cached score of the stock for the category, computing it on the first request of the trading day
// @Tags scores
// @Produce  json
// @Param   category  path   string true  "Score category" Enums(fundamentals, chip, technical, news)
// @Param   stock_id  query  string true  "Stock code or name, e.g. 2330 or 2330.TW"
// @Param   date      query  string false "Trading date (YYYY-MM-DD)"
// @Success 200 {object} dto.ScoreResponse
// @Success 200 {object} dto.NoDataResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scores/{category} [get]
func (h *ScoreHandler) GetScore(c echo.Context) error {
	stockID, category, date, err := h.parseScoreRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	record, err := h.scoreService.GetOrComputeScore(c.Request().Context(), stockID, category, date)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toScoreResponse(record))
}

// CreateInsight godoc
// @Summary Attach an insight to a score
// @Description Generates the short analyst summary of a score once and stores it with the record
// @Tags scores
// @Produce  json
// @Param   category  path   string true  "Score category" Enums(fundamentals, chip, technical, news)
// @Param   stock_id  query  string true  "Stock code or name"
// @Param   date      query  string false "Trading date (YYYY-MM-DD)"
// @Success 200 {object} dto.ScoreResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /scores/{category}/insight [post]
func (h *ScoreHandler) CreateInsight(c echo.Context) error {
	stockID, category, date, err := h.parseScoreRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	record, err := h.scoreService.AttachInsight(c.Request().Context(), stockID, category, date)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toScoreResponse(record))
}

// GetHistory godoc
// @Summary List stored scores of a stock
// @Description Lists the stored records of one stock and category between two dates
// @Tags scores
// @Produce  json
// @Param   category  path   string true  "Score category" Enums(fundamentals, chip, technical, news)
// @Param   stock_id  query  string true  "Stock code"
// @Param   from      query  string true  "First date (YYYY-MM-DD)"
// @Param   to        query  string false "Last date (YYYY-MM-DD), defaults to today"
// @Success 200 {array} dto.ScoreResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scores/{category}/history [get]
func (h *ScoreHandler) GetHistory(c echo.Context) error {
	stockID := strings.TrimSpace(c.QueryParam("stock_id"))
	if stockID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "stock_id is required"})
	}
	from, err := utils.ParseDate(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid from date"})
	}
	to := utils.TruncateToDate(utils.TimeNowTaipei())
	if raw := c.QueryParam("to"); raw != "" {
		if to, err = utils.ParseDate(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid to date"})
		}
	}

	records, err := h.scoreService.History(c.Request().Context(), stockID, entity.Category(c.Param("category")), from, to)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	out := make([]dto.ScoreResponse, 0, len(records))
	for i := range records {
		out = append(out, toScoreResponse(&records[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScoreHandler) parseScoreRequest(c echo.Context) (string, entity.Category, *time.Time, error) {
	category := entity.Category(c.Param("category"))
	if !category.Valid() {
		return "", "", nil, fmt.Errorf("%w: %s", dto.ErrInvalidCategory, category)
	}
	stockID := strings.TrimSpace(c.QueryParam("stock_id"))
	if stockID == "" {
		return "", "", nil, fmt.Errorf("stock_id is required")
	}
	raw := c.QueryParam("date")
	if raw == "" {
		return stockID, category, nil, nil
	}
	date, err := utils.ParseDate(raw)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return stockID, category, &date, nil
}

func toScoreResponse(r *entity.ScoreRecord) dto.ScoreResponse {
	data := map[string]interface{}{}
	if len(r.Detail) > 0 {
		_ = json.Unmarshal(r.Detail, &data)
	}
	positive := []string(r.PositiveFactors)
	if positive == nil {
		positive = []string{}
	}
	negative := []string(r.NegativeFactors)
	if negative == nil {
		negative = []string{}
	}
	return dto.ScoreResponse{
		StockID:         r.StockID,
		Date:            utils.FormatDate(r.RecordDate),
		Type:            string(r.Category),
		TotalScore:      r.Score,
		Direction:       r.Direction,
		DirectionLabel:  r.DirectionLabel,
		Data:            data,
		PositiveFactors: positive,
		NegativeFactors: negative,
		Insight:         r.Insight,
	}
}
