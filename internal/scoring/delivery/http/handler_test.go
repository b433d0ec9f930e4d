package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/service"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type stubScoreService struct {
	record  *entity.ScoreRecord
	news    *entity.NewsSentiment
	history []entity.ScoreRecord
	err     error

	gotStockID  string
	gotCategory entity.Category
	gotDate     *time.Time
	gotURL      string
}

func (s *stubScoreService) GetOrComputeScore(_ context.Context, stockID string, category entity.Category, explicit *time.Time) (*entity.ScoreRecord, error) {
	s.gotStockID, s.gotCategory, s.gotDate = stockID, category, explicit
	return s.record, s.err
}

func (s *stubScoreService) GetOrComputeNewsSentiment(_ context.Context, url string) (*entity.NewsSentiment, error) {
	s.gotURL = url
	return s.news, s.err
}

func (s *stubScoreService) AttachInsight(ctx context.Context, stockID string, category entity.Category, explicit *time.Time) (*entity.ScoreRecord, error) {
	return s.GetOrComputeScore(ctx, stockID, category, explicit)
}

func (s *stubScoreService) History(_ context.Context, stockID string, category entity.Category, _, _ time.Time) ([]entity.ScoreRecord, error) {
	s.gotStockID, s.gotCategory = stockID, category
	return s.history, s.err
}

func newTestServer(svc service.ScoreService) *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1")
	NewScoreHandler(svc, logger.NewNop()).RegisterRoutes(api.Group("/scores"))
	NewNewsHandler(svc, logger.NewNop()).RegisterRoutes(api.Group("/news"))
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sampleRecord() *entity.ScoreRecord {
	return &entity.ScoreRecord{
		StockID:         "2330",
		RecordDate:      time.Date(2025, 3, 14, 0, 0, 0, 0, utils.GetTaipeiTimeLocation()),
		Category:        entity.CategoryChip,
		Score:           9,
		Direction:       2,
		DirectionLabel:  "極多",
		Detail:          datatypes.JSON(`{"TotalScore":9,"Foreign_Flow_Score":1,"accurate":true}`),
		PositiveFactors: []string{"Foreign_Flow"},
	}
}

func TestGetScore(t *testing.T) {
	svc := &stubScoreService{record: sampleRecord()}
	rec := serve(newTestServer(svc), http.MethodGet, "/api/v1/scores/chip?stock_id=2330.TW&date=2025-03-14")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2330.TW", svc.gotStockID)
	assert.Equal(t, entity.CategoryChip, svc.gotCategory)
	require.NotNil(t, svc.gotDate)
	assert.Equal(t, "2025-03-14", utils.FormatDate(*svc.gotDate))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2330", body["stock_id"])
	assert.Equal(t, "2025-03-14", body["date"])
	assert.Equal(t, "chip", body["type"])
	assert.Equal(t, 9.0, body["TotalScore"])
	assert.Equal(t, "極多", body["direction_label"])
	assert.Equal(t, []interface{}{}, body["negative_factors"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["Foreign_Flow_Score"])
}

func TestGetScore_WithoutDateUsesResolver(t *testing.T) {
	svc := &stubScoreService{record: sampleRecord()}
	rec := serve(newTestServer(svc), http.MethodGet, "/api/v1/scores/chip?stock_id=2330")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.gotDate)
}

func TestGetScore_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"unknown category", "/api/v1/scores/basic?stock_id=2330", nil, http.StatusBadRequest},
		{"missing stock", "/api/v1/scores/chip", nil, http.StatusBadRequest},
		{"bad date", "/api/v1/scores/chip?stock_id=2330&date=14-03-2025", nil, http.StatusBadRequest},
		{"not found", "/api/v1/scores/chip?stock_id=9999", dto.ErrStockNotFound, http.StatusNotFound},
		{"no data", "/api/v1/scores/chip?stock_id=%5ETWII", dto.ErrNoData, http.StatusOK},
		{"compute error", "/api/v1/scores/chip?stock_id=2330", &dto.ComputeError{StockID: "2330", Category: "chip", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"timeout", "/api/v1/scores/chip?stock_id=2330", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(&stubScoreService{err: tt.err}), http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestGetScore_NoDataBody(t *testing.T) {
	rec := serve(newTestServer(&stubScoreService{err: dto.ErrNoData}), http.MethodGet, "/api/v1/scores/chip?stock_id=%5ETWII")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "message")
	assert.Nil(t, body["data"])
}

func TestCreateInsight(t *testing.T) {
	insight := "外資連買，籌碼偏多。"
	record := sampleRecord()
	record.Insight = &insight
	rec := serve(newTestServer(&stubScoreService{record: record}), http.MethodPost, "/api/v1/scores/chip/insight?stock_id=2330")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), insight)

	rec = serve(newTestServer(&stubScoreService{err: service.ErrInsightUnavailable}), http.MethodPost, "/api/v1/scores/chip/insight?stock_id=2330")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetHistory(t *testing.T) {
	svc := &stubScoreService{history: []entity.ScoreRecord{*sampleRecord(), *sampleRecord()}}
	rec := serve(newTestServer(svc), http.MethodGet, "/api/v1/scores/chip/history?stock_id=2330&from=2025-03-01&to=2025-03-14")

	require.Equal(t, http.StatusOK, rec.Code)
	var body []dto.ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 2)

	rec = serve(newTestServer(svc), http.MethodGet, "/api/v1/scores/chip/history?stock_id=2330")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSentiment(t *testing.T) {
	pos, neu, neg := 0.7, 0.2, 0.1
	content := "營收創新高"
	svc := &stubScoreService{news: &entity.NewsSentiment{URL: "https://news/a", Positive: &pos, Neutral: &neu, Negative: &neg, Content: &content}}
	rec := serve(newTestServer(svc), http.MethodGet, "/api/v1/news/sentiment?url=https://news/a")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://news/a", svc.gotURL)
	var body dto.NewsSentimentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0.7, *body.Positive)
	assert.Equal(t, content, *body.Content)

	rec = serve(newTestServer(svc), http.MethodGet, "/api/v1/news/sentiment")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(newTestServer(&stubScoreService{err: dto.ErrInputUnavailable}), http.MethodGet, "/api/v1/news/sentiment?url=https://gone")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
