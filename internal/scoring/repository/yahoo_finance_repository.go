package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
	"golang-stock-scorer/pkg/utils"
)

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooFinanceRepository serves daily bars and index trading dates from the
// Yahoo Finance chart API.
type YahooFinanceRepository interface {
	PriceRepository
	IndexRepository
}

type yahooFinanceRepository struct {
	cfg    config.YahooFinance
	log    *logger.Logger
	client *upstreamClient
}

func NewYahooFinanceRepository(cfg config.YahooFinance, log *logger.Logger, m *metrics.Registry) YahooFinanceRepository {
	return &yahooFinanceRepository{
		cfg:    cfg,
		log:    log,
		client: newUpstreamClient("yahoo_finance", cfg.Upstream, log, m),
	}
}

// GetDailyBars returns bars between start and end inclusive. Volume is
// converted from shares to lots. Rows missing any of open, high, low, close
// or volume are skipped.
func (r *yahooFinanceRepository) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]dto.PriceBar, error) {
	rows, err := r.rows(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	bars := make([]dto.PriceBar, 0, len(rows))
	for _, row := range rows {
		if row.open == nil || row.high == nil || row.low == nil || row.volume == nil {
			continue
		}
		bars = append(bars, dto.PriceBar{
			Date:   row.date,
			Open:   *row.open,
			High:   *row.high,
			Low:    *row.low,
			Close:  *row.close,
			Volume: *row.volume * 0.001,
		})
	}
	return bars, nil
}

// GetTradingDates returns the dates with a close for symbol.
func (r *yahooFinanceRepository) GetTradingDates(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	rows, err := r.rows(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		dates = append(dates, row.date)
	}
	return dates, nil
}

type chartRow struct {
	date                           time.Time
	open, high, low, close, volume *float64
}

// rows returns one row per Taipei date that has a close, in date order.
func (r *yahooFinanceRepository) rows(ctx context.Context, symbol string, start, end time.Time) ([]chartRow, error) {
	resp, err := r.chart(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := utils.GetTaipeiTimeLocation()

	rows := make([]chartRow, 0, len(result.Timestamp))
	var last time.Time
	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue
		}
		date := utils.TruncateToDate(time.Unix(ts, 0).In(loc))
		if !last.IsZero() && !date.After(last) {
			continue
		}
		last = date
		rows = append(rows, chartRow{
			date:   date,
			open:   at(quote.Open, i),
			high:   at(quote.High, i),
			low:    at(quote.Low, i),
			close:  closePrice,
			volume: at(quote.Volume, i),
		})
	}
	return rows, nil
}

func (r *yahooFinanceRepository) chart(ctx context.Context, symbol string, start, end time.Time) (*yahooChartResponse, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", utils.TruncateToDate(start).Unix()))
	q.Set("period2", fmt.Sprintf("%d", utils.TruncateToDate(end).AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", r.cfg.BaseURL, url.PathEscape(symbol), q.Encode())

	body, err := r.client.get(ctx, endpoint, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}

	var resp yahooChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode yahoo chart response: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	return &resp, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}
