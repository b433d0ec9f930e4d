package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
	"golang-stock-scorer/pkg/utils"
)

// FinMind datasets.
const (
	datasetInstitutional   = "TaiwanStockInstitutionalInvestorsBuySell"
	datasetMargin          = "TaiwanStockMarginPurchaseShortSale"
	datasetBrokerReport    = "TaiwanStockTradingDailyReport"
	datasetPER             = "TaiwanStockPER"
	datasetMonthRevenue    = "TaiwanStockMonthRevenue"
	datasetFinancialReport = "TaiwanStockFinancialStatements"
	datasetBalanceSheet    = "TaiwanStockBalanceSheet"
	datasetDividend        = "TaiwanStockDividend"
)

type finmindResponse struct {
	Msg    string          `json:"msg"`
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type finmindInstitutionalRow struct {
	Date string  `json:"date"`
	Name string  `json:"name"`
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

type finmindMarginRow struct {
	Date                           string  `json:"date"`
	MarginPurchaseTodayBalance     float64 `json:"MarginPurchaseTodayBalance"`
	MarginPurchaseYesterdayBalance float64 `json:"MarginPurchaseYesterdayBalance"`
	ShortSaleTodayBalance          float64 `json:"ShortSaleTodayBalance"`
	ShortSaleYesterdayBalance      float64 `json:"ShortSaleYesterdayBalance"`
}

type finmindBrokerRow struct {
	Date     string  `json:"date"`
	BrokerID string  `json:"securities_trader_id"`
	Buy      float64 `json:"buy"`
	Sell     float64 `json:"sell"`
}

type finmindPERRow struct {
	Date string  `json:"date"`
	PER  float64 `json:"PER"`
}

type finmindRevenueRow struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Month   int     `json:"revenue_month"`
	Year    int     `json:"revenue_year"`
}

type finmindStatementRow struct {
	Date  string  `json:"date"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

type finmindDividendRow struct {
	Date                      string  `json:"date"`
	CashEarningsDistribution  float64 `json:"CashEarningsDistribution"`
	CashStatutorySurplus      float64 `json:"CashStatutorySurplus"`
	CashExDividendTradingDate string  `json:"CashExDividendTradingDate"`
}

// FinMindRepository serves chip series and fundamentals from the FinMind API.
type FinMindRepository interface {
	ChipRepository
	FundamentalsRepository
}

type finmindRepository struct {
	cfg    config.FinMind
	log    *logger.Logger
	client *upstreamClient
	now    func() time.Time
}

func NewFinMindRepository(cfg config.FinMind, log *logger.Logger, m *metrics.Registry) FinMindRepository {
	if cfg.TopBrokers <= 0 {
		cfg.TopBrokers = 15
	}
	if cfg.BrokerDays <= 0 {
		cfg.BrokerDays = 10
	}
	if cfg.RevenueDays <= 0 {
		cfg.RevenueDays = 400
	}
	return &finmindRepository{
		cfg:    cfg,
		log:    log,
		client: newUpstreamClient("finmind", cfg.Upstream, log, m),
		now:    utils.TimeNowTaipei,
	}
}

// GetInstitutionalFlows returns the net of the foreign, trust and dealer
// groups per day, in lots.
func (r *finmindRepository) GetInstitutionalFlows(ctx context.Context, stockID string, start, end time.Time) ([]dto.InstitutionalFlow, error) {
	var rows []finmindInstitutionalRow
	if err := r.fetch(ctx, datasetInstitutional, stockID, start, end, &rows); err != nil {
		return nil, err
	}

	byDate := make(map[string]*dto.InstitutionalFlow)
	var order []string
	for _, row := range rows {
		flow, ok := byDate[row.Date]
		if !ok {
			date, err := utils.ParseDate(row.Date)
			if err != nil {
				continue
			}
			flow = &dto.InstitutionalFlow{Date: date}
			byDate[row.Date] = flow
			order = append(order, row.Date)
		}
		net := (row.Buy - row.Sell) / 1000
		switch row.Name {
		case "Foreign_Investor", "Foreign_Dealer_Self":
			flow.Foreign += net
		case "Investment_Trust":
			flow.InvestmentTrust += net
		case "Dealer_self", "Dealer_Hedging", "Dealer":
			flow.Dealer += net
		}
	}

	sort.Strings(order)
	out := make([]dto.InstitutionalFlow, 0, len(order))
	for _, d := range order {
		out = append(out, *byDate[d])
	}
	return out, nil
}

// GetMarginTrading returns daily margin and short movements in lots.
// ShortMarginRatio is in percent.
func (r *finmindRepository) GetMarginTrading(ctx context.Context, stockID string, start, end time.Time) ([]dto.MarginTrading, error) {
	var rows []finmindMarginRow
	if err := r.fetch(ctx, datasetMargin, stockID, start, end, &rows); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	out := make([]dto.MarginTrading, 0, len(rows))
	for _, row := range rows {
		date, err := utils.ParseDate(row.Date)
		if err != nil {
			continue
		}
		m := dto.MarginTrading{
			Date:          date,
			MarginChange:  row.MarginPurchaseTodayBalance - row.MarginPurchaseYesterdayBalance,
			MarginBalance: row.MarginPurchaseTodayBalance,
			ShortChange:   row.ShortSaleTodayBalance - row.ShortSaleYesterdayBalance,
			ShortBalance:  row.ShortSaleTodayBalance,
		}
		if row.MarginPurchaseTodayBalance > 0 {
			m.ShortMarginRatio = row.ShortSaleTodayBalance / row.MarginPurchaseTodayBalance * 100
		}
		out = append(out, m)
	}
	return out, nil
}

// GetMainForce approximates the main force as the net of the top buying
// and top selling brokers of each day. The broker report is a sponsor
// dataset, so nothing is returned without a token.
func (r *finmindRepository) GetMainForce(ctx context.Context, stockID string, start, end time.Time) ([]dto.MainForceFlow, error) {
	if r.cfg.Token == "" {
		return nil, nil
	}

	var days []time.Time
	for d := utils.TruncateToDate(end); !d.Before(utils.TruncateToDate(start)) && len(days) < r.cfg.BrokerDays; d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}

	out := make([]dto.MainForceFlow, 0, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rows []finmindBrokerRow
		if err := r.fetchDay(ctx, datasetBrokerReport, stockID, days[i], &rows); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		out = append(out, dto.MainForceFlow{Date: days[i], Net: mainForceNet(rows, r.cfg.TopBrokers)})
	}
	return out, nil
}

// mainForceNet sums the top n net buyers and the top n net sellers, in lots.
func mainForceNet(rows []finmindBrokerRow, n int) float64 {
	perBroker := make(map[string]float64)
	for _, row := range rows {
		perBroker[row.BrokerID] += row.Buy - row.Sell
	}
	var buyers, sellers []float64
	for _, net := range perBroker {
		switch {
		case net > 0:
			buyers = append(buyers, net)
		case net < 0:
			sellers = append(sellers, net)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(buyers)))
	sort.Float64s(sellers)

	var total float64
	for i := 0; i < len(buyers) && i < n; i++ {
		total += buyers[i]
	}
	for i := 0; i < len(sellers) && i < n; i++ {
		total += sellers[i]
	}
	return total / 1000
}

// GetFundamentals assembles the latest snapshot. Each dataset is optional:
// a failing one leaves its metrics unavailable.
func (r *finmindRepository) GetFundamentals(ctx context.Context, stockID string) (*dto.Fundamentals, error) {
	end := r.now()
	f := &dto.Fundamentals{}

	var per []finmindPERRow
	if err := r.fetch(ctx, datasetPER, stockID, end.AddDate(0, 0, -14), end, &per); err != nil {
		r.warn(ctx, datasetPER, stockID, err)
	} else if len(per) > 0 {
		sort.Slice(per, func(i, j int) bool { return per[i].Date < per[j].Date })
		f.PE = dto.Some(per[len(per)-1].PER)
	}

	var revenue []finmindRevenueRow
	if err := r.fetch(ctx, datasetMonthRevenue, stockID, end.AddDate(0, 0, -r.cfg.RevenueDays), end, &revenue); err != nil {
		r.warn(ctx, datasetMonthRevenue, stockID, err)
	} else {
		f.MoM, f.YoY = revenueGrowth(revenue)
	}

	var statements []finmindStatementRow
	if err := r.fetch(ctx, datasetFinancialReport, stockID, end.AddDate(-1, 0, 0), end, &statements); err != nil {
		r.warn(ctx, datasetFinancialReport, stockID, err)
	}
	var balance []finmindStatementRow
	if err := r.fetch(ctx, datasetBalanceSheet, stockID, end.AddDate(-1, 0, 0), end, &balance); err != nil {
		r.warn(ctx, datasetBalanceSheet, stockID, err)
	}
	applyStatements(f, statements, balance)

	var dividends []finmindDividendRow
	if err := r.fetch(ctx, datasetDividend, stockID, end.AddDate(-2, 0, 0), end, &dividends); err != nil {
		r.warn(ctx, datasetDividend, stockID, err)
	} else if len(dividends) > 0 {
		sort.Slice(dividends, func(i, j int) bool { return dividends[i].Date < dividends[j].Date })
		latest := dividends[len(dividends)-1]
		f.CashDividend = dto.Some(latest.CashEarningsDistribution + latest.CashStatutorySurplus)
		if d, err := utils.ParseDate(latest.CashExDividendTradingDate); err == nil {
			f.CashDividendDate = &d
		}
	}

	return f, nil
}

// revenueGrowth returns month-over-month and year-over-year growth of the
// latest month as fractions.
func revenueGrowth(rows []finmindRevenueRow) (dto.Metric, dto.Metric) {
	if len(rows) == 0 {
		return dto.None(), dto.None()
	}
	key := func(year, month int) int { return year*12 + month - 1 }
	byMonth := make(map[int]float64, len(rows))
	latest := -1
	for _, row := range rows {
		k := key(row.Year, row.Month)
		byMonth[k] = row.Revenue
		if k > latest {
			latest = k
		}
	}

	growth := func(prev int) dto.Metric {
		base, ok := byMonth[prev]
		if !ok || base == 0 {
			return dto.None()
		}
		return dto.Some(byMonth[latest]/base - 1)
	}
	return growth(latest - 1), growth(latest - 12)
}

func applyStatements(f *dto.Fundamentals, statements, balance []finmindStatementRow) {
	income := latestQuarters(statements)
	if len(income) > 0 {
		cur := income[len(income)-1]
		f.Period = cur.date
		revenue := cur.values["Revenue"]
		if eps, ok := cur.values["EPS"]; ok {
			f.EPS = dto.Some(eps)
			if len(income) > 1 {
				if prev, ok := income[len(income)-2].values["EPS"]; ok {
					f.EPSGap = dto.Some(eps - prev)
				}
			}
		}
		margin := func(typ string) dto.Metric {
			v, ok := cur.values[typ]
			if !ok || revenue == 0 {
				return dto.None()
			}
			return dto.Some(v / revenue)
		}
		f.GPM = margin("GrossProfit")
		f.OPM = margin("OperatingIncome")
		f.PTPM = margin("PreTaxIncome")

		netIncome, hasIncome := cur.values["IncomeAfterTaxes"]
		sheet := latestQuarters(balance)
		if hasIncome && len(sheet) > 0 {
			last := sheet[len(sheet)-1].values
			if equity := last["Equity"]; equity != 0 {
				f.ROE = dto.Some(netIncome / equity)
			}
			if assets := last["TotalAssets"]; assets != 0 {
				f.ROA = dto.Some(netIncome / assets)
			}
		}
	}
}

type quarter struct {
	date   string
	values map[string]float64
}

func latestQuarters(rows []finmindStatementRow) []quarter {
	byDate := make(map[string]map[string]float64)
	for _, row := range rows {
		if byDate[row.Date] == nil {
			byDate[row.Date] = make(map[string]float64)
		}
		byDate[row.Date][row.Type] = row.Value
	}
	out := make([]quarter, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, quarter{date: d, values: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date < out[j].date })
	return out
}

func (r *finmindRepository) warn(ctx context.Context, dataset, stockID string, err error) {
	r.log.WarnContext(ctx, "FinMind dataset unavailable",
		logger.StringField("dataset", dataset),
		logger.StringField("stock_id", stockID),
		logger.ErrorField(err),
	)
}

func (r *finmindRepository) fetch(ctx context.Context, dataset, stockID string, start, end time.Time, out interface{}) error {
	q := url.Values{}
	q.Set("start_date", utils.FormatDate(start))
	q.Set("end_date", utils.FormatDate(end))
	return r.request(ctx, dataset, stockID, q, out)
}

func (r *finmindRepository) fetchDay(ctx context.Context, dataset, stockID string, day time.Time, out interface{}) error {
	q := url.Values{}
	q.Set("date", utils.FormatDate(day))
	return r.request(ctx, dataset, stockID, q, out)
}

func (r *finmindRepository) request(ctx context.Context, dataset, stockID string, q url.Values, out interface{}) error {
	q.Set("dataset", dataset)
	q.Set("data_id", stockID)
	headers := map[string]string{"Accept": "application/json"}
	if r.cfg.Token != "" {
		headers["Authorization"] = "Bearer " + r.cfg.Token
	}

	body, err := r.client.get(ctx, r.cfg.BaseURL+"/data?"+q.Encode(), headers)
	if err != nil {
		return err
	}

	var resp finmindResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode finmind %s response: %w", dataset, err)
	}
	if resp.Status != 0 && resp.Status != 200 {
		return fmt.Errorf("finmind %s returned status %d: %s", dataset, resp.Status, resp.Msg)
	}
	if len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode finmind %s rows: %w", dataset, err)
	}
	return nil
}
