package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
	"golang-stock-scorer/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taipeiDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, utils.GetTaipeiTimeLocation())
}

func TestYahooFinance_GetDailyBars(t *testing.T) {
	d1 := taipeiDate(2025, 3, 13).Add(9 * time.Hour).Unix()
	d2 := taipeiDate(2025, 3, 14).Add(9 * time.Hour).Unix()
	d3 := taipeiDate(2025, 3, 17).Add(9 * time.Hour).Unix()
	d4 := taipeiDate(2025, 3, 18).Add(9 * time.Hour).Unix()
	timestamps := itoa(d1) + `,` + itoa(d2) + `,` + itoa(d3) + `,` + itoa(d4)

	paths := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		switch r.URL.Path {
		case "/v8/finance/chart/2330.TW":
			_, _ = io.WriteString(w, `{"chart":{"result":[{"timestamp":[`+timestamps+`],"indicators":{"quote":[{`+
				`"open":[100,101,null,null],"high":[102,103,null,105],"low":[99,100,null,101],`+
				`"close":[101,102,null,104],"volume":[2000000,3000000,null,1000000]}]}}],"error":null}}`)
		case "/v8/finance/chart/^TWII":
			_, _ = io.WriteString(w, `{"chart":{"result":[{"timestamp":[`+timestamps+`],"indicators":{"quote":[{`+
				`"open":[22000,22100,null,22300],"high":[22100,22200,null,22400],"low":[21900,22000,null,22200],`+
				`"close":[22050,22150,null,22350],"volume":[null,null,null,null]}]}}],"error":null}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	repo := NewYahooFinanceRepository(config.YahooFinance{Upstream: config.Upstream{BaseURL: srv.URL}}, logger.NewNop(), metrics.NewNop())
	bars, err := repo.GetDailyBars(context.Background(), "2330.TW", taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 18))
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/2330.TW", <-paths)
	require.Len(t, bars, 2)
	assert.True(t, utils.SameDate(taipeiDate(2025, 3, 13), bars[0].Date))
	assert.Equal(t, 102.0, bars[1].Close)
	assert.InDelta(t, 3000.0, bars[1].Volume, 1e-9)

	dates, err := repo.GetTradingDates(context.Background(), "^TWII", taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 18))
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/^TWII", <-paths)
	require.Len(t, dates, 3)
	assert.True(t, utils.SameDate(taipeiDate(2025, 3, 18), dates[2]))
}

func TestYahooFinance_ChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	repo := NewYahooFinanceRepository(config.YahooFinance{Upstream: config.Upstream{BaseURL: srv.URL}}, logger.NewNop(), metrics.NewNop())
	_, err := repo.GetDailyBars(context.Background(), "0000.TW", taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 17))
	assert.Error(t, err)
}

func TestUpstream_BadStatusAndBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newUpstreamClient("test", config.Upstream{BreakerMaxFailures: 2, BreakerOpenTimeout: time.Minute}, logger.NewNop(), metrics.NewNop())
	for i := 0; i < 2; i++ {
		_, err := c.get(context.Background(), srv.URL, nil)
		assert.True(t, errors.Is(err, ErrUpstreamStatus))
	}
	_, err := c.get(context.Background(), srv.URL, nil)
	assert.Error(t, err)
	assert.Equal(t, "breaker_open", outcome(err))
	assert.Equal(t, 2, calls)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://x/models/m:generateContent", redact("https://x/models/m:generateContent?key=secret"))
	assert.Equal(t, "https://x/a", redact("https://x/a"))
}

func finmindServer(t *testing.T, payloads map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data", r.URL.Path)
		data, ok := payloads[r.URL.Query().Get("dataset")]
		if !ok {
			data = "[]"
		}
		_, _ = io.WriteString(w, `{"msg":"success","status":200,"data":`+data+`}`)
	}))
}

func TestFinMind_InstitutionalFlows(t *testing.T) {
	srv := finmindServer(t, map[string]string{
		datasetInstitutional: `[
			{"date":"2025-03-14","name":"Foreign_Investor","buy":5000000,"sell":1000000},
			{"date":"2025-03-14","name":"Foreign_Dealer_Self","buy":1000,"sell":0},
			{"date":"2025-03-14","name":"Investment_Trust","buy":0,"sell":200000},
			{"date":"2025-03-14","name":"Dealer_self","buy":300000,"sell":0},
			{"date":"2025-03-14","name":"Dealer_Hedging","buy":0,"sell":100000},
			{"date":"2025-03-13","name":"Foreign_Investor","buy":0,"sell":1000000}
		]`,
	})
	defer srv.Close()

	repo := NewFinMindRepository(config.FinMind{Upstream: config.Upstream{BaseURL: srv.URL}}, logger.NewNop(), metrics.NewNop())
	flows, err := repo.GetInstitutionalFlows(context.Background(), "2330", taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14))
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.True(t, utils.SameDate(taipeiDate(2025, 3, 13), flows[0].Date))
	assert.Equal(t, -1000.0, flows[0].Foreign)
	assert.Equal(t, 4001.0, flows[1].Foreign)
	assert.Equal(t, -200.0, flows[1].InvestmentTrust)
	assert.Equal(t, 200.0, flows[1].Dealer)
}

func TestFinMind_MarginTrading(t *testing.T) {
	srv := finmindServer(t, map[string]string{
		datasetMargin: `[{"date":"2025-03-14","MarginPurchaseTodayBalance":1000,"MarginPurchaseYesterdayBalance":900,
			"ShortSaleTodayBalance":50,"ShortSaleYesterdayBalance":60}]`,
	})
	defer srv.Close()

	repo := NewFinMindRepository(config.FinMind{Upstream: config.Upstream{BaseURL: srv.URL}}, logger.NewNop(), metrics.NewNop())
	rows, err := repo.GetMarginTrading(context.Background(), "2330", taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 100.0, rows[0].MarginChange)
	assert.Equal(t, -10.0, rows[0].ShortChange)
	assert.InDelta(t, 5.0, rows[0].ShortMarginRatio, 1e-9)
}

func TestFinMind_MainForceRequiresToken(t *testing.T) {
	repo := NewFinMindRepository(config.FinMind{}, logger.NewNop(), metrics.NewNop())
	rows, err := repo.GetMainForce(context.Background(), "2330", taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14))
	assert.NoError(t, err)
	assert.Nil(t, rows)
}

func TestFinMind_MainForce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		if r.URL.Query().Get("date") != "2025-03-14" {
			_, _ = io.WriteString(w, `{"msg":"success","status":200,"data":[]}`)
			return
		}
		_, _ = io.WriteString(w, `{"msg":"success","status":200,"data":[
			{"securities_trader_id":"A","buy":3000,"sell":0},
			{"securities_trader_id":"A","buy":1000,"sell":0},
			{"securities_trader_id":"B","buy":0,"sell":1500},
			{"securities_trader_id":"C","buy":2000,"sell":0}
		]}`)
	}))
	defer srv.Close()

	repo := NewFinMindRepository(config.FinMind{Upstream: config.Upstream{BaseURL: srv.URL}, Token: "token", TopBrokers: 1, BrokerDays: 3}, logger.NewNop(), metrics.NewNop())
	rows, err := repo.GetMainForce(context.Background(), "2330", taipeiDate(2025, 3, 1), taipeiDate(2025, 3, 14))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 2.5, rows[0].Net, 1e-9)
}

func TestFinMind_Fundamentals(t *testing.T) {
	srv := finmindServer(t, map[string]string{
		datasetPER: `[{"date":"2025-03-13","PER":18.5},{"date":"2025-03-14","PER":19.2}]`,
		datasetMonthRevenue: `[
			{"date":"2024-02-01","revenue":100,"revenue_month":1,"revenue_year":2024},
			{"date":"2025-01-01","revenue":110,"revenue_month":12,"revenue_year":2024},
			{"date":"2025-02-01","revenue":121,"revenue_month":1,"revenue_year":2025}
		]`,
		datasetFinancialReport: `[
			{"date":"2024-09-30","type":"EPS","value":8},
			{"date":"2024-12-31","type":"EPS","value":10},
			{"date":"2024-12-31","type":"Revenue","value":1000},
			{"date":"2024-12-31","type":"GrossProfit","value":550},
			{"date":"2024-12-31","type":"OperatingIncome","value":400},
			{"date":"2024-12-31","type":"PreTaxIncome","value":420},
			{"date":"2024-12-31","type":"IncomeAfterTaxes","value":350}
		]`,
		datasetBalanceSheet: `[
			{"date":"2024-12-31","type":"Equity","value":2500},
			{"date":"2024-12-31","type":"TotalAssets","value":5000}
		]`,
		datasetDividend: `[{"date":"2024-06-01","CashEarningsDistribution":4,"CashStatutorySurplus":0.5,"CashExDividendTradingDate":"2024-06-13"}]`,
	})
	defer srv.Close()

	repo := NewFinMindRepository(config.FinMind{Upstream: config.Upstream{BaseURL: srv.URL}}, logger.NewNop(), metrics.NewNop())
	f, err := repo.GetFundamentals(context.Background(), "2330")
	require.NoError(t, err)

	assert.Equal(t, dto.Some(19.2), f.PE)
	assert.InDelta(t, 0.10, f.MoM.Value, 1e-9)
	assert.InDelta(t, 0.21, f.YoY.Value, 1e-9)
	assert.Equal(t, 10.0, f.EPS.Value)
	assert.Equal(t, 2.0, f.EPSGap.Value)
	assert.InDelta(t, 0.55, f.GPM.Value, 1e-9)
	assert.InDelta(t, 0.40, f.OPM.Value, 1e-9)
	assert.InDelta(t, 0.42, f.PTPM.Value, 1e-9)
	assert.InDelta(t, 0.14, f.ROE.Value, 1e-9)
	assert.InDelta(t, 0.07, f.ROA.Value, 1e-9)
	assert.Equal(t, 4.5, f.CashDividend.Value)
	require.NotNil(t, f.CashDividendDate)
	assert.Equal(t, "2024-12-31", f.Period)
	assert.False(t, f.IndustryPE.Valid)
}

func TestFinMind_FundamentalsDegradesPerDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dataset") == datasetPER {
			_, _ = io.WriteString(w, `{"msg":"success","status":200,"data":[{"date":"2025-03-14","PER":12}]}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := NewFinMindRepository(config.FinMind{Upstream: config.Upstream{BaseURL: srv.URL, BreakerMaxFailures: 100}}, logger.NewNop(), metrics.NewNop())
	f, err := repo.GetFundamentals(context.Background(), "2330")
	require.NoError(t, err)
	assert.True(t, f.PE.Valid)
	assert.False(t, f.EPS.Valid)
	assert.False(t, f.MoM.Valid)
	assert.True(t, f.Available())
}

const twseCSV = "\ufeff出表日期,公司代號,公司名稱,公司簡稱,外國企業註冊地國,產業別\n" +
	"1140314,2330,台灣積體電路製造股份有限公司,台積電,－ ,24\n" +
	"1140314,2317,鴻海精密工業股份有限公司,鴻海,－ ,31\n"

const tpexCSV = "出表日期,公司代號,公司名稱,公司簡稱,外國企業註冊地國,產業別\n" +
	"1140314,6488,環球晶圓股份有限公司,環球晶,－ ,24\n"

func stockListServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "_L.csv") {
			_, _ = io.WriteString(w, twseCSV)
			return
		}
		_, _ = io.WriteString(w, tpexCSV)
	}))
}

func TestStockList_Lookup(t *testing.T) {
	srv := stockListServer()
	defer srv.Close()

	repo := NewStockListRepository(config.StockList{
		TWSEURL:  srv.URL + "/t187ap03_L.csv",
		TPEXURL:  srv.URL + "/t187ap03_O.csv",
		CacheTTL: time.Hour,
	}, logger.NewNop(), metrics.NewNop())

	tests := []struct {
		keyword string
		code    string
		symbol  string
	}{
		{"2330", "2330", "2330.TW"},
		{"2330.TW", "2330", "2330.TW"},
		{"台積電", "2330", "2330.TW"},
		{"6488", "6488", "6488.TWO"},
		{"鴻", "2317", "2317.TW"},
		{"648", "6488", "6488.TWO"},
		{"^TWII", "^TWII", "^TWII"},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			s, err := repo.Lookup(context.Background(), tt.keyword)
			require.NoError(t, err)
			assert.Equal(t, tt.code, s.Code)
			assert.Equal(t, tt.symbol, s.Symbol())
		})
	}

	_, err := repo.Lookup(context.Background(), "9999")
	assert.True(t, errors.Is(err, dto.ErrStockNotFound))
}

func TestParseStockList_Industry(t *testing.T) {
	stocks, err := parseStockList(strings.NewReader(twseCSV), entity.MarketTWSE)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "台積電", stocks[0].Name)
	assert.Equal(t, "24", stocks[0].Industry)
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>台積電 - Google 新聞</title>
<item><title>台積電營收創新高 - 經濟日報</title><link>https://news.example.com/1</link><pubDate>Fri, 14 Mar 2025 08:00:00 GMT</pubDate></item>
<item><title>外資賣超台積電 - 工商時報</title><link>https://news.example.com/2</link><pubDate>Fri, 14 Mar 2025 10:00:00 GMT</pubDate></item>
<item><title>重複 - 工商時報</title><link>https://news.example.com/2</link><pubDate>Thu, 13 Mar 2025 10:00:00 GMT</pubDate></item>
<item><title>舊聞</title><link>https://news.example.com/3</link><pubDate>Wed, 12 Mar 2025 10:00:00 GMT</pubDate></item>
</channel></rss>`

func TestNewsFeed_ListArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "台積電 2330", r.URL.Query().Get("q"))
		assert.Equal(t, "TW:zh-Hant", r.URL.Query().Get("ceid"))
		_, _ = io.WriteString(w, rssFeed)
	}))
	defer srv.Close()

	repo := NewNewsFeedRepository(config.NewsFeed{BaseURL: srv.URL, Language: "zh-TW", Region: "TW"}, logger.NewNop(), metrics.NewNop())
	articles, err := repo.ListArticles(context.Background(), entity.Stock{Code: "2330", Name: "台積電", Market: entity.MarketTWSE}, 2)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "https://news.example.com/2", articles[0].URL)
	assert.Equal(t, "外資賣超台積電", articles[0].Title)
	assert.Equal(t, "工商時報", articles[0].Source)
	assert.Equal(t, "https://news.example.com/1", articles[1].URL)
}

func TestSplitSource(t *testing.T) {
	title, source := splitSource("沒有來源")
	assert.Equal(t, "沒有來源", title)
	assert.Empty(t, source)
}

func TestArticleReader_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><head><title>t</title></head><body>
			<div id="nav"><a href="/">首頁</a></div>
			<article><p>台積電今日公布二月營收，較上月成長百分之十，法人看好後市表現，預期第一季營收將優於財測高標。</p>
			<p>分析師指出先進製程需求強勁，帶動整體毛利率維持高檔，長期成長動能不變。</p></article>
			</body></html>`)
	}))
	defer srv.Close()

	repo := NewArticleReaderRepository(config.NewsFeed{ArticleMaxLength: 20}, logger.NewNop(), metrics.NewNop())
	text, err := repo.Read(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.NotContains(t, text, "\n")
	assert.LessOrEqual(t, len([]rune(text)), 20)
	assert.NotEmpty(t, text)
}

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []string{"abc"}, SplitChunks("abc", 5))

	parts := SplitChunks("一二三四五六七", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "一二", parts[0])
	assert.Equal(t, "三四", parts[1])
	assert.Equal(t, "五六七", parts[2])
}

func TestSentiment_PredictAveragesChunks(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req sentimentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls++
		if calls == 1 {
			_, _ = io.WriteString(w, `[[{"label":"LABEL_0","score":0.8},{"label":"LABEL_1","score":0.1},{"label":"LABEL_2","score":0.1}]]`)
			return
		}
		_, _ = io.WriteString(w, `[{"label":"LABEL_2","score":0.6},{"label":"LABEL_0","score":0.2},{"label":"LABEL_1","score":0.2}]`)
	}))
	defer srv.Close()

	repo := NewSentimentRepository(config.Sentiment{Upstream: config.Upstream{BaseURL: srv.URL}, APIKey: "key", ChunkRunes: 4}, logger.NewNop(), metrics.NewNop())
	p, err := repo.Predict(context.Background(), "一二三四五六")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.InDelta(t, 0.5, p.Positive, 1e-9)
	assert.InDelta(t, 0.15, p.Neutral, 1e-9)
	assert.InDelta(t, 0.35, p.Negative, 1e-9)
}

func TestSentiment_EmptyText(t *testing.T) {
	repo := NewSentimentRepository(config.Sentiment{}, logger.NewNop(), metrics.NewNop())
	_, err := repo.Predict(context.Background(), "  ")
	assert.True(t, errors.Is(err, dto.ErrInputUnavailable))
}

func TestParseSentiment_MissingLabel(t *testing.T) {
	_, err := parseSentiment([]byte(`[{"label":"LABEL_0","score":1}]`))
	assert.Error(t, err)
}

func TestGeminiInsight_GenerateInsight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		var req dto.GeminiAPIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "籌碼面")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"  外資連續買超，籌碼偏多。 "}]}}]}`)
	}))
	defer srv.Close()

	repo := NewGeminiInsightRepository(config.Gemini{BaseURL: srv.URL, Model: "gemini-test", APIKey: "k"}, logger.NewNop(), nil)
	text, err := repo.GenerateInsight(context.Background(), dto.InsightFacts{StockID: "2330", Category: "chip", TotalScore: 12, DirectionLabel: "極多"})
	require.NoError(t, err)
	assert.Equal(t, "外資連續買超，籌碼偏多。", text)
}

func TestGeminiInsight_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	repo := NewGeminiInsightRepository(config.Gemini{BaseURL: srv.URL, Model: "m"}, logger.NewNop(), nil)
	_, err := repo.GenerateInsight(context.Background(), dto.InsightFacts{Category: "technical"})
	assert.Error(t, err)
}

func TestBuildInsightPrompt(t *testing.T) {
	prompt := BuildInsightPrompt(dto.InsightFacts{
		StockID:         "2330",
		StockName:       "台積電",
		Category:        "fundamentals",
		Date:            "2025-03-14",
		TotalScore:      18,
		DirectionLabel:  "極多",
		PositiveFactors: []string{"PE", "EPS"},
	})
	assert.Contains(t, prompt, "基本面")
	assert.Contains(t, prompt, "PE、EPS")
	assert.Contains(t, prompt, "負面因子：無")
	assert.Contains(t, prompt, "18.00（極多）")
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
