package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/indicator"
	"golang-stock-scorer/internal/scoring/scorer"
	"golang-stock-scorer/internal/scoring/store"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"
	"golang-stock-scorer/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrices struct {
	bars   []dto.PriceBar
	err    error
	symbol string
}

func (f *fakePrices) GetDailyBars(_ context.Context, symbol string, _, _ time.Time) ([]dto.PriceBar, error) {
	f.symbol = symbol
	return f.bars, f.err
}

type fakeChip struct {
	flows  []dto.InstitutionalFlow
	main   []dto.MainForceFlow
	margin []dto.MarginTrading
	err    error
}

func (f *fakeChip) GetInstitutionalFlows(context.Context, string, time.Time, time.Time) ([]dto.InstitutionalFlow, error) {
	return f.flows, f.err
}

func (f *fakeChip) GetMainForce(context.Context, string, time.Time, time.Time) ([]dto.MainForceFlow, error) {
	return f.main, f.err
}

func (f *fakeChip) GetMarginTrading(context.Context, string, time.Time, time.Time) ([]dto.MarginTrading, error) {
	return f.margin, f.err
}

type fakeFundamentals struct {
	snapshot *dto.Fundamentals
	err      error
}

func (f *fakeFundamentals) GetFundamentals(context.Context, string) (*dto.Fundamentals, error) {
	return f.snapshot, f.err
}

func tradingDays(n int) []time.Time {
	days := make([]time.Time, 0, n)
	for d := testDate; len(days) < n; d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append([]time.Time{d}, days...)
	}
	return days
}

func risingBars(n int) []dto.PriceBar {
	bars := make([]dto.PriceBar, 0, n)
	for i, d := range tradingDays(n) {
		c := 100 + float64(i)
		bars = append(bars, dto.PriceBar{Date: d, Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 10000})
	}
	return bars
}

var tsmc = entity.Stock{Code: "2330", Name: "台積電", Market: entity.MarketTWSE}

func TestFundamentalsPipeline(t *testing.T) {
	t.Run("scores an available snapshot", func(t *testing.T) {
		repo := &fakeFundamentals{snapshot: &dto.Fundamentals{PE: dto.Some(12), EPS: dto.Some(10), ROE: dto.Some(0.2)}}
		p := NewFundamentalsPipeline(repo, logger.NewNop())

		result, err := p.Execute(context.Background(), tsmc, testDate)
		require.NoError(t, err)
		assert.NotEmpty(t, result.SubScores)
		assert.Equal(t, entity.CategoryFundamentals, p.GetCategory())
	})

	tests := map[string]*fakeFundamentals{
		"empty snapshot": {snapshot: &dto.Fundamentals{}},
		"nil snapshot":   {},
		"source failure": {err: errors.New("timeout")},
	}
	for name, repo := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewFundamentalsPipeline(repo, logger.NewNop()).Execute(context.Background(), tsmc, testDate)
			assert.ErrorIs(t, err, dto.ErrNoData)
		})
	}

	t.Run("index has no fundamentals", func(t *testing.T) {
		index := entity.Stock{Code: "^TWII", Market: entity.MarketIndex}
		_, err := NewFundamentalsPipeline(&fakeFundamentals{}, logger.NewNop()).Execute(context.Background(), index, testDate)
		assert.ErrorIs(t, err, dto.ErrNoData)
	})
}

func TestChipPipeline(t *testing.T) {
	days := tradingDays(5)
	chip := &fakeChip{}
	for i, d := range days {
		chip.flows = append(chip.flows, dto.InstitutionalFlow{Date: d, Foreign: 1000 + float64(i), InvestmentTrust: 200, Dealer: -50})
		chip.margin = append(chip.margin, dto.MarginTrading{Date: d, MarginChange: 30, MarginBalance: 1000, ShortChange: -5, ShortBalance: 100, ShortMarginRatio: 10})
	}
	prices := &fakePrices{bars: risingBars(5)}

	result, err := NewChipPipeline(prices, chip, 30, logger.NewNop()).Execute(context.Background(), tsmc, testDate)
	require.NoError(t, err)
	assert.Equal(t, "2330.TW", prices.symbol)
	require.NotNil(t, result.DataDate)
	assert.True(t, result.DataDate.Equal(days[len(days)-1]))
	assert.Contains(t, result.Detail, "accurate")
	subs, _ := scorer.NewChipScorer().ScoreDay(dto.ChipDay{})
	assert.Len(t, result.SubScores, len(subs))
}

func TestChipPipeline_NoData(t *testing.T) {
	tests := map[string]struct {
		stock entity.Stock
		chip  *fakeChip
	}{
		"index":        {stock: entity.Stock{Code: "^TWII", Market: entity.MarketIndex}, chip: &fakeChip{}},
		"empty inputs": {stock: tsmc, chip: &fakeChip{}},
		"all failing":  {stock: tsmc, chip: &fakeChip{err: errors.New("upstream down")}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p := NewChipPipeline(&fakePrices{bars: risingBars(5)}, tt.chip, 30, logger.NewNop())
			_, err := p.Execute(context.Background(), tt.stock, testDate)
			assert.ErrorIs(t, err, dto.ErrNoData)
		})
	}
}

func TestTechnicalPipeline(t *testing.T) {
	prices := &fakePrices{bars: risingBars(60)}
	p := NewTechnicalPipeline(prices, 180, indicator.DefaultOptions, logger.NewNop())

	result, err := p.Execute(context.Background(), tsmc, testDate)
	require.NoError(t, err)
	assert.Len(t, result.SubScores, 6)
	require.NotNil(t, result.DataDate)
	assert.True(t, result.DataDate.Equal(testDate))

	index := entity.Stock{Code: "^TWII", Market: entity.MarketIndex}
	_, err = p.Execute(context.Background(), index, testDate)
	require.NoError(t, err)
	assert.Equal(t, "^TWII", prices.symbol)
}

func TestTechnicalPipeline_NoBars(t *testing.T) {
	for name, prices := range map[string]*fakePrices{
		"empty":   {},
		"failing": {err: errors.New("chart error")},
	} {
		t.Run(name, func(t *testing.T) {
			p := NewTechnicalPipeline(prices, 180, indicator.DefaultOptions, logger.NewNop())
			_, err := p.Execute(context.Background(), tsmc, testDate)
			assert.ErrorIs(t, err, dto.ErrNoData)
		})
	}
}

type newsFixture struct {
	repo      *fakeNewsRepo
	store     store.NewsStore
	feed      *fakeFeed
	reader    *fakeReader
	sentiment *fakeSentiment
	pipeline  NewsPipeline
}

func newNewsFixture() *newsFixture {
	f := &newsFixture{
		repo:      &fakeNewsRepo{},
		feed:      &fakeFeed{},
		reader:    &fakeReader{texts: map[string]string{}},
		sentiment: &fakeSentiment{byText: map[string]dto.SentimentPrediction{}},
	}
	f.store = store.NewNewsStore(f.repo, logger.NewNop(), metrics.NewNop())
	f.pipeline = NewNewsPipeline(f.feed, f.reader, f.sentiment, f.store, 10, 2, logger.NewNop())
	return f
}

func (f *newsFixture) seed(t *testing.T, url string, p dto.SentimentPrediction) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), &entity.NewsSentiment{
		URL:      url,
		Content:  utils.ToPointer("cached " + url),
		Positive: utils.ToPointer(p.Positive),
		Neutral:  utils.ToPointer(p.Neutral),
		Negative: utils.ToPointer(p.Negative),
	}))
}

func TestNewsPipeline_ReusesCompleteEntries(t *testing.T) {
	f := newNewsFixture()
	f.seed(t, "https://a", dto.SentimentPrediction{Positive: 0.8, Neutral: 0.1, Negative: 0.1})
	f.feed.articles = []dto.Article{{URL: "https://a", Title: "A"}, {URL: "https://b", Title: "B"}}
	f.reader.texts["https://b"] = "營收創新高"
	f.sentiment.byText["營收創新高"] = dto.SentimentPrediction{Positive: 0.6, Neutral: 0.2, Negative: 0.2}

	result, err := f.pipeline.Execute(context.Background(), tsmc, testDate)
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.reader.calls)
	assert.EqualValues(t, 1, f.sentiment.calls)
	assert.Equal(t, 2, result.Direction)
	assert.Equal(t, scorer.NewsStrongPositive, result.DirectionLabel)
	assert.InDelta(t, 0.7, result.Detail["positive"], 1e-9)

	stored, ok := f.store.Get(context.Background(), "https://b")
	require.True(t, ok)
	assert.True(t, stored.Complete())
	assert.Equal(t, "B", *stored.Title)
}

func TestNewsPipeline_UnreadableArticleIsSkipped(t *testing.T) {
	f := newNewsFixture()
	f.seed(t, "https://a", dto.SentimentPrediction{Positive: 0.1, Neutral: 0.2, Negative: 0.7})
	f.feed.articles = []dto.Article{{URL: "https://a"}, {URL: "https://gone"}}

	result, err := f.pipeline.Execute(context.Background(), tsmc, testDate)
	require.NoError(t, err)
	assert.Equal(t, scorer.NewsStrongNegative, result.DirectionLabel)
	assert.EqualValues(t, 0, f.sentiment.calls)

	_, ok := f.store.Get(context.Background(), "https://gone")
	assert.False(t, ok)
}

func TestNewsPipeline_NoArticles(t *testing.T) {
	for name, feed := range map[string]*fakeFeed{
		"empty feed":  {},
		"feed failed": {err: errors.New("rss unavailable")},
	} {
		t.Run(name, func(t *testing.T) {
			f := newNewsFixture()
			f.feed.articles, f.feed.err = feed.articles, feed.err

			result, err := f.pipeline.Execute(context.Background(), tsmc, testDate)
			require.NoError(t, err)
			assert.Equal(t, scorer.NewsNoData, result.DirectionLabel)
			assert.Equal(t, 0, result.Direction)
		})
	}
}

func TestNewsPipeline_AnalyzeKeepsContentWhenClassifierFails(t *testing.T) {
	f := newNewsFixture()
	ctx := context.Background()
	f.reader.texts["https://c"] = "法說會釋出保守展望"

	partial, err := f.pipeline.Analyze(ctx, dto.Article{URL: "https://c"})
	require.Error(t, err)
	require.NotNil(t, partial)
	assert.False(t, partial.Complete())

	stored, ok := f.store.Get(ctx, "https://c")
	require.True(t, ok)
	assert.Equal(t, "法說會釋出保守展望", *stored.Content)
	assert.Nil(t, stored.Positive)

	f.sentiment.byText["法說會釋出保守展望"] = dto.SentimentPrediction{Positive: 0.1, Neutral: 0.3, Negative: 0.6}
	full, err := f.pipeline.Analyze(ctx, dto.Article{URL: "https://c"})
	require.NoError(t, err)
	assert.True(t, full.Complete())
	assert.EqualValues(t, 1, f.reader.calls)
	assert.Equal(t, 0.6, *full.Negative)
}

func TestNewsPipeline_AnalyzeEmptyURL(t *testing.T) {
	_, err := newNewsFixture().pipeline.Analyze(context.Background(), dto.Article{})
	assert.ErrorIs(t, err, dto.ErrInputUnavailable)
}

func TestGetOrComputeNewsSentiment(t *testing.T) {
	f := newNewsFixture()
	f.reader.texts["https://d"] = "接單暢旺"
	f.sentiment.byText["接單暢旺"] = dto.SentimentPrediction{Positive: 0.9, Neutral: 0.05, Negative: 0.05}
	svc := NewScoreService(newFakeDirectory(), fixedResolver{date: testDate}, newMemoryScoreStore(), &fakeRange{},
		[]ScorePipeline{f.pipeline}, f.pipeline, nil, Options{}, logger.NewNop(), metrics.NewNop())
	ctx := context.Background()

	first, err := svc.GetOrComputeNewsSentiment(ctx, "https://d")
	require.NoError(t, err)
	second, err := svc.GetOrComputeNewsSentiment(ctx, "https://d")
	require.NoError(t, err)

	assert.Equal(t, 0.9, *first.Positive)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, f.sentiment.calls)
}
