package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/store"
	"golang-stock-scorer/pkg/utils"
)

var testDate = time.Date(2025, 3, 14, 0, 0, 0, 0, utils.GetTaipeiTimeLocation())

type fakeDirectory struct {
	stocks map[string]entity.Stock
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{stocks: map[string]entity.Stock{
		"2330":  {Code: "2330", Name: "台積電", Market: entity.MarketTWSE},
		"6488":  {Code: "6488", Name: "環球晶", Market: entity.MarketTPEX},
		"^TWII": {Code: "^TWII", Name: "加權指數", Market: entity.MarketIndex},
	}}
}

func (f *fakeDirectory) Lookup(_ context.Context, keyword string) (*entity.Stock, error) {
	s, ok := f.stocks[keyword]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dto.ErrStockNotFound, keyword)
	}
	return &s, nil
}

type fixedResolver struct{ date time.Time }

func (r fixedResolver) Resolve(_ context.Context, category entity.Category, _ time.Time, explicit *time.Time) (time.Time, error) {
	if !category.Valid() {
		return time.Time{}, dto.ErrInvalidCategory
	}
	if explicit != nil {
		return *explicit, nil
	}
	return r.date, nil
}

type memoryScoreStore struct {
	mu   sync.Mutex
	rows map[string]*entity.ScoreRecord
	puts int
}

func newMemoryScoreStore() *memoryScoreStore {
	return &memoryScoreStore{rows: map[string]*entity.ScoreRecord{}}
}

func (m *memoryScoreStore) Get(_ context.Context, stockID string, date time.Time, c entity.Category) (*entity.ScoreRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[store.ScoreKey(stockID, date, c)]
	return r.Clone(), ok
}

func (m *memoryScoreStore) Put(_ context.Context, r *entity.ScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.rows[store.ScoreKey(r.StockID, r.RecordDate, r.Category)] = r.Clone()
	return nil
}

func (m *memoryScoreStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

type fakePipeline struct {
	category entity.Category
	calls    int32
	delay    time.Duration
	run      func(ctx context.Context, stock entity.Stock) (*dto.ScoreResult, error)
}

func (p *fakePipeline) GetCategory() entity.Category { return p.category }

func (p *fakePipeline) Execute(ctx context.Context, stock entity.Stock, _ time.Time) (*dto.ScoreResult, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.run != nil {
		return p.run(ctx, stock)
	}
	return &dto.ScoreResult{
		Score:          5,
		Direction:      1,
		DirectionLabel: "偏多",
		SubScores: []dto.SubScore{
			{Name: "Foreign_Flow_Score", Value: 1},
			{Name: "Foreign_Streak_Score", Value: 2},
			{Name: "MarginChange_Score", Value: -1},
			{Name: "Dealer_Flow_Score", Value: 0},
		},
		Detail: map[string]interface{}{"TotalScore": 5.0},
	}, nil
}

func (p *fakePipeline) callCount() int { return int(atomic.LoadInt32(&p.calls)) }

type fakeInsight struct {
	calls int32
	err   error
}

func (f *fakeInsight) GenerateInsight(_ context.Context, facts dto.InsightFacts) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	return facts.StockName + " " + facts.DirectionLabel, nil
}

type fakeRange struct {
	from, to time.Time
	stockID  string
}

func (f *fakeRange) Upsert(context.Context, *entity.ScoreRecord) error { return nil }
func (f *fakeRange) Find(context.Context, string, time.Time, entity.Category) (*entity.ScoreRecord, error) {
	return nil, nil
}
func (f *fakeRange) FindRange(_ context.Context, stockID string, _ entity.Category, from, to time.Time) ([]entity.ScoreRecord, error) {
	f.stockID, f.from, f.to = stockID, from, to
	return []entity.ScoreRecord{{StockID: stockID}}, nil
}

type fakeNewsRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.NewsSentiment
}

func (f *fakeNewsRepo) Upsert(_ context.Context, n *entity.NewsSentiment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[string]*entity.NewsSentiment{}
	}
	if existing, ok := f.rows[n.URL]; ok {
		existing.Merge(n)
		return nil
	}
	f.rows[n.URL] = n.Clone()
	return nil
}

func (f *fakeNewsRepo) FindByURL(_ context.Context, url string) (*entity.NewsSentiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[url].Clone(), nil
}

type fakeFeed struct {
	articles []dto.Article
	err      error
}

func (f *fakeFeed) ListArticles(_ context.Context, _ entity.Stock, limit int) ([]dto.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.articles) > limit {
		return f.articles[:limit], nil
	}
	return f.articles, nil
}

type fakeReader struct {
	calls int32
	texts map[string]string
}

func (f *fakeReader) Read(_ context.Context, url string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	text, ok := f.texts[url]
	if !ok {
		return "", fmt.Errorf("%w: 404", dto.ErrInputUnavailable)
	}
	return text, nil
}

type fakeSentiment struct {
	calls  int32
	byText map[string]dto.SentimentPrediction
}

func (f *fakeSentiment) Predict(_ context.Context, text string) (*dto.SentimentPrediction, error) {
	atomic.AddInt32(&f.calls, 1)
	p, ok := f.byText[text]
	if !ok {
		return nil, fmt.Errorf("classifier unavailable")
	}
	return &p, nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) SendMessage(text string) error {
	f.messages = append(f.messages, text)
	return nil
}
