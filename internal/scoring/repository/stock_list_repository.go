package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang-stock-scorer/internal/entity"
	"golang-stock-scorer/internal/scoring/config"
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/common"
	"golang-stock-scorer/pkg/logger"
	"golang-stock-scorer/pkg/metrics"

	"github.com/patrickmn/go-cache"
)

const stockListCacheKey = "stock_list"

var indexStocks = map[string]entity.Stock{
	common.ReferenceIndexTWSE: {Code: common.ReferenceIndexTWSE, Name: "加權指數", Market: entity.MarketIndex},
	common.ReferenceIndexTPEX: {Code: common.ReferenceIndexTPEX, Name: "櫃買指數", Market: entity.MarketIndex},
}

type stockListRepository struct {
	cfg    config.StockList
	log    *logger.Logger
	client *upstreamClient
	cache  *cache.Cache
	mu     sync.Mutex
}

// NewStockListRepository creates a directory backed by the TWSE and TPEx
// listed-company CSVs, downloaded on first use and kept for cfg.CacheTTL.
func NewStockListRepository(cfg config.StockList, log *logger.Logger, m *metrics.Registry) StockDirectoryRepository {
	return &stockListRepository{
		cfg:    cfg,
		log:    log,
		client: newUpstreamClient("stock_list", config.Upstream{Timeout: cfg.Timeout}, log, m),
		cache:  cache.New(cfg.CacheTTL, cfg.CacheTTL),
	}
}

// Lookup matches the code (suffix stripped) or the exact short name first,
// then falls back to a code prefix or a name substring.
func (r *stockListRepository) Lookup(ctx context.Context, keyword string) (*entity.Stock, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, dto.ErrStockNotFound
	}
	if s, ok := indexStocks[strings.ToUpper(keyword)]; ok {
		return &s, nil
	}

	stocks, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if s := matchStock(stocks, keyword); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", dto.ErrStockNotFound, keyword)
}

func matchStock(stocks []entity.Stock, keyword string) *entity.Stock {
	base := strings.ToUpper(keyword)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	for i := range stocks {
		if strings.ToUpper(stocks[i].Code) == base || stocks[i].Name == keyword {
			s := stocks[i]
			return &s
		}
	}

	lower := strings.ToLower(keyword)
	for i := range stocks {
		if strings.HasPrefix(stocks[i].Code, keyword) || strings.Contains(strings.ToLower(stocks[i].Name), lower) {
			s := stocks[i]
			return &s
		}
	}
	return nil
}

func (r *stockListRepository) load(ctx context.Context) ([]entity.Stock, error) {
	if v, ok := r.cache.Get(stockListCacheKey); ok {
		return v.([]entity.Stock), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.cache.Get(stockListCacheKey); ok {
		return v.([]entity.Stock), nil
	}

	var all []entity.Stock
	for _, src := range []struct {
		url    string
		market entity.Market
	}{
		{r.cfg.TWSEURL, entity.MarketTWSE},
		{r.cfg.TPEXURL, entity.MarketTPEX},
	} {
		body, err := r.client.get(ctx, src.url, map[string]string{"Accept": "text/csv"})
		if err != nil {
			return nil, fmt.Errorf("failed to download stock list: %w", err)
		}
		stocks, err := parseStockList(bytes.NewReader(body), src.market)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stock list: %w", err)
		}
		all = append(all, stocks...)
	}

	r.log.InfoContext(ctx, "Stock list loaded", logger.IntField("count", len(all)))
	r.cache.SetDefault(stockListCacheKey, all)
	return all, nil
}

// parseStockList reads the open-data CSV layout: a header row naming
// 公司代號, 公司簡稱 and 產業別 followed by one row per company.
func parseStockList(r io.Reader, market entity.Market) ([]entity.Stock, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	codeIdx, ok := col["公司代號"]
	if !ok {
		return nil, fmt.Errorf("missing 公司代號 column")
	}
	nameIdx, ok := col["公司簡稱"]
	if !ok {
		return nil, fmt.Errorf("missing 公司簡稱 column")
	}
	industryIdx, hasIndustry := col["產業別"]

	var out []entity.Stock
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if codeIdx >= len(record) || nameIdx >= len(record) {
			continue
		}
		s := entity.Stock{
			Code:   strings.TrimSpace(record[codeIdx]),
			Name:   strings.TrimSpace(record[nameIdx]),
			Market: market,
		}
		if hasIndustry && industryIdx < len(record) {
			s.Industry = strings.TrimSpace(record[industryIdx])
		}
		if s.Code == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
