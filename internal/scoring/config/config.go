package config

import (
	"time"

	"golang-stock-scorer/pkg/config"
)

// Scoring holds the trading-date and indicator settings.
type Scoring struct {
	Timezone              string         `mapstructure:"timezone"`
	ReferenceIndex        string         `mapstructure:"reference_index"`
	CutoffHours           map[string]int `mapstructure:"cutoff_hours"`
	CalendarLookbackDays  int            `mapstructure:"calendar_lookback_days"`
	ChipLookbackDays      int            `mapstructure:"chip_lookback_days"`
	TechnicalLookbackDays int            `mapstructure:"technical_lookback_days"`
	BiasPeriod            int            `mapstructure:"bias_period"`
	NewsArticleLimit      int            `mapstructure:"news_article_limit"`
	ComputeTimeout        time.Duration  `mapstructure:"compute_timeout"`
	InsightEnabled        bool           `mapstructure:"insight_enabled"`
}

// Upstream is the common setting block of an HTTP collaborator.
type Upstream struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	BreakerMaxFailures  uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenTimeout  time.Duration `mapstructure:"breaker_open_timeout"`
}

// FinMind holds the configuration for the FinMind open data API.
type FinMind struct {
	Upstream    `mapstructure:",squash"`
	Token       string `mapstructure:"token"`
	TopBrokers  int    `mapstructure:"top_brokers"`
	BrokerDays  int    `mapstructure:"broker_days"`
	RevenueDays int    `mapstructure:"revenue_days"`
}

// YahooFinance holds the configuration for the Yahoo Finance chart API.
type YahooFinance struct {
	Upstream `mapstructure:",squash"`
}

// Sentiment holds the configuration for the sentiment classifier endpoint.
type Sentiment struct {
	Upstream   `mapstructure:",squash"`
	APIKey     string `mapstructure:"api_key"`
	ChunkRunes int    `mapstructure:"chunk_runes"`
}

// NewsFeed holds the configuration for the Google News RSS feed.
type NewsFeed struct {
	BaseURL          string        `mapstructure:"base_url"`
	Language         string        `mapstructure:"language"`
	Region           string        `mapstructure:"region"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxConcurrent    int           `mapstructure:"max_concurrent"`
	ArticleMaxLength int           `mapstructure:"article_max_length"`
}

// StockList holds the TWSE and TPEx directory sources.
type StockList struct {
	TWSEURL  string        `mapstructure:"twse_url"`
	TPEXURL  string        `mapstructure:"tpex_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// Warmup schedules precomputation of a watchlist.
type Warmup struct {
	Enabled       bool     `mapstructure:"enabled"`
	Cron          string   `mapstructure:"cron"`
	Watchlist     []string `mapstructure:"watchlist"`
	Categories    []string `mapstructure:"categories"`
	MaxConcurrent int      `mapstructure:"max_concurrent"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the score service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	API          config.API      `mapstructure:"api"`
	Scoring      Scoring         `mapstructure:"scoring"`
	FinMind      FinMind         `mapstructure:"finmind"`
	YahooFinance YahooFinance    `mapstructure:"yahoo_finance"`
	Sentiment    Sentiment       `mapstructure:"sentiment"`
	NewsFeed     NewsFeed        `mapstructure:"news_feed"`
	StockList    StockList       `mapstructure:"stock_list"`
	Gemini       Gemini          `mapstructure:"gemini"`
	Warmup       Warmup          `mapstructure:"warmup"`
	Telegram     Telegram        `mapstructure:"telegram"`
}

// Defaults are applied for keys missing from both the file and the environment.
var Defaults = map[string]interface{}{
	"app.name":                             "stock-scorer",
	"logger.level":                         "info",
	"logger.encoding":                      "json",
	"api.port":                             8080,
	"api.shutdown_timeout":                 "10s",
	"scoring.timezone":                     "Asia/Taipei",
	"scoring.reference_index":              "^TWII",
	"scoring.cutoff_hours.fundamentals":    17,
	"scoring.cutoff_hours.chip":            21,
	"scoring.cutoff_hours.technical":       14,
	"scoring.cutoff_hours.news":            17,
	"scoring.calendar_lookback_days":       14,
	"scoring.chip_lookback_days":           30,
	"scoring.technical_lookback_days":      180,
	"scoring.bias_period":                  6,
	"scoring.news_article_limit":           10,
	"scoring.compute_timeout":              "60s",
	"finmind.base_url":                     "https://api.finmindtrade.com/api/v4",
	"finmind.timeout":                      "15s",
	"finmind.max_request_per_minute":       30,
	"finmind.breaker_max_failures":         5,
	"finmind.breaker_open_timeout":         "30s",
	"finmind.top_brokers":                  15,
	"finmind.broker_days":                  10,
	"finmind.revenue_days":                 400,
	"yahoo_finance.base_url":               "https://query1.finance.yahoo.com",
	"yahoo_finance.timeout":                "10s",
	"yahoo_finance.max_request_per_minute": 60,
	"yahoo_finance.breaker_max_failures":   5,
	"yahoo_finance.breaker_open_timeout":   "30s",
	"sentiment.base_url":                   "https://api-inference.huggingface.co/models/Ynn22/news_model",
	"sentiment.timeout":                    "30s",
	"sentiment.max_request_per_minute":     60,
	"sentiment.chunk_runes":                500,
	"news_feed.base_url":                   "https://news.google.com/rss/search",
	"news_feed.language":                   "zh-TW",
	"news_feed.region":                     "TW",
	"news_feed.timeout":                    "15s",
	"news_feed.max_concurrent":             4,
	"news_feed.article_max_length":         4000,
	"stock_list.twse_url":                  "https://mopsfin.twse.com.tw/opendata/t187ap03_L.csv",
	"stock_list.tpex_url":                  "https://mopsfin.twse.com.tw/opendata/t187ap03_O.csv",
	"stock_list.timeout":                   "20s",
	"stock_list.cache_ttl":                 "24h",
	"gemini.base_url":                      "https://generativelanguage.googleapis.com/v1beta/models",
	"gemini.model":                         "gemini-2.0-flash",
	"gemini.max_request_per_minute":        10,
	"gemini.max_token_per_minute":          250000,
	"warmup.cron":                          "30 21 * * 1-5",
	"warmup.max_concurrent":                4,
}

// Load loads the score service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.LoadWithDefaults(path, &cfg, Defaults); err != nil {
		return nil, err
	}
	return &cfg, nil
}
