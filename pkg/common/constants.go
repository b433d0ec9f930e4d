package common

const (
	// ReferenceIndexTWSE is the index whose trading days define the calendar.
	ReferenceIndexTWSE = "^TWII"
	ReferenceIndexTPEX = "^TWOII"

	SuffixTWSE = ".TW"
	SuffixTPEX = ".TWO"

	CacheKeyScorePrefix        = "score"
	CacheKeyNewsPrefix         = "news"
	RedisKeyTradingCalendar    = "trading_calendar"
	DefaultUserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultNewsArticleLimit    = 10
	DefaultTradingLookbackDays = 14
)
