package dto

import "time"

// PriceBar is one daily OHLCV observation. Volume is in lots (1000 shares).
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// InstitutionalFlow is the net buy/sell of the three institutional groups, in lots.
type InstitutionalFlow struct {
	Date            time.Time `json:"date"`
	Foreign         float64   `json:"foreign"`
	InvestmentTrust float64   `json:"investment_trust"`
	Dealer          float64   `json:"dealer"`
}

// MainForceFlow is the net flow of the dominant brokers, in lots.
type MainForceFlow struct {
	Date time.Time `json:"date"`
	Net  float64   `json:"net"`
}

// MarginTrading holds the margin purchase and short sale movements of a day.
// ShortMarginRatio is short balance over margin balance in percent.
type MarginTrading struct {
	Date             time.Time `json:"date"`
	MarginChange     float64   `json:"margin_change"`
	MarginBalance    float64   `json:"margin_balance"`
	ShortChange      float64   `json:"short_change"`
	ShortBalance     float64   `json:"short_balance"`
	ShortMarginRatio float64   `json:"short_margin_ratio"`
}

// ChipSeries groups the raw chip inputs of one stock. An empty slice means
// the source was unavailable.
type ChipSeries struct {
	Prices        []PriceBar
	Institutional []InstitutionalFlow
	MainForce     []MainForceFlow
	Margin        []MarginTrading
}

// ChipDay is one aligned, derived chip row.
type ChipDay struct {
	Date   time.Time `json:"date"`
	Close  Metric    `json:"Close"`
	Volume Metric    `json:"Volume"`

	Foreign   Metric `json:"Foreign"`
	Trust     Metric `json:"Trust"`
	Dealer    Metric `json:"Dealer"`
	MainForce Metric `json:"MainForce"`

	ForeignStreak   Metric `json:"Foreign_Streak"`
	TrustStreak     Metric `json:"Trust_Streak"`
	DealerStreak    Metric `json:"Dealer_Streak"`
	MainForceStreak Metric `json:"MainForce_Streak"`

	ForeignRatio   Metric `json:"Foreign_Ratio"`
	TrustRatio     Metric `json:"Trust_Ratio"`
	DealerRatio    Metric `json:"Dealer_Ratio"`
	MainForceRatio Metric `json:"MainForce_Ratio"`

	MarginChange      Metric `json:"MarginChange"`
	MarginBalance     Metric `json:"MarginBalance"`
	ShortChange       Metric `json:"ShortChange"`
	ShortBalance      Metric `json:"ShortBalance"`
	ShortMarginRatio  Metric `json:"ShortMarginRatio"`
	MarginChangeRatio Metric `json:"MarginChange_Ratio"`
	ShortChangeRatio  Metric `json:"ShortChange_Ratio"`
}

// TechnicalDay is one row of computed technical indicators.
type TechnicalDay struct {
	Date      time.Time `json:"date"`
	Close     Metric    `json:"Close"`
	EMA5      Metric    `json:"EMA_5"`
	EMA10     Metric    `json:"EMA_10"`
	MACD      Metric    `json:"MACD"`
	Signal    Metric    `json:"Signal Line"`
	Histogram Metric    `json:"Histogram"`
	K         Metric    `json:"%K"`
	D         Metric    `json:"%D"`
	RSI       Metric    `json:"RSI_5"`
	ROC       Metric    `json:"ROC"`
	SMA       Metric    `json:"SMA_6"`
	Bias      Metric    `json:"BIAS"`
}
