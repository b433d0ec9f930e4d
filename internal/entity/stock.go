package entity

import "golang-stock-scorer/pkg/common"

// Market is the exchange a stock is listed on.
type Market string

const (
	MarketTWSE  Market = "TWSE"
	MarketTPEX  Market = "TPEX"
	MarketIndex Market = "INDEX"
)

// Stock is one entry of the listed-company directory.
type Stock struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Market   Market `json:"market"`
}

// Symbol returns the quote symbol with its exchange suffix, e.g. 2330.TW.
func (s Stock) Symbol() string {
	switch s.Market {
	case MarketTPEX:
		return s.Code + common.SuffixTPEX
	case MarketIndex:
		return s.Code
	default:
		return s.Code + common.SuffixTWSE
	}
}
