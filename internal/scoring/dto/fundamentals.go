package dto

import "time"

// Fundamentals is the latest fundamentals snapshot of a stock. Growth and
// margin figures are fractions, 0.2 meaning 20%.
type Fundamentals struct {
	PE   Metric `json:"PE"`
	MoM  Metric `json:"MoM"`
	YoY  Metric `json:"YoY"`
	EPS  Metric `json:"EPS"`
	ROE  Metric `json:"ROE"`
	ROA  Metric `json:"ROA"`
	GPM  Metric `json:"GPM"`
	OPM  Metric `json:"OPM"`
	PTPM Metric `json:"PTPM"`

	// Display only.
	IndustryPE       Metric     `json:"IndustryPE"`
	EPSGap           Metric     `json:"EPSGap"`
	CashDividend     Metric     `json:"CashDividend"`
	CashDividendDate *time.Time `json:"CashDividendDate,omitempty"`
	Period           string     `json:"Period,omitempty"`
}

// Available reports whether at least one scored metric is present.
func (f Fundamentals) Available() bool {
	for _, m := range []Metric{f.PE, f.MoM, f.YoY, f.EPS, f.ROE, f.ROA, f.GPM, f.OPM, f.PTPM} {
		if m.Valid {
			return true
		}
	}
	return false
}
