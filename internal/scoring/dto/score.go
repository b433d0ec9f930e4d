package dto

import "time"

// SubScore is one named contribution to a category total. Names end in
// "_Score" on the wire.
type SubScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ScoreResult is what a scorer produces before it is keyed and persisted.
type ScoreResult struct {
	Score          float64                `json:"TotalScore"`
	Direction      int                    `json:"direction"`
	DirectionLabel string                 `json:"direction_label"`
	SubScores      []SubScore             `json:"sub_scores"`
	Detail         map[string]interface{} `json:"detail"`
	DataDate       *time.Time             `json:"data_date,omitempty"`
}

// ScoreResponse is the HTTP representation of a score record.
type ScoreResponse struct {
	StockID         string                 `json:"stock_id"`
	Date            string                 `json:"date"`
	Type            string                 `json:"type"`
	TotalScore      float64                `json:"TotalScore"`
	Direction       int                    `json:"direction"`
	DirectionLabel  string                 `json:"direction_label"`
	Data            map[string]interface{} `json:"data"`
	PositiveFactors []string               `json:"positive_factors"`
	NegativeFactors []string               `json:"negative_factors"`
	Insight         *string                `json:"insight,omitempty"`
}

// NoDataResponse is returned with 200 when there is nothing to score.
type NoDataResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// InsightFacts is the input of an insight generator.
type InsightFacts struct {
	StockID         string
	StockName       string
	Category        string
	Date            string
	TotalScore      float64
	DirectionLabel  string
	PositiveFactors []string
	NegativeFactors []string
	Detail          map[string]interface{}
}
