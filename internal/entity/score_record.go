package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Category is one of the four scoring families.
type Category string

const (
	CategoryFundamentals Category = "fundamentals"
	CategoryChip         Category = "chip"
	CategoryTechnical    Category = "technical"
	CategoryNews         Category = "news"
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryFundamentals, CategoryChip, CategoryTechnical, CategoryNews}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ScoreRecord is the daily score of one stock in one category.
// (StockID, RecordDate, Category) is the primary key.
type ScoreRecord struct {
	StockID         string         `gorm:"primaryKey;type:varchar(16)" json:"stock_id"`
	RecordDate      time.Time      `gorm:"primaryKey;type:date" json:"date"`
	Category        Category       `gorm:"primaryKey;type:varchar(16)" json:"type"`
	Score           float64        `json:"TotalScore"`
	Direction       int            `json:"direction"`
	DirectionLabel  string         `json:"direction_label"`
	Detail          datatypes.JSON `gorm:"type:jsonb" json:"data"`
	PositiveFactors pq.StringArray `gorm:"type:text[]" json:"positive_factors"`
	NegativeFactors pq.StringArray `gorm:"type:text[]" json:"negative_factors"`
	Insight         *string        `json:"insight,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ScoreRecord) TableName() string {
	return "score_records"
}

// Clone returns a deep copy so cached records are never shared with callers.
func (r *ScoreRecord) Clone() *ScoreRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Detail != nil {
		out.Detail = append(datatypes.JSON(nil), r.Detail...)
	}
	if r.PositiveFactors != nil {
		out.PositiveFactors = append(pq.StringArray(nil), r.PositiveFactors...)
	}
	if r.NegativeFactors != nil {
		out.NegativeFactors = append(pq.StringArray(nil), r.NegativeFactors...)
	}
	if r.Insight != nil {
		insight := *r.Insight
		out.Insight = &insight
	}
	return &out
}
