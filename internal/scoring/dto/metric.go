package dto

import (
	"encoding/json"
	"math"
)

// Metric is a numeric input that may be unavailable. An unavailable metric
// is encoded as JSON null and is never treated as zero.
type Metric struct {
	Value float64
	Valid bool
}

// Some wraps v, mapping NaN and ±Inf to an unavailable metric.
func Some(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{Value: v, Valid: true}
}

// None is the unavailable metric.
func None() Metric {
	return Metric{}
}

// FromPointer converts an optional value.
func FromPointer(v *float64) Metric {
	if v == nil {
		return None()
	}
	return Some(*v)
}

// Or returns the value or fallback when unavailable.
func (m Metric) Or(fallback float64) float64 {
	if !m.Valid {
		return fallback
	}
	return m.Value
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Some(v)
	return nil
}
