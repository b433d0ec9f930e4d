package indicator

import (
	"math"

	"golang-stock-scorer/internal/scoring/dto"

	"github.com/shopspring/decimal"
)

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Sign is +1 for x >= 0 and -1 otherwise.
func Sign(x float64) int {
	if x >= 0 {
		return 1
	}
	return -1
}

// Streak returns the signed run length of consecutive same-sign values:
// it grows by the sign while the sign holds and restarts at ±1 on a flip.
func Streak(values []float64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		s := Sign(v)
		if i > 0 && Sign(float64(out[i-1])) == s {
			out[i] = out[i-1] + s
			continue
		}
		out[i] = s
	}
	return out
}

// ParticipationRatio is abs(flow)/volume rounded to 4 decimals. It is
// unavailable when volume is zero.
func ParticipationRatio(flow, volume float64) dto.Metric {
	if volume == 0 {
		return dto.None()
	}
	return dto.Some(Round(math.Abs(flow)/volume, 4))
}

// ChangeRatio is increment over the balance before the increment. A zero
// prior balance yields 0 instead of an infinite ratio.
func ChangeRatio(increment, balance float64) float64 {
	prior := balance - increment
	r := increment / prior
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0
	}
	return r
}

// Bias is the percent distance of close from its moving average, rounded to 2 decimals.
func Bias(close float64, ma dto.Metric) dto.Metric {
	if !ma.Valid || ma.Value == 0 {
		return dto.None()
	}
	return dto.Some(Round((close-ma.Value)/ma.Value*100, 2))
}
