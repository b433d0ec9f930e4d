package scorer

import "golang-stock-scorer/internal/scoring/dto"

// Backtest flags, for each day, whether the score sign agreed with the next
// day's close move: 1 when a positive score is followed by a higher close or
// a non-positive score by a close that is not higher. The last day has no
// next close and is always 0.
func Backtest(rows []dto.ChipDay, scores []float64) []int {
	up := make([]bool, len(rows))
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].Close, rows[i].Close
		up[i] = prev.Valid && cur.Valid && cur.Value > prev.Value
	}

	out := make([]int, len(rows))
	for i := 0; i+1 < len(rows) && i < len(scores); i++ {
		next := up[i+1]
		if (scores[i] > 0 && next) || (scores[i] <= 0 && !next) {
			out[i] = 1
		}
	}
	return out
}

// HitRate is the share of days with a known outcome whose flag is 1.
func HitRate(flags []int) float64 {
	if len(flags) < 2 {
		return 0
	}
	hits := 0
	for _, f := range flags[:len(flags)-1] {
		hits += f
	}
	return float64(hits) / float64(len(flags)-1)
}
