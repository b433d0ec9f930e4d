package indicator

import (
	"golang-stock-scorer/internal/scoring/dto"
)

// EMA is the adjusted exponential moving average with alpha = 2/(span+1).
func EMA(values []float64, span int) []float64 {
	return ewm(values, 2/(float64(span)+1))
}

// SMMA is the smoothed moving average with alpha = 1/window.
func SMMA(values []float64, window int) []float64 {
	return ewm(values, 1/float64(window))
}

func ewm(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	decay := 1 - alpha
	var num, den float64
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// SMA is the rolling mean over n values; leading rows average what is available.
func SMA(values []float64, n int) []dto.Metric {
	out := make([]dto.Metric, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		size := n
		if i+1 < n {
			size = i + 1
		}
		out[i] = dto.Some(sum / float64(size))
	}
	return out
}

// MACD returns the 12/26 EMA spread, its 9-period signal line and the histogram.
func MACD(close []float64) (macd, signal, hist []float64) {
	fast, slow := EMA(close, 12), EMA(close, 26)
	macd = make([]float64, len(close))
	for i := range close {
		macd[i] = fast[i] - slow[i]
	}
	signal = EMA(macd, 9)
	hist = make([]float64, len(close))
	for i := range close {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// KD returns the stochastic %K and %D over an n-day window, both seeded at 50
// and smoothed by 1/3.
func KD(high, low, close []float64, n int) (k, d []float64) {
	k = make([]float64, len(close))
	d = make([]float64, len(close))
	prevK, prevD := 50.0, 50.0
	for i := range close {
		from := i - n + 1
		if from < 0 {
			from = 0
		}
		lo, hi := low[from], high[from]
		for j := from + 1; j <= i; j++ {
			if low[j] < lo {
				lo = low[j]
			}
			if high[j] > hi {
				hi = high[j]
			}
		}
		rsv := 0.0
		if hi != lo {
			rsv = (close[i] - lo) / (hi - lo) * 100
		}
		prevK = prevK*2/3 + rsv/3
		prevD = prevD*2/3 + prevK/3
		k[i], d[i] = prevK, prevD
	}
	return k, d
}

// RSI is the relative strength index over n days using smoothed gains and losses.
func RSI(close []float64, n int) []dto.Metric {
	gains := make([]float64, len(close))
	losses := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		diff := close[i] - close[i-1]
		if diff > 0 {
			gains[i] = diff
		} else {
			losses[i] = -diff
		}
	}
	up, down := SMMA(gains, n), SMMA(losses, n)
	out := make([]dto.Metric, len(close))
	for i := range close {
		if up[i]+down[i] == 0 {
			out[i] = dto.None()
			continue
		}
		out[i] = dto.Some(100 * up[i] / (up[i] + down[i]))
	}
	return out
}

// ROC is the n-day percent rate of change.
func ROC(close []float64, n int) []dto.Metric {
	out := make([]dto.Metric, len(close))
	for i := range close {
		if i < n || close[i-n] == 0 {
			out[i] = dto.None()
			continue
		}
		out[i] = dto.Some((close[i] - close[i-n]) / close[i-n] * 100)
	}
	return out
}
