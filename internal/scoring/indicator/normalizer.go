package indicator

import (
	"sort"
	"time"

	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/pkg/utils"
)

// Options tunes the derived columns.
type Options struct {
	BiasPeriod int
}

// DefaultOptions matches the production configuration.
var DefaultOptions = Options{BiasPeriod: 6}

func dateKey(t time.Time) string {
	return t.Format(utils.DateLayout)
}

// AlignDates returns the ascending dates present in every non-empty source.
// Empty sources are absent and do not restrict the result.
func AlignDates(sources ...[]time.Time) []time.Time {
	counts := make(map[string]int)
	first := make(map[string]time.Time)
	present := 0
	for _, src := range sources {
		if len(src) == 0 {
			continue
		}
		present++
		seen := make(map[string]bool, len(src))
		for _, d := range src {
			k := dateKey(d)
			if seen[k] {
				continue
			}
			seen[k] = true
			counts[k]++
			if _, ok := first[k]; !ok {
				first[k] = d
			}
		}
	}
	if present == 0 {
		return nil
	}

	out := make([]time.Time, 0, len(counts))
	for k, n := range counts {
		if n == present {
			out = append(out, first[k])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// BuildChipTable inner-joins the present chip sources on date and derives
// streaks, participation ratios and margin change ratios. Fields of absent
// sources stay unavailable.
func BuildChipTable(s dto.ChipSeries) []dto.ChipDay {
	prices := make(map[string]dto.PriceBar, len(s.Prices))
	var priceDates []time.Time
	for _, p := range s.Prices {
		prices[dateKey(p.Date)] = p
		priceDates = append(priceDates, p.Date)
	}
	flows := make(map[string]dto.InstitutionalFlow, len(s.Institutional))
	var flowDates []time.Time
	for _, f := range s.Institutional {
		flows[dateKey(f.Date)] = f
		flowDates = append(flowDates, f.Date)
	}
	mains := make(map[string]dto.MainForceFlow, len(s.MainForce))
	var mainDates []time.Time
	for _, m := range s.MainForce {
		mains[dateKey(m.Date)] = m
		mainDates = append(mainDates, m.Date)
	}
	margins := make(map[string]dto.MarginTrading, len(s.Margin))
	var marginDates []time.Time
	for _, m := range s.Margin {
		margins[dateKey(m.Date)] = m
		marginDates = append(marginDates, m.Date)
	}

	dates := AlignDates(priceDates, flowDates, mainDates, marginDates)
	rows := make([]dto.ChipDay, len(dates))
	var foreign, trust, dealer, main []float64
	for i, d := range dates {
		k := dateKey(d)
		row := dto.ChipDay{Date: d}
		if p, ok := prices[k]; ok {
			row.Close = dto.Some(p.Close)
			row.Volume = dto.Some(p.Volume)
		}
		if f, ok := flows[k]; ok {
			row.Foreign = dto.Some(f.Foreign)
			row.Trust = dto.Some(f.InvestmentTrust)
			row.Dealer = dto.Some(f.Dealer)
			foreign = append(foreign, f.Foreign)
			trust = append(trust, f.InvestmentTrust)
			dealer = append(dealer, f.Dealer)
		}
		if m, ok := mains[k]; ok {
			row.MainForce = dto.Some(m.Net)
			main = append(main, m.Net)
		}
		if m, ok := margins[k]; ok {
			row.MarginChange = dto.Some(m.MarginChange)
			row.MarginBalance = dto.Some(m.MarginBalance)
			row.ShortChange = dto.Some(m.ShortChange)
			row.ShortBalance = dto.Some(m.ShortBalance)
			row.ShortMarginRatio = dto.Some(m.ShortMarginRatio)
			row.MarginChangeRatio = dto.Some(ChangeRatio(m.MarginChange, m.MarginBalance))
			row.ShortChangeRatio = dto.Some(ChangeRatio(m.ShortChange, m.ShortBalance))
		}
		if row.Volume.Valid {
			if row.Foreign.Valid {
				row.ForeignRatio = ParticipationRatio(row.Foreign.Value, row.Volume.Value)
				row.TrustRatio = ParticipationRatio(row.Trust.Value, row.Volume.Value)
				row.DealerRatio = ParticipationRatio(row.Dealer.Value, row.Volume.Value)
			}
			if row.MainForce.Valid {
				row.MainForceRatio = ParticipationRatio(row.MainForce.Value, row.Volume.Value)
			}
		}
		rows[i] = row
	}

	applyStreak(rows, foreign, func(r *dto.ChipDay, v int) { r.ForeignStreak = dto.Some(float64(v)) })
	applyStreak(rows, trust, func(r *dto.ChipDay, v int) { r.TrustStreak = dto.Some(float64(v)) })
	applyStreak(rows, dealer, func(r *dto.ChipDay, v int) { r.DealerStreak = dto.Some(float64(v)) })
	applyStreak(rows, main, func(r *dto.ChipDay, v int) { r.MainForceStreak = dto.Some(float64(v)) })
	return rows
}

// applyStreak only runs when the source covers every aligned row.
func applyStreak(rows []dto.ChipDay, values []float64, set func(*dto.ChipDay, int)) {
	if len(values) != len(rows) {
		return
	}
	for i, v := range Streak(values) {
		set(&rows[i], v)
	}
}

// BuildTechnicalTable computes the indicator columns from ascending daily bars.
func BuildTechnicalTable(bars []dto.PriceBar, opts Options) []dto.TechnicalDay {
	if len(bars) == 0 {
		return nil
	}
	if opts.BiasPeriod <= 0 {
		opts = DefaultOptions
	}
	sorted := append([]dto.PriceBar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	closes := make([]float64, len(sorted))
	highs := make([]float64, len(sorted))
	lows := make([]float64, len(sorted))
	for i, b := range sorted {
		closes[i], highs[i], lows[i] = b.Close, b.High, b.Low
	}

	ema5, ema10 := EMA(closes, 5), EMA(closes, 10)
	macd, signal, hist := MACD(closes)
	k, d := KD(highs, lows, closes, 9)
	rsi := RSI(closes, 5)
	roc := ROC(closes, 5)
	sma := SMA(closes, opts.BiasPeriod)

	rows := make([]dto.TechnicalDay, len(sorted))
	for i, b := range sorted {
		rows[i] = dto.TechnicalDay{
			Date:      b.Date,
			Close:     dto.Some(b.Close),
			EMA5:      dto.Some(ema5[i]),
			EMA10:     dto.Some(ema10[i]),
			MACD:      dto.Some(macd[i]),
			Signal:    dto.Some(signal[i]),
			Histogram: dto.Some(hist[i]),
			K:         dto.Some(k[i]),
			D:         dto.Some(d[i]),
			RSI:       rsi[i],
			ROC:       roc[i],
			SMA:       sma[i],
			Bias:      Bias(b.Close, sma[i]),
		}
	}
	return rows
}
