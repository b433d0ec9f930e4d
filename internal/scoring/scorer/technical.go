package scorer

import (
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/rule"
)

// Rating labels of a single technical indicator.
const (
	RatingStrongBull = "很偏多"
	RatingMildBull   = "偏多"
	RatingMildBear   = "偏空"
	RatingStrongBear = "很偏空"

	StatusConsolidating = "盤整"
)

// window is the current row together with the one before it.
type window struct {
	cur, prev dto.TechnicalDay
}

type pick func(dto.TechnicalDay) dto.Metric

func (p pick) cur() func(window) dto.Metric  { return func(w window) dto.Metric { return p(w.cur) } }
func (p pick) prev() func(window) dto.Metric { return func(w window) dto.Metric { return p(w.prev) } }

type technicalIndicator struct {
	name   string
	rules  []rule.Rule[window]
	rating rule.Scale
	status []rule.StatusRule[window]
}

// TechnicalScorer applies the EMA, MACD, KD, RSI, ROC and BIAS rule sets to
// the latest day, using the previous day for slopes and crosses.
type TechnicalScorer struct {
	indicators []technicalIndicator
	scale      rule.Scale
}

func ratingScale(strong float64) rule.Scale {
	return rule.Scale{
		Tiers: []rule.ScaleTier{
			{Above: strong, Level: rule.Level{Direction: 2, Label: RatingStrongBull}},
			{Above: 0, Level: rule.Level{Direction: 1, Label: RatingMildBull}},
			{Above: -strong, Inclusive: true, Level: rule.Level{Direction: -1, Label: RatingMildBear}},
		},
		Floor: rule.Level{Direction: -2, Label: RatingStrongBear},
	}
}

func both(hit, miss float64, p rule.Predicate[window]) rule.Rule[window] {
	return rule.Rule[window]{When: p, Weight: hit, Else: miss}
}

func bonus(w float64, p rule.Predicate[window]) rule.Rule[window] {
	return rule.Rule[window]{When: p, Weight: w}
}

// crossUp holds when a was below b yesterday and is at or above it today.
func crossUp(a, b pick) rule.Predicate[window] {
	return rule.All(rule.LtOther(a.prev(), b.prev()), rule.GeOther(a.cur(), b.cur()))
}

func crossDown(a, b pick) rule.Predicate[window] {
	return rule.All(rule.GtOther(a.prev(), b.prev()), rule.LeOther(a.cur(), b.cur()))
}

// turnUp holds when a went from negative to positive.
func turnUp(a pick) rule.Predicate[window] {
	return rule.All(rule.Gt(a.cur(), 0), rule.Lt(a.prev(), 0))
}

func turnDown(a pick) rule.Predicate[window] {
	return rule.All(rule.Lt(a.cur(), 0), rule.Gt(a.prev(), 0))
}

func NewTechnicalScorer() *TechnicalScorer {
	var (
		ema5   pick = func(d dto.TechnicalDay) dto.Metric { return d.EMA5 }
		ema10  pick = func(d dto.TechnicalDay) dto.Metric { return d.EMA10 }
		macd   pick = func(d dto.TechnicalDay) dto.Metric { return d.MACD }
		signal pick = func(d dto.TechnicalDay) dto.Metric { return d.Signal }
		hist   pick = func(d dto.TechnicalDay) dto.Metric { return d.Histogram }
		k      pick = func(d dto.TechnicalDay) dto.Metric { return d.K }
		d      pick = func(d dto.TechnicalDay) dto.Metric { return d.D }
		rsi    pick = func(d dto.TechnicalDay) dto.Metric { return d.RSI }
		roc    pick = func(d dto.TechnicalDay) dto.Metric { return d.ROC }
		bias   pick = func(d dto.TechnicalDay) dto.Metric { return d.Bias }
	)
	overbought := rule.All(rule.Gt(k.cur(), 80), rule.Gt(d.cur(), 80))
	oversold := rule.All(rule.Lt(k.cur(), 20), rule.Lt(d.cur(), 20))

	momentum := func(name string, p pick) technicalIndicator {
		return technicalIndicator{
			name: name,
			rules: []rule.Rule[window]{
				both(0.5, -0.5, rule.GtOther(p.cur(), p.prev())),
				bonus(0.7, turnUp(p)),
				bonus(-0.7, turnDown(p)),
			},
			rating: ratingScale(0.5),
			status: []rule.StatusRule[window]{
				{When: turnUp(p), Label: "翻正"},
				{When: turnDown(p), Label: "翻負"},
			},
		}
	}

	return &TechnicalScorer{
		indicators: []technicalIndicator{
			{
				name: "EMA",
				rules: []rule.Rule[window]{
					both(0.7, -0.7, rule.GeOther(ema5.cur(), ema10.cur())),
					both(0.7, -0.7, rule.GeOther(ema5.cur(), ema5.prev())),
					bonus(1, crossUp(ema5, ema10)),
					bonus(-1, crossDown(ema5, ema10)),
				},
				rating: ratingScale(1),
				status: []rule.StatusRule[window]{
					{When: crossUp(ema5, ema10), Label: "黃金交叉"},
					{When: crossDown(ema5, ema10), Label: "死亡交叉"},
					{When: rule.All(rule.GeOther(ema5.cur(), ema10.cur()), rule.GeOther(ema5.cur(), ema5.prev())), Label: "多頭排列"},
					{When: rule.All(rule.LtOther(ema5.cur(), ema10.cur()), rule.LtOther(ema5.cur(), ema5.prev())), Label: "空頭排列"},
				},
			},
			{
				name: "MACD",
				rules: []rule.Rule[window]{
					both(0.7, -0.7, rule.GeOther(macd.cur(), signal.cur())),
					both(0.5, -0.5, rule.GeOther(macd.cur(), macd.prev())),
					both(0.5, -0.5, rule.GeOther(signal.cur(), signal.prev())),
					bonus(1, crossUp(macd, signal)),
					bonus(-1, crossDown(macd, signal)),
					both(0.3, -0.3, rule.GeOther(hist.cur(), hist.prev())),
				},
				rating: ratingScale(1.2),
				status: []rule.StatusRule[window]{
					{When: crossUp(macd, signal), Label: "黃金交叉"},
					{When: crossDown(macd, signal), Label: "死亡交叉"},
					{When: rule.All(rule.Gt(hist.cur(), 0), rule.GeOther(hist.cur(), hist.prev())), Label: "多方擴張"},
					{When: rule.All(rule.Lt(hist.cur(), 0), rule.LtOther(hist.cur(), hist.prev())), Label: "空方擴張"},
				},
			},
			{
				name: "KD",
				rules: []rule.Rule[window]{
					both(0.7, -0.7, rule.GeOther(k.cur(), d.cur())),
					both(0.5, -0.5, rule.GeOther(k.cur(), k.prev())),
					both(0.5, -0.5, rule.GeOther(d.cur(), d.prev())),
					bonus(-0.5, overbought),
					bonus(0.5, oversold),
					bonus(1, crossUp(k, d)),
					bonus(-1, crossDown(k, d)),
				},
				rating: ratingScale(1.2),
				status: []rule.StatusRule[window]{
					{When: crossUp(k, d), Label: "黃金交叉"},
					{When: crossDown(k, d), Label: "死亡交叉"},
					{When: overbought, Label: "超買"},
					{When: oversold, Label: "超賣"},
				},
			},
			{
				name: "RSI",
				rules: []rule.Rule[window]{
					bonus(-0.5, rule.Gt(rsi.cur(), 70)),
					bonus(0.5, rule.Lt(rsi.cur(), 30)),
					both(0.5, -0.5, rule.GtOther(rsi.cur(), rsi.prev())),
				},
				rating: ratingScale(0.5),
				status: []rule.StatusRule[window]{
					{When: rule.Gt(rsi.cur(), 70), Label: "超買"},
					{When: rule.Lt(rsi.cur(), 30), Label: "超賣"},
				},
			},
			momentum("ROC", roc),
			momentum("BIAS", bias),
		},
		scale: fourLevelScale(3, 0, -3, true),
	}
}

// Score scores the last row of an ascending indicator table.
func (s *TechnicalScorer) Score(rows []dto.TechnicalDay) dto.ScoreResult {
	var w window
	if n := len(rows); n > 0 {
		w.cur = rows[n-1]
		if n > 1 {
			w.prev = rows[n-2]
		}
	}

	detail := flatten(w.cur)
	subs := make([]dto.SubScore, 0, len(s.indicators))
	for _, ind := range s.indicators {
		score := rule.Sum(ind.rules, w)
		subs = append(subs, dto.SubScore{Name: ind.name + scoreSuffix, Value: score})
		detail[ind.name+"_rate"] = ind.rating.Classify(score).Label
		detail[ind.name+"_status"] = rule.Status(ind.status, w, StatusConsolidating)
	}
	sum := total(subs)
	level := s.scale.Classify(sum)

	withSubScores(detail, subs)
	detail["TotalScore"] = sum
	detail["rating"] = ratingScale(3).Classify(sum).Label
	detail["direction"] = level.Direction
	detail["direction_label"] = level.Label

	result := dto.ScoreResult{
		Score:          sum,
		Direction:      level.Direction,
		DirectionLabel: level.Label,
		SubScores:      subs,
		Detail:         detail,
	}
	if !w.cur.Date.IsZero() {
		date := w.cur.Date
		result.DataDate = &date
	}
	return result
}
