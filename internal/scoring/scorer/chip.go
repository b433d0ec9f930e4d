package scorer

import (
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/rule"
)

type chipComponent struct {
	name string
	eval func(dto.ChipDay) float64
}

// ChipScorer scores institutional flow, broker concentration and margin
// trading activity of one day.
type ChipScorer struct {
	components []chipComponent
	scale      rule.Scale
}

func NewChipScorer() *ChipScorer {
	var (
		foreign   = func(d dto.ChipDay) dto.Metric { return d.Foreign }
		trust     = func(d dto.ChipDay) dto.Metric { return d.Trust }
		dealer    = func(d dto.ChipDay) dto.Metric { return d.Dealer }
		mainForce = func(d dto.ChipDay) dto.Metric { return d.MainForce }
		margin    = func(d dto.ChipDay) dto.Metric { return d.MarginChange }
		short     = func(d dto.ChipDay) dto.Metric { return d.ShortChange }
	)

	flow := func(name string, get func(dto.ChipDay) dto.Metric) chipComponent {
		r := rule.Rule[dto.ChipDay]{When: rule.Gt(get, 0), Weight: 1, Else: -1}
		return chipComponent{name, r.Eval}
	}
	streak := func(name string, get func(dto.ChipDay) dto.Metric) chipComponent {
		t := rule.Table[dto.ChipDay]{
			Cases: []rule.Case[dto.ChipDay]{
				{When: rule.Ge(get, 3), Score: 2},
				{When: rule.Le(get, -3), Score: -2},
			},
		}
		t.Missing = t.Lowest()
		return chipComponent{name, t.Eval}
	}
	ratio := func(name string, get func(dto.ChipDay) dto.Metric, b rule.Buckets) chipComponent {
		return chipComponent{name, func(d dto.ChipDay) float64 { return b.Score(get(d)) }}
	}
	table := func(name string, cases ...rule.Case[dto.ChipDay]) chipComponent {
		t := rule.Table[dto.ChipDay]{Cases: cases}
		t.Missing = t.Lowest()
		return chipComponent{name, t.Eval}
	}
	marginRatio := func(d dto.ChipDay) dto.Metric { return d.MarginChangeRatio }
	shortRatio := func(d dto.ChipDay) dto.Metric { return d.ShortChangeRatio }

	bullCombo := rule.Rule[dto.ChipDay]{When: rule.All(rule.Gt(margin, 0), rule.Lt(short, 0)), Weight: 3}
	bearCombo := rule.Rule[dto.ChipDay]{When: rule.All(rule.Gt(short, 0), rule.Lt(margin, 0)), Weight: -3}

	return &ChipScorer{
		components: []chipComponent{
			flow("Foreign_Flow_Score", foreign),
			flow("Trust_Flow_Score", trust),
			flow("Dealer_Flow_Score", dealer),
			flow("MainForce_Flow_Score", mainForce),

			streak("Foreign_Streak_Score", func(d dto.ChipDay) dto.Metric { return d.ForeignStreak }),
			streak("Trust_Streak_Score", func(d dto.ChipDay) dto.Metric { return d.TrustStreak }),
			streak("Dealer_Streak_Score", func(d dto.ChipDay) dto.Metric { return d.DealerStreak }),
			streak("MainForce_Streak_Score", func(d dto.ChipDay) dto.Metric { return d.MainForceStreak }),

			ratio("Foreign_Ratio_Score", func(d dto.ChipDay) dto.Metric { return d.ForeignRatio },
				rule.Buckets{Tiers: []rule.Tier{{Above: 0.15, Score: 2}, {Above: 0.05, Inclusive: true, Score: 1}}}),
			ratio("Trust_Ratio_Score", func(d dto.ChipDay) dto.Metric { return d.TrustRatio },
				rule.Buckets{Tiers: []rule.Tier{{Above: 0.1, Score: 2}, {Above: 0.05, Inclusive: true, Score: 1}}}),
			ratio("Dealer_Ratio_Score", func(d dto.ChipDay) dto.Metric { return d.DealerRatio },
				rule.Buckets{Tiers: []rule.Tier{{Above: 0.04, Score: 1}}}),
			ratio("MainForce_Ratio_Score", func(d dto.ChipDay) dto.Metric { return d.MainForceRatio },
				rule.Buckets{Tiers: []rule.Tier{{Above: 0.12, Score: 2}, {Above: 0.07, Inclusive: true, Score: 1}}}),

			// Moderate margin growth is bullish, a surge is a warning.
			table("MarginChangeRatio_Score",
				rule.Case[dto.ChipDay]{When: rule.Gt(marginRatio, 0.05), Score: -1},
				rule.Case[dto.ChipDay]{When: rule.Gt(marginRatio, 0.02), Score: 2},
				rule.Case[dto.ChipDay]{When: rule.Lt(marginRatio, -0.05), Score: -2},
				rule.Case[dto.ChipDay]{When: rule.Lt(marginRatio, -0.02), Score: 1},
			),
			table("ShortChangeRatio_Score",
				rule.Case[dto.ChipDay]{When: rule.Gt(shortRatio, 0.05), Score: -2},
				rule.Case[dto.ChipDay]{When: rule.Gt(shortRatio, 0.02), Score: 1},
				rule.Case[dto.ChipDay]{When: rule.Lt(shortRatio, -0.05), Score: -1},
				rule.Case[dto.ChipDay]{When: rule.Lt(shortRatio, -0.02), Score: 2},
			),
			table("MarginChange_Score",
				rule.Case[dto.ChipDay]{When: rule.Gt(margin, 0), Score: 1},
				rule.Case[dto.ChipDay]{When: rule.Lt(margin, 0), Score: -1},
			),
			table("ShortChange_Score",
				rule.Case[dto.ChipDay]{When: rule.Gt(short, 0), Score: -1},
				rule.Case[dto.ChipDay]{When: rule.Lt(short, 0), Score: 1},
			),
			ratio("ShortMarginRatio_Score", func(d dto.ChipDay) dto.Metric { return d.ShortMarginRatio },
				rule.Buckets{Tiers: []rule.Tier{{Above: 0.2, Score: 2}, {Above: 0.1, Inclusive: true, Score: 1}}}),

			{"MarginShortCombo_Score", func(d dto.ChipDay) float64 { return bullCombo.Eval(d) + bearCombo.Eval(d) }},
		},
		scale: fourLevelScale(8, 0, -8, false),
	}
}

// ScoreDay returns the sub-scores and total of one row.
func (s *ChipScorer) ScoreDay(day dto.ChipDay) ([]dto.SubScore, float64) {
	subs := make([]dto.SubScore, 0, len(s.components))
	for _, c := range s.components {
		subs = append(subs, dto.SubScore{Name: c.name, Value: c.eval(day)})
	}
	return subs, total(subs)
}

// Score scores every row of the aligned table and reports the latest one,
// together with its backtest accuracy flag. rows must be ascending and non-empty.
func (s *ChipScorer) Score(rows []dto.ChipDay) dto.ScoreResult {
	if len(rows) == 0 {
		rows = []dto.ChipDay{{}}
	}
	totals := make([]float64, len(rows))
	var latest []dto.SubScore
	for i, row := range rows {
		subs, sum := s.ScoreDay(row)
		totals[i] = sum
		if i == len(rows)-1 {
			latest = subs
		}
	}

	last := rows[len(rows)-1]
	sum := totals[len(totals)-1]
	level := s.scale.Classify(sum)
	accurate := Backtest(rows, totals)

	detail := withSubScores(flatten(last), latest)
	detail["Score"] = sum
	detail["TotalScore"] = sum
	detail["accurate"] = accurate[len(accurate)-1]
	detail["direction"] = level.Direction
	detail["direction_label"] = level.Label

	dataDate := last.Date
	return dto.ScoreResult{
		Score:          sum,
		Direction:      level.Direction,
		DirectionLabel: level.Label,
		SubScores:      latest,
		Detail:         detail,
		DataDate:       &dataDate,
	}
}
