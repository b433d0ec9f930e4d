package scorer

import (
	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/rule"
)

type fundamentalMetric struct {
	name    string
	get     func(dto.Fundamentals) dto.Metric
	buckets rule.Buckets
}

// FundamentalsScorer scores the valuation, growth and profitability of the
// latest snapshot. Each of the nine metrics scores -2..2.
type FundamentalsScorer struct {
	metrics []fundamentalMetric
	scale   rule.Scale
}

func tiers(pairs ...float64) []rule.Tier {
	out := make([]rule.Tier, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, rule.Tier{Above: pairs[i], Score: pairs[i+1]})
	}
	return out
}

func NewFundamentalsScorer() *FundamentalsScorer {
	profit := func(top, mid, low float64) rule.Buckets {
		return rule.Buckets{Tiers: tiers(top, 2, mid, 1, low, 0, 0, -1), Floor: -2, Missing: -2}
	}
	return &FundamentalsScorer{
		metrics: []fundamentalMetric{
			// Lower is better for PE; non-positive PE means losses.
			{"PE_Score", func(f dto.Fundamentals) dto.Metric { return f.PE },
				rule.Buckets{Tiers: tiers(40, -2, 30, -1, 25, 0, 20, 1, 0, 2), Floor: -2, Missing: -2}},
			{"MoM_Score", func(f dto.Fundamentals) dto.Metric { return f.MoM },
				rule.Buckets{Tiers: tiers(0.10, 2, 0.03, 1, 0, 0, -0.10, -1), Floor: -2, Missing: -2}},
			{"YoY_Score", func(f dto.Fundamentals) dto.Metric { return f.YoY },
				rule.Buckets{Tiers: tiers(0.20, 2, 0.05, 1, 0, 0, -0.10, -1), Floor: -2, Missing: -2}},
			{"EPS_Score", func(f dto.Fundamentals) dto.Metric { return f.EPS },
				rule.Buckets{Tiers: tiers(5, 2, 2, 1, 0, 0, -1, -1), Floor: -2, Missing: -2}},
			{"ROE_Score", func(f dto.Fundamentals) dto.Metric { return f.ROE }, profit(0.12, 0.08, 0.04)},
			{"ROA_Score", func(f dto.Fundamentals) dto.Metric { return f.ROA }, profit(0.06, 0.03, 0.01)},
			{"GPM_Score", func(f dto.Fundamentals) dto.Metric { return f.GPM }, profit(0.40, 0.25, 0.15)},
			{"OPM_Score", func(f dto.Fundamentals) dto.Metric { return f.OPM }, profit(0.20, 0.10, 0.05)},
			{"PTPM_Score", func(f dto.Fundamentals) dto.Metric { return f.PTPM }, profit(0.20, 0.10, 0.05)},
		},
		scale: fourLevelScale(6, 2, -2, false),
	}
}

func (s *FundamentalsScorer) Score(in dto.Fundamentals) dto.ScoreResult {
	subs := make([]dto.SubScore, 0, len(s.metrics))
	for _, m := range s.metrics {
		subs = append(subs, dto.SubScore{Name: m.name, Value: m.buckets.Score(m.get(in))})
	}
	sum := total(subs)
	level := s.scale.Classify(sum)

	detail := withSubScores(flatten(in), subs)
	detail["TotalScore"] = sum
	detail["direction"] = level.Direction
	detail["direction_label"] = level.Label

	return dto.ScoreResult{
		Score:          sum,
		Direction:      level.Direction,
		DirectionLabel: level.Label,
		SubScores:      subs,
		Detail:         detail,
	}
}
