// Package scorer turns normalized inputs into category scores. Scorers are
// pure: an unavailable input contributes the lowest weight its rule can
// emit, so a partial snapshot still yields a total.
package scorer

import (
	"encoding/json"
	"sort"
	"strings"

	"golang-stock-scorer/internal/scoring/dto"
	"golang-stock-scorer/internal/scoring/rule"
)

const scoreSuffix = "_Score"

// Direction labels shared by every category.
const (
	LabelStrongBull = "極多"
	LabelMildBull   = "偏多"
	LabelMildBear   = "偏空"
	LabelStrongBear = "極空"
)

func levels() (strongBull, mildBull, mildBear, strongBear rule.Level) {
	return rule.Level{Direction: 2, Label: LabelStrongBull},
		rule.Level{Direction: 1, Label: LabelMildBull},
		rule.Level{Direction: -1, Label: LabelMildBear},
		rule.Level{Direction: -2, Label: LabelStrongBear}
}

// fourLevelScale builds the >strong, >mid, >weak (or >= weak) direction scale.
func fourLevelScale(strong, mid, weak float64, weakInclusive bool) rule.Scale {
	sb, mb, wb, xb := levels()
	return rule.Scale{
		Tiers: []rule.ScaleTier{
			{Above: strong, Level: sb},
			{Above: mid, Level: mb},
			{Above: weak, Inclusive: weakInclusive, Level: wb},
		},
		Floor: xb,
	}
}

// Factors splits sub-scores into positive and negative names, each sorted by
// score from high to low, with the "_Score" suffix removed. Zero scores are dropped.
func Factors(subs []dto.SubScore) (positive, negative []string) {
	var pos, neg []dto.SubScore
	for _, s := range subs {
		switch {
		case s.Value > 0:
			pos = append(pos, s)
		case s.Value < 0:
			neg = append(neg, s)
		}
	}
	byScoreDesc := func(list []dto.SubScore) []string {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Value > list[j].Value })
		names := make([]string, len(list))
		for i, s := range list {
			names[i] = strings.TrimSuffix(s.Name, scoreSuffix)
		}
		return names
	}
	return byScoreDesc(pos), byScoreDesc(neg)
}

func total(subs []dto.SubScore) float64 {
	var sum float64
	for _, s := range subs {
		sum += s.Value
	}
	return sum
}

// flatten renders v as a JSON object map so callers can add fields next to it.
func flatten(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	raw, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

func withSubScores(detail map[string]interface{}, subs []dto.SubScore) map[string]interface{} {
	for _, s := range subs {
		detail[s.Name] = s.Value
	}
	return detail
}
