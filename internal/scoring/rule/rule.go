// Package rule is the threshold engine shared by the category scorers.
package rule

import (
	"golang-stock-scorer/internal/scoring/dto"
)

// Tier maps values above a bound to a score. With Inclusive set the bound
// itself also matches.
type Tier struct {
	Above     float64
	Inclusive bool
	Score     float64
}

func (t Tier) matches(v float64) bool {
	if t.Inclusive {
		return v >= t.Above
	}
	return v > t.Above
}

// Buckets scores a value against tiers ordered from the highest bound down.
// The first tier the value reaches wins; Floor applies when none does and
// Missing when the value is unavailable.
type Buckets struct {
	Tiers   []Tier
	Floor   float64
	Missing float64
}

func (b Buckets) Score(m dto.Metric) float64 {
	if !m.Valid {
		return b.Missing
	}
	for _, t := range b.Tiers {
		if t.matches(m.Value) {
			return t.Score
		}
	}
	return b.Floor
}

// Level is a direction bucket with its label.
type Level struct {
	Direction int
	Label     string
}

// Scale bins a total score into ordinal levels using the same first-match
// rule as Buckets.
type Scale struct {
	Tiers []ScaleTier
	Floor Level
}

type ScaleTier struct {
	Above     float64
	Inclusive bool
	Level     Level
}

func (s Scale) Classify(total float64) Level {
	for _, t := range s.Tiers {
		if (Tier{Above: t.Above, Inclusive: t.Inclusive}).matches(total) {
			return t.Level
		}
	}
	return s.Floor
}

// Predicate evaluates a condition on in. ok is false when an input the
// condition needs is unavailable.
type Predicate[T any] func(in T) (hit bool, ok bool)

// Rule adds Weight when When holds and Else otherwise. When the inputs are
// unavailable the rule contributes the lower of the two.
type Rule[T any] struct {
	Name   string
	When   Predicate[T]
	Weight float64
	Else   float64
}

func (r Rule[T]) Eval(in T) float64 {
	hit, ok := r.When(in)
	switch {
	case !ok:
		return min(r.Weight, r.Else)
	case hit:
		return r.Weight
	default:
		return r.Else
	}
}

// Sum adds up every rule.
func Sum[T any](rules []Rule[T], in T) float64 {
	var total float64
	for _, r := range rules {
		total += r.Eval(in)
	}
	return total
}

// Case is one ordered branch of a Table. The first case whose predicate holds wins.
type Case[T any] struct {
	When  Predicate[T]
	Score float64
}

// Table is an ordered list of mutually exclusive cases with a default and a
// value for unavailable inputs.
type Table[T any] struct {
	Cases   []Case[T]
	Default float64
	Missing float64
}

func (t Table[T]) Eval(in T) float64 {
	for _, c := range t.Cases {
		hit, ok := c.When(in)
		if !ok {
			return t.Missing
		}
		if hit {
			return c.Score
		}
	}
	return t.Default
}

// StatusRule labels an input state. Priority is the slice order.
type StatusRule[T any] struct {
	When  Predicate[T]
	Label string
}

// Status returns the label of the first matching rule, or fallback.
func Status[T any](rules []StatusRule[T], in T, fallback string) string {
	for _, r := range rules {
		if hit, ok := r.When(in); ok && hit {
			return r.Label
		}
	}
	return fallback
}

// Lowest is the minimum score a Table can emit, used as its Missing value.
func (t Table[T]) Lowest() float64 {
	lowest := t.Default
	for _, c := range t.Cases {
		lowest = min(lowest, c.Score)
	}
	return lowest
}

// Lowest is the minimum score the buckets can emit.
func (b Buckets) Lowest() float64 {
	lowest := b.Floor
	for _, t := range b.Tiers {
		lowest = min(lowest, t.Score)
	}
	return lowest
}
