package rule

import "golang-stock-scorer/internal/scoring/dto"

// Gt and the helpers below build predicates over a metric selector.

func Gt[T any](get func(T) dto.Metric, bound float64) Predicate[T] {
	return func(in T) (bool, bool) {
		m := get(in)
		return m.Valid && m.Value > bound, m.Valid
	}
}

func Ge[T any](get func(T) dto.Metric, bound float64) Predicate[T] {
	return func(in T) (bool, bool) {
		m := get(in)
		return m.Valid && m.Value >= bound, m.Valid
	}
}

func Lt[T any](get func(T) dto.Metric, bound float64) Predicate[T] {
	return func(in T) (bool, bool) {
		m := get(in)
		return m.Valid && m.Value < bound, m.Valid
	}
}

func Le[T any](get func(T) dto.Metric, bound float64) Predicate[T] {
	return func(in T) (bool, bool) {
		m := get(in)
		return m.Valid && m.Value <= bound, m.Valid
	}
}

// GeOther compares two metrics of the same input.
func GeOther[T any](a, b func(T) dto.Metric) Predicate[T] {
	return func(in T) (bool, bool) {
		x, y := a(in), b(in)
		ok := x.Valid && y.Valid
		return ok && x.Value >= y.Value, ok
	}
}

func GtOther[T any](a, b func(T) dto.Metric) Predicate[T] {
	return func(in T) (bool, bool) {
		x, y := a(in), b(in)
		ok := x.Valid && y.Valid
		return ok && x.Value > y.Value, ok
	}
}

// All holds when every predicate holds; unavailable if any input is.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	return func(in T) (bool, bool) {
		hit := true
		for _, p := range preds {
			h, ok := p(in)
			if !ok {
				return false, false
			}
			hit = hit && h
		}
		return hit, true
	}
}

func LtOther[T any](a, b func(T) dto.Metric) Predicate[T] { return GtOther(b, a) }

func LeOther[T any](a, b func(T) dto.Metric) Predicate[T] { return GeOther(b, a) }
