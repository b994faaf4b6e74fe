package formulas

import "math"

// Returns converts a value series into simple percentage returns.
// The result has the same length as the input with the first element set
// to NaN, keeping the date index intact. There is no prior observation to
// compute the first return from, so it is a gap marker by definition.
func Returns(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(out) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if math.IsNaN(prev) || math.IsNaN(cur) {
			out[i] = math.NaN()
			continue
		}
		if prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cur/prev - 1
	}
	return out
}

// LogReturns converts a value series into logarithmic returns,
// ln(v[t] / v[t-1]), first element NaN.
func LogReturns(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(out) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if math.IsNaN(prev) || math.IsNaN(cur) || prev <= 0 || cur <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(cur / prev)
	}
	return out
}

// Diffs converts a value series into period differences over the given
// lag. The first lag elements are NaN.
func Diffs(values []float64, lag int) []float64 {
	if lag < 1 {
		lag = 1
	}
	out := make([]float64, len(values))
	for i := 0; i < lag && i < len(out); i++ {
		out[i] = math.NaN()
	}
	for i := lag; i < len(values); i++ {
		prev, cur := values[i-lag], values[i]
		if math.IsNaN(prev) || math.IsNaN(cur) {
			out[i] = math.NaN()
			continue
		}
		out[i] = cur - prev
	}
	return out
}

// CumulativeFromReturns compounds a return series forward from 1.0:
// v[0] = 1, v[t] = v[t-1] * (1 + r[t]). NaN returns are treated as
// zero change.
func CumulativeFromReturns(returns []float64) []float64 {
	out := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		if i > 0 && !math.IsNaN(r) {
			acc *= 1 + r
		}
		out[i] = acc
	}
	return out
}

// Rebase scales a value series so that its first finite value is 1.0.
func Rebase(values []float64) []float64 {
	out := make([]float64, len(values))
	base := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) {
			base = v
			break
		}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsNaN(base) || base == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = v / base
	}
	return out
}

// ForwardFill replaces each NaN with the last preceding finite value.
// A leading NaN is left in place since there is nothing to fill from.
func ForwardFill(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	last := math.NaN()
	for i, v := range out {
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				out[i] = last
			}
		} else {
			last = v
		}
	}
	return out
}

// ZeroFill replaces each NaN with 0.0, the "no change" interpretation
// for a return series.
func ZeroFill(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = 0
		} else {
			out[i] = v
		}
	}
	return out
}

// DropNaN returns the finite elements of the slice, preserving order.
func DropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
