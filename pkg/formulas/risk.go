package formulas

import (
	"math"
	"sort"
	"time"
)

// QuantileInterp selects the percentile convention used for historical VaR.
type QuantileInterp string

const (
	// InterpInclusive interpolates linearly between order statistics,
	// the equivalent of PERCENTILE.INC in MS Excel.
	InterpInclusive QuantileInterp = "inclusive"
	// InterpLower takes the lower bracketing order statistic.
	InterpLower QuantileInterp = "lower"
)

// VaRDown calculates the historical downside Value at Risk: the return at
// the (1-level) percentile of the empirical return distribution. A loss
// is reported as a negative number.
func VaRDown(returns []float64, level float64, interp QuantileInterp) float64 {
	clean := DropNaN(returns)
	if len(clean) == 0 {
		return 0
	}
	if interp == InterpLower {
		return PercentileLower(clean, 1-level)
	}
	return PercentileInc(clean, 1-level)
}

// CVaRDown calculates the downside Conditional Value at Risk: the mean of
// the worst ceil(n*(1-level)) returns, i.e. the expected loss given that
// the loss is at or beyond the VaR threshold.
func CVaRDown(returns []float64, level float64) float64 {
	clean := DropNaN(returns)
	if len(clean) == 0 {
		return 0
	}
	if len(clean) == 1 {
		return clean[0]
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	tail := int(math.Ceil(float64(len(sorted)) * (1 - level)))
	if tail < 1 {
		tail = 1
	}
	if tail > len(sorted) {
		tail = len(sorted)
	}

	sum := 0.0
	for _, r := range sorted[:tail] {
		sum += r
	}
	return sum / float64(tail)
}

// DownsideDeviation calculates the annualized standard deviation of
// returns falling below the minimum accepted return, using the full
// observation count as denominator. When no return falls below the
// threshold the result is 0.0, a legitimate value rather than an error.
func DownsideDeviation(returns []float64, minAcceptedReturn, periodsPerYear float64) float64 {
	clean := DropNaN(returns)
	if len(clean) == 0 {
		return 0
	}

	perPeriodMAR := 0.0
	if periodsPerYear > 0 {
		perPeriodMAR = minAcceptedReturn / periodsPerYear
	}

	sumSq := 0.0
	for _, r := range clean {
		if d := r - perPeriodMAR; d < 0 {
			sumSq += d * d
		}
	}
	return math.Sqrt(sumSq/float64(len(clean))) * math.Sqrt(periodsPerYear)
}

// DrawdownSeries converts a value series into a drawdown series:
// d[t] = v[t] / max(v[0..t]) - 1. The result is 0 at running maxima and
// negative below the high-water mark. NaN gaps are forward-filled before
// the running maximum is taken so gaps do not reset the peak.
func DrawdownSeries(values []float64) []float64 {
	filled := ForwardFill(values)
	out := make([]float64, len(filled))
	peak := math.Inf(-1)
	for i, v := range filled {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		if v > peak {
			peak = v
		}
		out[i] = v/peak - 1
	}
	return out
}

// MaxDrawdown returns the minimum of the drawdown series, always <= 0.
func MaxDrawdown(values []float64) float64 {
	dd := DrawdownSeries(values)
	minVal := 0.0
	for _, d := range dd {
		if !math.IsNaN(d) && d < minVal {
			minVal = d
		}
	}
	return minVal
}

// DrawdownDetails describes the deepest peak-to-trough decline of a value
// series and whether the series has recovered from it.
type DrawdownDetails struct {
	MaxDrawdown   float64
	StartDate     time.Time
	BottomDate    time.Time
	DaysToBottom  int
	AvgFallPerDay float64
	Recovered     bool
	RecoveryDate  time.Time
	DaysToRecover int
}

// Drawdown computes the drawdown details of a value series over the given
// date index. dates and values must have equal length >= 1.
func Drawdown(dates []time.Time, values []float64) DrawdownDetails {
	dd := DrawdownSeries(values)

	bottom := 0
	for i, d := range dd {
		if !math.IsNaN(d) && d < dd[bottom] {
			bottom = i
		}
	}

	// Start of the drawdown is the last running maximum before the trough.
	start := bottom
	for i := bottom; i >= 0; i-- {
		if dd[i] == 0 {
			start = i
			break
		}
	}

	details := DrawdownDetails{
		MaxDrawdown:  dd[bottom],
		StartDate:    dates[start],
		BottomDate:   dates[bottom],
		DaysToBottom: int(dates[bottom].Sub(dates[start]).Hours() / 24),
	}
	if details.DaysToBottom > 0 {
		details.AvgFallPerDay = details.MaxDrawdown / float64(details.DaysToBottom)
	}

	// Recovery is the first date after the trough where the series makes a
	// new high against the pre-drawdown peak.
	for i := bottom + 1; i < len(dd); i++ {
		if dd[i] == 0 {
			details.Recovered = true
			details.RecoveryDate = dates[i]
			details.DaysToRecover = int(dates[i].Sub(dates[bottom]).Hours() / 24)
			break
		}
	}

	return details
}

// EWMAVol performs one step of the RiskMetrics exponentially weighted
// volatility recursion on an annualized basis:
//
//	vol[t] = sqrt(r[t]^2 * tf * (1-lambda) + vol[t-1]^2 * lambda)
//
// where tf is the annualization factor (periods per year).
func EWMAVol(ret, prevVol, timeFactor, lambda float64) float64 {
	return math.Sqrt(ret*ret*timeFactor*(1-lambda) + prevVol*prevVol*lambda)
}

// EWMACov performs one step of the analogous covariance recursion:
//
//	cov[t] = r1[t] * r2[t] * tf * (1-lambda) + cov[t-1] * lambda
func EWMACov(ret1, ret2, prevCov, timeFactor, lambda float64) float64 {
	return ret1*ret2*timeFactor*(1-lambda) + prevCov*lambda
}
