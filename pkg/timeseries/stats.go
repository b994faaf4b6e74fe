package timeseries

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/quantseries/internal/config"
	"github.com/aristath/quantseries/pkg/formulas"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// ValueRet returns the simple return over the window, v_last/v_first - 1.
func (s *Series) ValueRet(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	if s.values[start] == 0 {
		return 0, fmt.Errorf("%w: first data point is zero", ErrInvalidReturnWindow)
	}
	return s.values[end]/s.values[start] - 1, nil
}

// ValueRetCalendarPeriod returns the simple return over one calendar year,
// or one calendar month when month is in [1, 12].
func (s *Series) ValueRetCalendarPeriod(year int, month int) (float64, error) {
	inPeriod := func(d time.Time) bool {
		if d.Year() != year {
			return false
		}
		return month < 1 || int(d.Month()) == month
	}

	rets := s.values
	if s.valueType != Return {
		rets = formulas.Returns(s.values)
	}
	acc := 1.0
	n := 0
	for i, d := range s.dates {
		if inPeriod(d) && !math.IsNaN(rets[i]) {
			acc *= 1 + rets[i]
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no observations in %d-%02d", ErrRangeOutOfBounds, year, month)
	}
	return acc - 1, nil
}

// GeoRet returns the compound annual growth rate over the window.
func (s *Series) GeoRet(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	yearfrac := s.dates[end].Sub(s.dates[start]).Hours() / 24 / 365.25
	if s.values[start] <= 0 || yearfrac <= 0 {
		return 0, fmt.Errorf("%w: non-positive first value or zero span", ErrInvalidReturnWindow)
	}
	return math.Pow(s.values[end]/s.values[start], 1/yearfrac) - 1, nil
}

// ArithmeticRet returns the annualized arithmetic mean of per-period log
// returns over the window.
func (s *Series) ArithmeticRet(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	tf := s.timeFactor(w, start, end)
	return formulas.Mean(s.logReturnsInWindow(start, end)) * tf, nil
}

// Vol returns the annualized sample standard deviation of per-period
// returns over the window.
func (s *Series) Vol(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	tf := s.timeFactor(w, start, end)
	return formulas.StdDev(s.returnsInWindow(start, end)) * math.Sqrt(tf), nil
}

// DownsideDeviation returns the annualized standard deviation of returns
// below the annualized minimum accepted return. A result of 0.0 means no
// return fell below the threshold, which is a valid outcome.
func (s *Series) DownsideDeviation(minAcceptedReturn float64, w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	tf := s.timeFactor(w, start, end)
	return formulas.DownsideDeviation(s.returnsInWindow(start, end), minAcceptedReturn, tf), nil
}

// RetVolRatio returns the Sharpe ratio: annualized return less the
// risk-free rate, divided by annualized volatility.
func (s *Series) RetVolRatio(riskfree float64, w Window) (float64, error) {
	ret, err := s.ArithmeticRet(w)
	if err != nil {
		return 0, err
	}
	vol, err := s.Vol(w)
	if err != nil {
		return 0, err
	}
	if vol == 0 {
		return 0, fmt.Errorf("%w: return/volatility ratio undefined", ErrZeroVolatility)
	}
	return (ret - riskfree) / vol, nil
}

// SortinoRatio returns annualized return less the risk-free rate, divided
// by the downside deviation.
func (s *Series) SortinoRatio(riskfree float64, w Window) (float64, error) {
	ret, err := s.ArithmeticRet(w)
	if err != nil {
		return 0, err
	}
	dd, err := s.DownsideDeviation(0, w)
	if err != nil {
		return 0, err
	}
	if dd == 0 {
		return 0, fmt.Errorf("%w: sortino ratio undefined", ErrZeroVolatility)
	}
	return (ret - riskfree) / dd, nil
}

// VaRDown returns the historical downside Value at Risk at the given
// confidence level, negative when it represents a loss.
func (s *Series) VaRDown(level float64, interp formulas.QuantileInterp, w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	return formulas.VaRDown(s.returnsInWindow(start, end), level, interp), nil
}

// CVaRDown returns the mean of all returns at or beyond the VaR threshold.
func (s *Series) CVaRDown(level float64, w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	return formulas.CVaRDown(s.returnsInWindow(start, end), level), nil
}

// VolFromVaR returns the annualized volatility implied by the downside
// VaR under the assumption that returns are normally distributed.
func (s *Series) VolFromVaR(level float64, interp formulas.QuantileInterp, w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	tf := s.timeFactor(w, start, end)
	varDown := formulas.VaRDown(s.returnsInWindow(start, end), level, interp)
	return -math.Sqrt(tf) * varDown / stdNormal.Quantile(level), nil
}

// TargetWeightFromVaR returns a position weight multiplier as the ratio
// between a target volatility and the VaR-implied volatility, clamped to
// the given leverage bounds. A multiplier of 1.0 means the target is met.
func (s *Series) TargetWeightFromVaR(targetVol, minLeverage, maxLeverage, level float64, w Window) (float64, error) {
	implied, err := s.VolFromVaR(level, formulas.InterpInclusive, w)
	if err != nil {
		return 0, err
	}
	if implied == 0 {
		return 0, fmt.Errorf("%w: VaR-implied volatility is zero", ErrZeroVolatility)
	}
	return math.Max(minLeverage, math.Min(maxLeverage, targetVol/implied)), nil
}

// Skew returns the sample skewness of the return distribution.
func (s *Series) Skew(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	return formulas.Skew(s.returnsInWindow(start, end)), nil
}

// Kurtosis returns the sample excess kurtosis of the return distribution.
func (s *Series) Kurtosis(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	return formulas.ExcessKurtosis(s.returnsInWindow(start, end)), nil
}

// ZScore returns how far the last return lies from the window's mean
// return, in standard deviations.
func (s *Series) ZScore(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	rets := s.returnsInWindow(start, end)
	sd := formulas.StdDev(rets)
	if sd == 0 || len(rets) == 0 {
		return 0, fmt.Errorf("%w: z-score undefined", ErrZeroVolatility)
	}
	return (rets[len(rets)-1] - formulas.Mean(rets)) / sd, nil
}

// Worst returns the most negative single-period return in the window.
func (s *Series) Worst(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	rets := s.returnsInWindow(start, end)
	worst := math.Inf(1)
	for _, r := range rets {
		if r < worst {
			worst = r
		}
	}
	if math.IsInf(worst, 1) {
		return 0, fmt.Errorf("%w: no returns in window", ErrRangeOutOfBounds)
	}
	return worst, nil
}

// WorstMonth returns the most negative calendar-month return.
func (s *Series) WorstMonth() (float64, error) {
	monthly := s.Clone().Resample(Monthly)
	return monthly.Worst(Window{})
}

// PositiveShare returns the fraction of per-period returns strictly
// greater than zero.
func (s *Series) PositiveShare(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	rets := s.returnsInWindow(start, end)
	if len(rets) == 0 {
		return 0, fmt.Errorf("%w: no returns in window", ErrRangeOutOfBounds)
	}
	pos := 0
	for _, r := range rets {
		if r > 0 {
			pos++
		}
	}
	return float64(pos) / float64(len(rets)), nil
}

// MaxDrawdown returns the deepest peak-to-trough decline in the window,
// always <= 0.
func (s *Series) MaxDrawdown(w Window) (float64, error) {
	start, end, err := s.calcRange(w)
	if err != nil {
		return 0, err
	}
	return formulas.MaxDrawdown(s.values[start : end+1]), nil
}

// MaxDrawdownDate returns the date of the deepest drawdown.
func (s *Series) MaxDrawdownDate() time.Time {
	dd := formulas.DrawdownSeries(s.values)
	minIdx := 0
	for i, d := range dd {
		if !math.IsNaN(d) && d < dd[minIdx] {
			minIdx = i
		}
	}
	return s.dates[minIdx]
}

// YearDrawdown is the deepest drawdown within one calendar year.
type YearDrawdown struct {
	Year        int
	MaxDrawdown float64
}

// MaxDrawdownCalYear computes the maximum drawdown independently within
// each calendar year, in chronological order. The running maximum resets
// at year boundaries.
func (s *Series) MaxDrawdownCalYear() []YearDrawdown {
	var out []YearDrawdown
	start := 0
	for i := 1; i <= len(s.dates); i++ {
		if i == len(s.dates) || s.dates[i].Year() != s.dates[start].Year() {
			out = append(out, YearDrawdown{
				Year:        s.dates[start].Year(),
				MaxDrawdown: formulas.MaxDrawdown(s.values[start:i]),
			})
			start = i
		}
	}
	return out
}

// DrawdownDetails reports the deepest drawdown with its start, trough and
// recovery dates.
func (s *Series) DrawdownDetails() formulas.DrawdownDetails {
	return formulas.Drawdown(s.dates, s.values)
}

// Property is one named statistic in an all-properties snapshot.
type Property struct {
	Name  string
	Value float64
}

// AllProperties returns the full point-statistics summary of the series,
// a read-only snapshot for reporting and export layers. The VaR level,
// minimum accepted return and risk-free rate come from the engine
// defaults. Statistics whose preconditions fail (zero volatility,
// non-positive first value) are reported as NaN rather than aborting the
// snapshot.
func (s *Series) AllProperties() []Property {
	orNaN := func(v float64, err error) float64 {
		if err != nil {
			return math.NaN()
		}
		return v
	}
	w := Window{}
	cfg := config.Load()
	worstMonth, wmErr := s.WorstMonth()

	return []Property{
		{"Total return", orNaN(s.ValueRet(w))},
		{"Geometric return", orNaN(s.GeoRet(w))},
		{"Arithmetic return", orNaN(s.ArithmeticRet(w))},
		{"Volatility", orNaN(s.Vol(w))},
		{"Downside deviation", orNaN(s.DownsideDeviation(cfg.MinAcceptedRet, w))},
		{"Return vol ratio", orNaN(s.RetVolRatio(cfg.RiskFreeRate, w))},
		{"Sortino ratio", orNaN(s.SortinoRatio(cfg.RiskFreeRate, w))},
		{fmt.Sprintf("VaR %.1f%%", cfg.VaRLevel*100), orNaN(s.VaRDown(cfg.VaRLevel, formulas.InterpInclusive, w))},
		{fmt.Sprintf("CVaR %.1f%%", cfg.VaRLevel*100), orNaN(s.CVaRDown(cfg.VaRLevel, w))},
		{fmt.Sprintf("Imp vol from VaR %.1f%%", cfg.VaRLevel*100), orNaN(s.VolFromVaR(cfg.VaRLevel, formulas.InterpInclusive, w))},
		{"Skew", orNaN(s.Skew(w))},
		{"Kurtosis", orNaN(s.Kurtosis(w))},
		{"Z-score", orNaN(s.ZScore(w))},
		{"Worst", orNaN(s.Worst(w))},
		{"Worst month", orNaN(worstMonth, wmErr)},
		{"Positive share", orNaN(s.PositiveShare(w))},
		{"Max drawdown", orNaN(s.MaxDrawdown(w))},
		{"Observations", float64(s.Length())},
		{"Span of days", float64(s.SpanOfDays())},
		{"Periods in a year", s.PeriodsInAYear()},
	}
}
