package timeseries

import (
	"fmt"
	"math"

	"github.com/aristath/quantseries/internal/config"
	"github.com/aristath/quantseries/pkg/formulas"
)

// rollingSeries wraps a derived value slice as a new return-type series
// keeping the tail of the parent's dates. The first emission lands at the
// index where a full window of observations is first available.
func (s *Series) rollingSeries(suffix string, window int, values []float64) (*Series, error) {
	offset := s.Length() - len(values)
	out, err := FromColumn(
		fmt.Sprintf("%s_%s_%dd", s.label, suffix, window),
		s.dates[offset:],
		values,
		Return,
	)
	if err != nil {
		return nil, err
	}
	out.currency = s.currency
	return out, nil
}

// resolveWindow validates the observation window, mapping 0 to the
// configured engine default.
func (s *Series) resolveWindow(window int) (int, error) {
	if window == 0 {
		window = config.Load().RollingWindow
	}
	if window < 2 {
		return 0, fmt.Errorf("%w: window must be at least 2, got %d", ErrInvalidInput, window)
	}
	if window >= s.Length() {
		return 0, fmt.Errorf("%w: window %d exceeds %d observations", ErrInvalidInput, window, s.Length())
	}
	return window, nil
}

// RollingReturn returns the rolling sum of per-period returns over the
// given observation window. A window of 0 uses the engine default.
func (s *Series) RollingReturn(window int) (*Series, error) {
	window, err := s.resolveWindow(window)
	if err != nil {
		return nil, err
	}
	rets := s.periodReturns()
	out := make([]float64, 0, len(rets)-window+1)
	for i := window; i <= len(rets); i++ {
		sum := 0.0
		for _, r := range rets[i-window : i] {
			sum += r
		}
		out = append(out, sum)
	}
	return s.rollingSeries("rolling_return", window, out)
}

// RollingVol returns the annualized rolling sample volatility. When
// periodsInAYear is 0 the series' own observation frequency is used.
func (s *Series) RollingVol(window int, periodsInAYear float64) (*Series, error) {
	window, err := s.resolveWindow(window)
	if err != nil {
		return nil, err
	}
	if periodsInAYear == 0 {
		periodsInAYear = s.PeriodsInAYear()
	}
	rets := s.periodReturns()
	out := make([]float64, 0, len(rets)-window+1)
	for i := window; i <= len(rets); i++ {
		out = append(out, formulas.StdDev(rets[i-window:i])*math.Sqrt(periodsInAYear))
	}
	return s.rollingSeries("rolling_vol", window, out)
}

// RollingVaRDown returns the rolling historical downside VaR.
func (s *Series) RollingVaRDown(window int, level float64) (*Series, error) {
	window, err := s.resolveWindow(window)
	if err != nil {
		return nil, err
	}
	rets := s.periodReturns()
	out := make([]float64, 0, len(rets)-window+1)
	for i := window; i <= len(rets); i++ {
		out = append(out, formulas.VaRDown(rets[i-window:i], level, formulas.InterpLower))
	}
	return s.rollingSeries("rolling_var", window, out)
}

// RollingCVaRDown returns the rolling conditional downside VaR.
func (s *Series) RollingCVaRDown(window int, level float64) (*Series, error) {
	window, err := s.resolveWindow(window)
	if err != nil {
		return nil, err
	}
	rets := s.periodReturns()
	out := make([]float64, 0, len(rets)-window+1)
	for i := window; i <= len(rets); i++ {
		out = append(out, formulas.CVaRDown(rets[i-window:i], level))
	}
	return s.rollingSeries("rolling_cvar", window, out)
}

// periodReturns returns per-period simple returns aligned to the dates
// from the second observation on, with NaN gaps zero-filled.
func (s *Series) periodReturns() []float64 {
	if s.valueType == Return {
		return formulas.ZeroFill(s.values[1:])
	}
	return formulas.ZeroFill(formulas.Returns(s.values)[1:])
}
