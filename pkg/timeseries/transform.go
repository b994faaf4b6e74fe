package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/quantseries/pkg/calendar"
	"github.com/aristath/quantseries/pkg/formulas"
)

// Frequency selects the target sampling of Resample.
type Frequency string

const (
	Monthly   Frequency = "M"
	Quarterly Frequency = "Q"
	Yearly    Frequency = "Y"
)

// ValueToRet rewrites the working table as simple percentage returns.
// The first observation becomes NaN; ReturnNaNHandle converts it to 0.0
// when a gap-free return stream is needed.
func (s *Series) ValueToRet() *Series {
	s.values = formulas.Returns(s.values)
	s.valueType = Return
	return s
}

// ValueToLogRet rewrites the working table as logarithmic returns.
func (s *Series) ValueToLogRet() *Series {
	s.values = formulas.LogReturns(s.values)
	s.valueType = Return
	return s
}

// ValueToDiff rewrites the working table as period differences over the
// given lag.
func (s *Series) ValueToDiff(lag int) *Series {
	s.values = formulas.Diffs(s.values, lag)
	s.valueType = Return
	return s
}

// ToCumRet rewrites the working table as a cumulative value series with
// first value 1.0. A return series is compounded forward; a price series
// is rebased, which makes the operation idempotent on an already rebased
// series.
func (s *Series) ToCumRet() *Series {
	if s.valueType == Return {
		s.values = formulas.CumulativeFromReturns(s.values)
	} else {
		s.values = formulas.Rebase(s.values)
	}
	s.valueType = Price
	return s
}

// ToDrawdownSeries rewrites the working table as the drawdown series
// v[t]/max(v[0..t]) - 1.
func (s *Series) ToDrawdownSeries() *Series {
	s.values = formulas.DrawdownSeries(s.values)
	s.valueType = Drawdown
	return s
}

// ValueNaNHandle forward-fills NaN gaps in a value series. It fails when
// the leading value is itself NaN, since there is no prior value to fill
// from.
func (s *Series) ValueNaNHandle() error {
	if len(s.values) > 0 && math.IsNaN(s.values[0]) {
		return fmt.Errorf("%w: cannot forward-fill a value series", ErrLeadingNaN)
	}
	s.values = formulas.ForwardFill(s.values)
	return nil
}

// ReturnNaNHandle replaces NaN in a return series with 0.0, interpreted
// as no change.
func (s *Series) ReturnNaNHandle() *Series {
	s.values = formulas.ZeroFill(s.values)
	return s
}

// Resample down-samples the working table to the last observation of each
// calendar period. It never interpolates or up-samples.
func (s *Series) Resample(freq Frequency) *Series {
	if len(s.dates) == 0 {
		return s
	}

	var dates []time.Time
	var values []float64
	for i := range s.dates {
		last := i == len(s.dates)-1 || periodKey(s.dates[i+1], freq) != periodKey(s.dates[i], freq)
		if last {
			dates = append(dates, s.dates[i])
			values = append(values, s.values[i])
		}
	}
	s.dates = dates
	s.values = values
	return s
}

func periodKey(d time.Time, freq Frequency) int {
	switch freq {
	case Yearly:
		return d.Year()
	case Quarterly:
		return d.Year()*10 + (int(d.Month())-1)/3
	default:
		return d.Year()*100 + int(d.Month())
	}
}

// RunningAdjustment adds (positive) or subtracts (negative) an annualized
// fee from the series returns and recompounds from the original first
// value.
func (s *Series) RunningAdjustment(adjustment float64, daysInYear int) *Series {
	if daysInYear <= 0 {
		daysInYear = 365
	}
	rets := s.values
	if s.valueType != Return {
		rets = formulas.Returns(s.values)
	}

	values := make([]float64, len(s.dates))
	base := 1.0
	if s.valueType != Return {
		base = s.values[0]
	}
	values[0] = base
	for i := 1; i < len(values); i++ {
		r := rets[i]
		if math.IsNaN(r) {
			r = 0
		}
		days := s.dates[i].Sub(s.dates[i-1]).Hours() / 24
		values[i] = values[i-1] * (1 + r + adjustment*days/float64(daysInYear))
	}
	s.values = values
	s.valueType = Price
	return s
}

// AlignIndexToLocalCDays reindexes the working table to the business days
// of the series' countries (or the given override) between its first and
// last dates. Dates without an original observation become NaN gaps for
// the caller to resolve via the NaN policies.
func (s *Series) AlignIndexToLocalCDays(svc calendar.Service, countries []string) error {
	if len(countries) == 0 {
		countries = s.countries
	}
	days, err := svc.BusinessDays(countries, s.FirstDate(), s.LastDate())
	if err != nil {
		return fmt.Errorf("aligning %q to business days: %w", s.label, err)
	}

	byDate := make(map[time.Time]float64, len(s.dates))
	for i, d := range s.dates {
		byDate[d] = s.values[i]
	}

	values := make([]float64, len(days))
	for i, d := range days {
		if v, ok := byDate[d]; ok {
			values[i] = v
		} else {
			values[i] = math.NaN()
		}
	}
	s.dates = days
	s.values = values
	return nil
}
