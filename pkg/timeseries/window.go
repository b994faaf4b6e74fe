package timeseries

import (
	"fmt"
	"time"
)

// Window selects the date range a statistic is computed over. The zero
// value means the full series. MonthsFromLast takes priority over From/To.
// FixedPeriodsPerYear locks the annualization factor, which simplifies
// comparisons and test cases; when zero the factor is derived from the
// window itself.
type Window struct {
	MonthsFromLast      int
	From                time.Time
	To                  time.Time
	FixedPeriodsPerYear float64
}

// CalcRange resolves a Window to inclusive start and end indices of a
// strictly increasing date index. From snaps to the latest observation at
// or before the requested date, To to the earliest at or after it,
// matching how a requested boundary between two observations behaves in
// reporting.
func CalcRange(dates []time.Time, w Window) (int, int, error) {
	start, end := 0, len(dates)-1

	from, to := w.From, w.To
	if w.MonthsFromLast > 0 {
		from = dates[len(dates)-1].AddDate(0, -w.MonthsFromLast, 0)
		to = time.Time{}
	}

	if !from.IsZero() {
		if from.Before(dates[0]) {
			return 0, 0, fmt.Errorf("%w: from %s before index start %s",
				ErrRangeOutOfBounds, from.Format(dateLayout), dates[0].Format(dateLayout))
		}
		for start < len(dates)-1 && dates[start+1].Compare(from) <= 0 {
			start++
		}
	}
	if !to.IsZero() {
		if to.After(dates[len(dates)-1]) {
			return 0, 0, fmt.Errorf("%w: to %s after index end %s",
				ErrRangeOutOfBounds, to.Format(dateLayout), dates[len(dates)-1].Format(dateLayout))
		}
		end = len(dates) - 1
		for end > 0 && dates[end-1].Compare(to) >= 0 {
			end--
		}
	}

	if end-start+1 < 2 {
		return 0, 0, fmt.Errorf("%w: window holds %d observations, need at least 2",
			ErrRangeOutOfBounds, end-start+1)
	}
	return start, end, nil
}

// TimeFactor returns the annualization factor of the resolved window:
// observations per year over the window span, unless locked by the Window.
func TimeFactor(dates []time.Time, w Window, start, end int) float64 {
	if w.FixedPeriodsPerYear > 0 {
		return w.FixedPeriodsPerYear
	}
	days := dates[end].Sub(dates[start]).Hours() / 24
	if days <= 0 {
		return 0
	}
	return float64(end-start+1) / (days / 365.25)
}

func (s *Series) calcRange(w Window) (int, int, error) {
	return CalcRange(s.dates, w)
}

func (s *Series) timeFactor(w Window, start, end int) float64 {
	return TimeFactor(s.dates, w, start, end)
}
