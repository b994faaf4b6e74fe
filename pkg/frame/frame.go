// Package frame provides the Frame entity: a collection of Series merged
// onto one aligned date index, with column-wise transforms and statistics,
// relative/regression measures and portfolio construction on top.
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/quantseries/pkg/calendar"
	"github.com/aristath/quantseries/pkg/timeseries"
)

// Frame construction and alignment errors.
var (
	ErrDuplicateLabels     = errors.New("duplicate constituent labels")
	ErrLabelNotFound       = errors.New("label not found in frame")
	ErrTooFewConstituents  = errors.New("too few constituents")
	ErrEmptyAlignment      = errors.New("alignment produced an empty table")
	ErrWeightCountMismatch = errors.New("weights do not match constituent count")
	ErrZeroVariance        = errors.New("zero variance")
	ErrSingularCovariance  = errors.New("covariance matrix is singular")
	ErrNotConverged        = errors.New("weight solver did not converge")
)

// Frame owns deep copies of its constituent series and an aligned table
// built from them. The table is rebuilt whole on every structural change,
// never patched in place, so statistics always read a consistent view.
type Frame struct {
	constituents []*timeseries.Series
	weights      []float64

	dates   []time.Time
	columns [][]float64
}

// New builds a Frame over deep copies of the given series and merges them
// onto the union of their dates.
func New(constituents ...*timeseries.Series) (*Frame, error) {
	if len(constituents) == 0 {
		return nil, fmt.Errorf("%w: need at least 1, got 0", ErrTooFewConstituents)
	}
	seen := make(map[string]bool, len(constituents))
	owned := make([]*timeseries.Series, len(constituents))
	for i, s := range constituents {
		if seen[s.Label()] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabels, s.Label())
		}
		seen[s.Label()] = true
		owned[i] = s.Clone()
	}
	f := &Frame{constituents: owned}
	f.merge()
	return f, nil
}

// merge rebuilds the aligned table: the ascending de-duplicated union of
// all constituent dates, one column per constituent, NaN where a
// constituent has no observation.
func (f *Frame) merge() {
	union := make(map[time.Time]struct{})
	for _, s := range f.constituents {
		for _, d := range s.Dates() {
			union[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(union))
	for d := range union {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	columns := make([][]float64, len(f.constituents))
	for i, s := range f.constituents {
		columns[i] = columnFromSeries(s, dates)
	}
	f.dates = dates
	f.columns = columns
}

func columnFromSeries(s *timeseries.Series, dates []time.Time) []float64 {
	byDate := make(map[time.Time]float64, s.Length())
	sDates, sValues := s.Dates(), s.Values()
	for i, d := range sDates {
		byDate[d] = sValues[i]
	}
	col := make([]float64, len(dates))
	for i, d := range dates {
		if v, ok := byDate[d]; ok {
			col[i] = v
		} else {
			col[i] = math.NaN()
		}
	}
	return col
}

// AddSeries appends a deep copy of the series and re-merges the table.
func (f *Frame) AddSeries(s *timeseries.Series) error {
	for _, c := range f.constituents {
		if c.Label() == s.Label() {
			return fmt.Errorf("%w: %q", ErrDuplicateLabels, s.Label())
		}
	}
	f.constituents = append(f.constituents, s.Clone())
	f.weights = nil
	f.merge()
	return nil
}

// DeleteSeries removes the constituent with the given label and re-merges.
func (f *Frame) DeleteSeries(label string) error {
	idx, err := f.columnIndex(label)
	if err != nil {
		return err
	}
	f.constituents = append(f.constituents[:idx], f.constituents[idx+1:]...)
	f.weights = nil
	f.merge()
	return nil
}

// TruncFrame cuts every constituent to a common date range. Zero start
// and end default to the intersection of the constituents' spans: the
// latest first date and the earliest last date. When any constituent has
// no observation in the range, the frame is left unchanged.
func (f *Frame) TruncFrame(start, end time.Time) error {
	if start.IsZero() {
		for _, s := range f.constituents {
			if s.FirstDate().After(start) {
				start = s.FirstDate()
			}
		}
	}
	if end.IsZero() {
		end = f.constituents[0].LastDate()
		for _, s := range f.constituents[1:] {
			if s.LastDate().Before(end) {
				end = s.LastDate()
			}
		}
	}
	trimmed := make([]*timeseries.Series, len(f.constituents))
	for i, s := range f.constituents {
		c := s.Clone()
		if err := c.Truncate(start, end); err != nil {
			return fmt.Errorf("%w: %q has no data between %s and %s", ErrEmptyAlignment,
				s.Label(), start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		trimmed[i] = c
	}
	f.constituents = trimmed
	f.merge()
	if len(f.dates) == 0 {
		return ErrEmptyAlignment
	}
	return nil
}

// AlignIndexToLocalCDays reindexes every constituent to the business days
// of the given countries (falling back to each constituent's own), then
// forward-fills the gaps the reindexing opened. Gaps before the first
// observation stay NaN.
func (f *Frame) AlignIndexToLocalCDays(svc calendar.Service, countries []string) error {
	for _, s := range f.constituents {
		if err := s.AlignIndexToLocalCDays(svc, countries); err != nil {
			return err
		}
		if err := s.ValueNaNHandle(); err != nil {
			return fmt.Errorf("constituent %q: %w", s.Label(), err)
		}
	}
	f.merge()
	return nil
}

// SetWeights fixes the constituent weights used by the fixed-weight
// portfolio strategy.
func (f *Frame) SetWeights(weights []float64) error {
	if len(weights) != len(f.constituents) {
		return fmt.Errorf("%w: %d weights for %d constituents",
			ErrWeightCountMismatch, len(weights), len(f.constituents))
	}
	f.weights = append([]float64(nil), weights...)
	return nil
}

// Weights returns the fixed weights, or nil when none are set.
func (f *Frame) Weights() []float64 {
	return append([]float64(nil), f.weights...)
}

// ItemCount returns the number of constituents.
func (f *Frame) ItemCount() int { return len(f.constituents) }

// Labels returns the constituent labels in column order.
func (f *Frame) Labels() []string {
	labels := make([]string, len(f.constituents))
	for i, s := range f.constituents {
		labels[i] = s.Label()
	}
	return labels
}

// Lengths returns each constituent's own observation count, which can
// differ from the aligned table length.
func (f *Frame) Lengths() []int {
	lengths := make([]int, len(f.constituents))
	for i, s := range f.constituents {
		lengths[i] = s.Length()
	}
	return lengths
}

// FirstIndices returns each constituent's first observation date.
func (f *Frame) FirstIndices() []time.Time {
	out := make([]time.Time, len(f.constituents))
	for i, s := range f.constituents {
		out[i] = s.FirstDate()
	}
	return out
}

// LastIndices returns each constituent's last observation date.
func (f *Frame) LastIndices() []time.Time {
	out := make([]time.Time, len(f.constituents))
	for i, s := range f.constituents {
		out[i] = s.LastDate()
	}
	return out
}

// Dates returns a copy of the aligned table index.
func (f *Frame) Dates() []time.Time {
	return append([]time.Time(nil), f.dates...)
}

// Length returns the number of rows in the aligned table.
func (f *Frame) Length() int { return len(f.dates) }

// FirstDate returns the first date of the aligned table.
func (f *Frame) FirstDate() time.Time { return f.dates[0] }

// LastDate returns the last date of the aligned table.
func (f *Frame) LastDate() time.Time { return f.dates[len(f.dates)-1] }

// PeriodsInAYear returns the annualization factor of the aligned table.
func (f *Frame) PeriodsInAYear() float64 {
	if len(f.dates) < 2 {
		return 0
	}
	days := f.LastDate().Sub(f.FirstDate()).Hours() / 24
	if days <= 0 {
		return 0
	}
	return float64(len(f.dates)) / (days / 365.25)
}

// Column returns a copy of the aligned column for the given label.
func (f *Frame) Column(label string) ([]float64, error) {
	idx, err := f.columnIndex(label)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), f.columns[idx]...), nil
}

// ColumnSeries returns the aligned column as a standalone Series carrying
// the constituent's label and value type.
func (f *Frame) ColumnSeries(label string) (*timeseries.Series, error) {
	idx, err := f.columnIndex(label)
	if err != nil {
		return nil, err
	}
	return f.columnSeries(idx)
}

func (f *Frame) columnIndex(label string) (int, error) {
	for i, s := range f.constituents {
		if s.Label() == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrLabelNotFound, label)
}

func (f *Frame) columnSeries(idx int) (*timeseries.Series, error) {
	s := f.constituents[idx]
	return timeseries.FromColumn(s.Label(), f.dates, f.columns[idx], s.ValueType())
}

// ValueToRet rewrites every constituent as simple returns and re-merges.
func (f *Frame) ValueToRet() *Frame {
	for _, s := range f.constituents {
		s.ValueToRet()
	}
	f.merge()
	return f
}

// ValueToDiff rewrites every constituent as period differences.
func (f *Frame) ValueToDiff(lag int) *Frame {
	for _, s := range f.constituents {
		s.ValueToDiff(lag)
	}
	f.merge()
	return f
}

// ToCumRet rewrites every constituent as a cumulative value series
// starting at 1.0.
func (f *Frame) ToCumRet() *Frame {
	for _, s := range f.constituents {
		s.ToCumRet()
	}
	f.merge()
	return f
}

// ValueNaNHandle forward-fills every constituent's value gaps.
func (f *Frame) ValueNaNHandle() error {
	for _, s := range f.constituents {
		if err := s.ValueNaNHandle(); err != nil {
			return fmt.Errorf("constituent %q: %w", s.Label(), err)
		}
	}
	f.merge()
	return nil
}

// ReturnNaNHandle zero-fills every constituent's return gaps.
func (f *Frame) ReturnNaNHandle() *Frame {
	for _, s := range f.constituents {
		s.ReturnNaNHandle()
	}
	f.merge()
	return f
}

// Resample down-samples every constituent to the last observation of
// each calendar period and re-merges.
func (f *Frame) Resample(freq timeseries.Frequency) *Frame {
	for _, s := range f.constituents {
		s.Resample(freq)
	}
	f.merge()
	return f
}

// ResampleToBusinessPeriodEnds resamples to calendar periods and then
// snaps each kept date to the last business day of its period, so that
// constituents sampled on different days land on one shared index.
func (f *Frame) ResampleToBusinessPeriodEnds(freq timeseries.Frequency, svc calendar.Service, countries []string) error {
	f.Resample(freq)

	for i, s := range f.constituents {
		dates := s.Dates()
		snapped := make([]time.Time, len(dates))
		for j, d := range dates {
			bd, err := lastBusinessDayOfPeriod(svc, countries, d, freq)
			if err != nil {
				return err
			}
			snapped[j] = bd
		}
		ns, err := timeseries.FromColumn(s.Label(), snapped, s.Values(), s.ValueType())
		if err != nil {
			return fmt.Errorf("resampling %q: %w", s.Label(), err)
		}
		f.constituents[i] = ns
	}
	f.merge()
	return nil
}

func lastBusinessDayOfPeriod(svc calendar.Service, countries []string, d time.Time, freq timeseries.Frequency) (time.Time, error) {
	var end time.Time
	switch freq {
	case timeseries.Yearly:
		end = time.Date(d.Year(), 12, 31, 0, 0, 0, 0, time.UTC)
	case timeseries.Quarterly:
		q := (int(d.Month())-1)/3*3 + 3
		end = time.Date(d.Year(), time.Month(q)+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	default:
		end = time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	}
	days, err := svc.BusinessDays(countries, end.AddDate(0, 0, -7), end)
	if err != nil {
		return time.Time{}, err
	}
	return days[len(days)-1], nil
}
