// Package timeseries provides the Series entity: one named observable
// timeline of dates and values, with validated construction, pure
// transforms and the point/rolling statistics built on them.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aristath/quantseries/pkg/formulas"
)

// ValueType tags what one observation in a series represents.
type ValueType string

const (
	// Price marks a value (price, NAV, index level) series.
	Price ValueType = "Price(Close)"
	// Return marks a per-period return series.
	Return ValueType = "Return(Total)"
	// Drawdown marks a series produced by ToDrawdownSeries.
	Drawdown ValueType = "Drawdown"
	// RelativeReturn marks a series produced by Frame.Relative.
	RelativeReturn ValueType = "Relative return"
)

// Construction and computation errors.
var (
	ErrInvalidInput        = errors.New("invalid series input")
	ErrRangeOutOfBounds    = errors.New("date range outside series bounds")
	ErrInvalidReturnWindow = errors.New("invalid return window")
	ErrLeadingNaN          = errors.New("leading value is NaN")
	ErrZeroVolatility      = errors.New("zero volatility")
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("isin", func(fl validator.FieldLevel) bool {
		return validISIN(fl.Field().String())
	})
	return v
}

// validISIN checks the ISO 6166 format: a two-letter country prefix, nine
// alphanumeric characters and a Luhn check digit computed over the
// letters-to-digits expansion.
func validISIN(code string) bool {
	if len(code) != 12 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	for i := 2; i < 11; i++ {
		c := code[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	if code[11] < '0' || code[11] > '9' {
		return false
	}

	digits := make([]int, 0, 2*len(code))
	for _, c := range code {
		if c >= '0' && c <= '9' {
			digits = append(digits, int(c-'0'))
		} else {
			n := int(c-'A') + 10
			digits = append(digits, n/10, n%10)
		}
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Input is the raw material a Series is constructed from. Validation is a
// separate pass before any assignment so a failed construction never
// yields a partially valid object.
type Input struct {
	ID        string    `validate:"omitempty"`
	Name      string    `validate:"required"`
	Dates     []string  `validate:"required,min=1,dive,datetime=2006-01-02"`
	Values    []float64 `validate:"required,min=1"`
	ValueType ValueType
	Currency  string   `validate:"omitempty,iso4217"`
	ISIN      string   `validate:"omitempty,isin"`
	Countries []string `validate:"omitempty,dive,iso3166_1_alpha2"`
}

// Series represents one named observable timeline. The source dates and
// values are immutable once constructed; every analytic method reads the
// working table, which transforms rewrite and ResetToSource rebuilds.
type Series struct {
	id        string
	label     string
	currency  string
	isin      string
	countries []string
	valueType ValueType

	srcType   ValueType
	srcDates  []time.Time
	srcValues []float64

	dates  []time.Time
	values []float64
}

// New constructs a Series from ISO-formatted date strings and values.
func New(in Input) (*Series, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(in.Dates) != len(in.Values) {
		return nil, fmt.Errorf("%w: %d dates but %d values",
			ErrInvalidInput, len(in.Dates), len(in.Values))
	}

	dates := make([]time.Time, len(in.Dates))
	for i, ds := range in.Dates {
		d, err := time.Parse(dateLayout, ds)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInput, ds)
		}
		if i > 0 && !d.After(dates[i-1]) {
			return nil, fmt.Errorf("%w: dates not strictly increasing at %q", ErrInvalidInput, ds)
		}
		dates[i] = d
	}
	for i, v := range in.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
	}

	vt := in.ValueType
	if vt == "" {
		vt = Price
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	s := &Series{
		id:        id,
		label:     in.Name,
		currency:  in.Currency,
		isin:      in.ISIN,
		countries: append([]string(nil), in.Countries...),
		valueType: vt,
		srcType:   vt,
		srcDates:  dates,
		srcValues: append([]float64(nil), in.Values...),
	}
	s.ResetToSource()
	return s, nil
}

// FromColumn constructs a Series from an aligned-table column. Unlike New
// it accepts NaN cells, which are gap markers produced by alignment.
func FromColumn(label string, dates []time.Time, values []float64, vt ValueType) (*Series, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: empty label", ErrInvalidInput)
	}
	if len(dates) == 0 || len(dates) != len(values) {
		return nil, fmt.Errorf("%w: %d dates but %d values",
			ErrInvalidInput, len(dates), len(values))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("%w: dates not strictly increasing at %s",
				ErrInvalidInput, dates[i].Format(dateLayout))
		}
	}
	if vt == "" {
		vt = Price
	}
	s := &Series{
		id:        uuid.NewString(),
		label:     label,
		valueType: vt,
		srcType:   vt,
		srcDates:  append([]time.Time(nil), dates...),
		srcValues: append([]float64(nil), values...),
	}
	s.ResetToSource()
	return s, nil
}

// FromFixedRate generates a Series accruing at a constant annual rate over
// the given number of consecutive days ending at end.
func FromFixedRate(label string, rate float64, days int, end time.Time) (*Series, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be >= 1", ErrInvalidInput)
	}
	dates := make([]time.Time, days)
	values := make([]float64, days)
	values[0] = 1.0
	for i := 0; i < days; i++ {
		dates[i] = end.AddDate(0, 0, i-days+1)
		if i > 0 {
			values[i] = values[i-1] * (1 + rate/365)
		}
	}
	s := &Series{
		id:        uuid.NewString(),
		label:     label,
		valueType: Price,
		srcType:   Price,
		srcDates:  dates,
		srcValues: values,
	}
	s.ResetToSource()
	return s, nil
}

// Clone returns a deep copy, working table included.
func (s *Series) Clone() *Series {
	c := &Series{
		id:        s.id,
		label:     s.label,
		currency:  s.currency,
		isin:      s.isin,
		countries: append([]string(nil), s.countries...),
		valueType: s.valueType,
		srcType:   s.srcType,
		srcDates:  append([]time.Time(nil), s.srcDates...),
		srcValues: append([]float64(nil), s.srcValues...),
		dates:     append([]time.Time(nil), s.dates...),
		values:    append([]float64(nil), s.values...),
	}
	return c
}

// ResetToSource rebuilds the working table from the immutable source
// arrays, reverting every transform applied since construction.
func (s *Series) ResetToSource() {
	s.valueType = s.srcType
	s.dates = append([]time.Time(nil), s.srcDates...)
	s.values = append([]float64(nil), s.srcValues...)
}

// Truncate drops working-table observations outside [start, end]. A zero
// time leaves that bound open.
func (s *Series) Truncate(start, end time.Time) error {
	lo, hi := 0, len(s.dates)-1
	if !start.IsZero() {
		for lo <= hi && s.dates[lo].Before(start) {
			lo++
		}
	}
	if !end.IsZero() {
		for hi >= lo && s.dates[hi].After(end) {
			hi--
		}
	}
	if hi < lo {
		return fmt.Errorf("%w: no observations between %s and %s",
			ErrRangeOutOfBounds, start.Format(dateLayout), end.Format(dateLayout))
	}
	s.dates = s.dates[lo : hi+1]
	s.values = s.values[lo : hi+1]
	return nil
}

// ID returns the series identity.
func (s *Series) ID() string { return s.id }

// Label returns the series name.
func (s *Series) Label() string { return s.label }

// SetLabel renames the series.
func (s *Series) SetLabel(label string) { s.label = label }

// Currency returns the series currency code, if any.
func (s *Series) Currency() string { return s.currency }

// ISIN returns the instrument identifier, if any.
func (s *Series) ISIN() string { return s.isin }

// Countries returns the country codes used for calendar alignment.
func (s *Series) Countries() []string {
	return append([]string(nil), s.countries...)
}

// ValueType reports what the working table currently holds.
func (s *Series) ValueType() ValueType { return s.valueType }

// Length returns the number of observations in the working table.
func (s *Series) Length() int { return len(s.dates) }

// FirstDate returns the first date of the working table.
func (s *Series) FirstDate() time.Time { return s.dates[0] }

// LastDate returns the last date of the working table.
func (s *Series) LastDate() time.Time { return s.dates[len(s.dates)-1] }

// SpanOfDays returns the number of calendar days between the first and
// last observation.
func (s *Series) SpanOfDays() int {
	return int(s.LastDate().Sub(s.FirstDate()).Hours() / 24)
}

// YearFrac returns the length of the series in years, where a year is
// 365.25 days.
func (s *Series) YearFrac() float64 {
	return float64(s.SpanOfDays()) / 365.25
}

// PeriodsInAYear returns the average number of observations per year,
// the annualization factor adapting to the actual sampling frequency.
func (s *Series) PeriodsInAYear() float64 {
	yf := s.YearFrac()
	if yf == 0 {
		return 0
	}
	return float64(s.Length()) / yf
}

// Dates returns a copy of the working table dates.
func (s *Series) Dates() []time.Time {
	return append([]time.Time(nil), s.dates...)
}

// Values returns a copy of the working table values.
func (s *Series) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// ValueAt returns the working table value at index i.
func (s *Series) ValueAt(i int) float64 { return s.values[i] }

// DateAt returns the working table date at index i.
func (s *Series) DateAt(i int) time.Time { return s.dates[i] }

// returnsInWindow yields per-period simple returns between the start and
// end working-table indices, inclusive. If the table already holds
// returns they are used as-is.
func (s *Series) returnsInWindow(start, end int) []float64 {
	if s.valueType == Return {
		return formulas.DropNaN(s.values[start : end+1])
	}
	return formulas.DropNaN(formulas.Returns(s.values[start : end+1]))
}

// logReturnsInWindow is the log-return analogue of returnsInWindow.
func (s *Series) logReturnsInWindow(start, end int) []float64 {
	if s.valueType == Return {
		out := make([]float64, 0, end-start+1)
		for _, r := range s.values[start : end+1] {
			if !math.IsNaN(r) {
				out = append(out, math.Log(1+r))
			}
		}
		return out
	}
	return formulas.DropNaN(formulas.LogReturns(s.values[start : end+1]))
}
