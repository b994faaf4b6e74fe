package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(t *testing.T) *Series {
	t.Helper()
	s, err := New(Input{
		Name:   "fund",
		Dates:  []string{"2023-01-02", "2023-01-03", "2023-01-04", "2023-01-05"},
		Values: []float64{100, 102, 101, 105},
	})
	require.NoError(t, err)
	return s
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"missing name", Input{
			Dates:  []string{"2023-01-02"},
			Values: []float64{1},
		}},
		{"bad date format", Input{
			Name:   "x",
			Dates:  []string{"02/01/2023"},
			Values: []float64{1},
		}},
		{"length mismatch", Input{
			Name:   "x",
			Dates:  []string{"2023-01-02", "2023-01-03"},
			Values: []float64{1},
		}},
		{"dates not increasing", Input{
			Name:   "x",
			Dates:  []string{"2023-01-03", "2023-01-02"},
			Values: []float64{1, 2},
		}},
		{"duplicate date", Input{
			Name:   "x",
			Dates:  []string{"2023-01-02", "2023-01-02"},
			Values: []float64{1, 2},
		}},
		{"NaN value", Input{
			Name:   "x",
			Dates:  []string{"2023-01-02", "2023-01-03"},
			Values: []float64{1, math.NaN()},
		}},
		{"bad currency", Input{
			Name:     "x",
			Dates:    []string{"2023-01-02"},
			Values:   []float64{1},
			Currency: "EURO",
		}},
		{"bad country", Input{
			Name:      "x",
			Dates:     []string{"2023-01-02"},
			Values:    []float64{1},
			Countries: []string{"SWE"},
		}},
		{"isin bad check digit", Input{
			Name:   "x",
			Dates:  []string{"2023-01-02"},
			Values: []float64{1},
			ISIN:   "US0378331004",
		}},
		{"isin wrong length", Input{
			Name:   "x",
			Dates:  []string{"2023-01-02"},
			Values: []float64{1},
			ISIN:   "US03783310",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewAcceptsISIN(t *testing.T) {
	s, err := New(Input{
		Name:      "apple",
		Dates:     []string{"2023-01-02", "2023-01-03"},
		Values:    []float64{185, 186},
		Currency:  "USD",
		ISIN:      "US0378331005",
		Countries: []string{"US"},
	})
	require.NoError(t, err)
	assert.Equal(t, "US0378331005", s.ISIN())
}

func TestNewDefaults(t *testing.T) {
	s := testSeries(t)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, Price, s.ValueType())
	assert.Equal(t, "fund", s.Label())
	assert.Equal(t, 4, s.Length())
	assert.Equal(t, 3, s.SpanOfDays())
}

func TestFromFixedRate(t *testing.T) {
	end := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	s, err := FromFixedRate("cash", 0.0365, 10, end)
	require.NoError(t, err)

	assert.Equal(t, 10, s.Length())
	assert.Equal(t, end, s.LastDate())
	assert.Equal(t, end.AddDate(0, 0, -9), s.FirstDate())
	assert.Equal(t, 1.0, s.ValueAt(0))
	// daily accrual of 3.65%/365 = 1bp per day
	assert.InDelta(t, math.Pow(1.0001, 9), s.ValueAt(9), 1e-12)
}

func TestCloneIsIndependent(t *testing.T) {
	s := testSeries(t)
	c := s.Clone()
	c.SetLabel("copy")
	c.ValueToRet()

	assert.Equal(t, "fund", s.Label())
	assert.Equal(t, Price, s.ValueType())
	assert.Equal(t, 100.0, s.ValueAt(0))
}

func TestResetToSource(t *testing.T) {
	s := testSeries(t)
	s.ValueToRet()
	require.Equal(t, Return, s.ValueType())

	s.ResetToSource()
	assert.Equal(t, Price, s.ValueType())
	assert.Equal(t, []float64{100, 102, 101, 105}, s.Values())
}

func TestCalcRangeSnapping(t *testing.T) {
	s, err := New(Input{
		Name:   "gappy",
		Dates:  []string{"2020-01-06", "2020-01-08", "2020-01-10", "2020-01-14"},
		Values: []float64{1, 2, 3, 4},
	})
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC) }

	// From between observations snaps back, To snaps forward.
	start, end, err := s.calcRange(Window{From: day(9), To: day(11)})
	require.NoError(t, err)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)

	// Exact hits stay put.
	start, end, err = s.calcRange(Window{From: day(8), To: day(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, start)
	assert.Equal(t, 2, end)

	_, _, err = s.calcRange(Window{From: day(1)})
	assert.ErrorIs(t, err, ErrRangeOutOfBounds)

	_, _, err = s.calcRange(Window{To: day(20)})
	assert.ErrorIs(t, err, ErrRangeOutOfBounds)

	// A window holding a single observation is unusable.
	_, _, err = s.calcRange(Window{From: day(14)})
	assert.ErrorIs(t, err, ErrRangeOutOfBounds)
}

func TestCalcRangeMonthsFromLast(t *testing.T) {
	s, err := FromFixedRate("cash", 0.01, 400, time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	start, end, err := s.calcRange(Window{MonthsFromLast: 3})
	require.NoError(t, err)
	assert.Equal(t, len(s.Values())-1, end)
	assert.False(t, s.DateAt(start).After(time.Date(2023, 9, 29, 0, 0, 0, 0, time.UTC)))
}
