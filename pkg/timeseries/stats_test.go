package timeseries

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantseries/pkg/formulas"
)

func TestValueRet(t *testing.T) {
	s := testSeries(t)
	got, err := s.ValueRet(Window{})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, got, 1e-12)
}

func TestGeoRet(t *testing.T) {
	s := testSeries(t)
	got, err := s.GeoRet(Window{})
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(1.05, 365.25/3)-1, got, 1e-9)
}

func TestGeoRetRejectsNonPositiveStart(t *testing.T) {
	s, err := New(Input{
		Name:   "diffs",
		Dates:  []string{"2023-01-02", "2023-01-03"},
		Values: []float64{-1, 2},
	})
	require.NoError(t, err)

	_, err = s.GeoRet(Window{})
	assert.ErrorIs(t, err, ErrInvalidReturnWindow)
}

func TestArithmeticRetAndVol(t *testing.T) {
	s := testSeries(t)
	w := Window{FixedPeriodsPerYear: 252}

	ret, err := s.ArithmeticRet(w)
	require.NoError(t, err)
	// mean of log returns telescopes to ln(1.05)/3
	assert.InDelta(t, math.Log(1.05)/3*252, ret, 1e-9)

	vol, err := s.Vol(w)
	require.NoError(t, err)
	rets := []float64{0.02, 101.0/102 - 1, 105.0/101 - 1}
	assert.InDelta(t, formulas.StdDev(rets)*math.Sqrt(252), vol, 1e-12)
}

func TestRetVolRatioZeroVolatility(t *testing.T) {
	s, err := New(Input{
		Name:   "flat",
		Dates:  []string{"2023-01-02", "2023-01-03", "2023-01-04"},
		Values: []float64{100, 100, 100},
	})
	require.NoError(t, err)

	_, err = s.RetVolRatio(0, Window{})
	assert.ErrorIs(t, err, ErrZeroVolatility)

	_, err = s.SortinoRatio(0, Window{})
	assert.ErrorIs(t, err, ErrZeroVolatility)
}

func TestTailRisk(t *testing.T) {
	s := testSeries(t)
	w := Window{}

	worst, err := s.Worst(w)
	require.NoError(t, err)
	assert.InDelta(t, 101.0/102-1, worst, 1e-12)

	cvar, err := s.CVaRDown(0.95, w)
	require.NoError(t, err)
	assert.InDelta(t, worst, cvar, 1e-12)

	varDown, err := s.VaRDown(0.95, formulas.InterpInclusive, w)
	require.NoError(t, err)
	assert.LessOrEqual(t, cvar, varDown)

	share, err := s.PositiveShare(w)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, share, 1e-12)
}

func TestVolFromVaRSign(t *testing.T) {
	s := testSeries(t)
	got, err := s.VolFromVaR(0.95, formulas.InterpInclusive, Window{FixedPeriodsPerYear: 252})
	require.NoError(t, err)
	assert.Greater(t, got, 0.0)
}

func TestTargetWeightFromVaRClamps(t *testing.T) {
	s := testSeries(t)
	w := Window{FixedPeriodsPerYear: 252}

	low, err := s.TargetWeightFromVaR(1e-9, 0.5, 1.5, 0.95, w)
	require.NoError(t, err)
	assert.Equal(t, 0.5, low)

	high, err := s.TargetWeightFromVaR(1e9, 0.5, 1.5, 0.95, w)
	require.NoError(t, err)
	assert.Equal(t, 1.5, high)
}

func TestMaxDrawdown(t *testing.T) {
	s := testSeries(t)
	got, err := s.MaxDrawdown(Window{})
	require.NoError(t, err)
	assert.InDelta(t, 101.0/102-1, got, 1e-12)

	assert.Equal(t, s.DateAt(2), s.MaxDrawdownDate())
}

func TestMaxDrawdownCalYear(t *testing.T) {
	s, err := New(Input{
		Name: "two years",
		Dates: []string{
			"2022-12-29", "2022-12-30",
			"2023-01-02", "2023-01-03", "2023-01-04",
		},
		Values: []float64{100, 90, 95, 80, 85},
	})
	require.NoError(t, err)

	got := s.MaxDrawdownCalYear()
	require.Len(t, got, 2)
	assert.Equal(t, 2022, got[0].Year)
	assert.InDelta(t, -0.10, got[0].MaxDrawdown, 1e-12)
	assert.Equal(t, 2023, got[1].Year)
	// the running maximum resets at the year boundary
	assert.InDelta(t, 80.0/95-1, got[1].MaxDrawdown, 1e-12)
}

func TestValueRetCalendarPeriod(t *testing.T) {
	s, err := New(Input{
		Name: "fund",
		Dates: []string{
			"2022-12-30",
			"2023-01-16", "2023-01-31",
			"2023-02-15", "2023-12-29",
		},
		Values: []float64{100, 104, 102, 105, 110},
	})
	require.NoError(t, err)

	year, err := s.ValueRetCalendarPeriod(2023, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, year, 1e-12)

	jan, err := s.ValueRetCalendarPeriod(2023, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, jan, 1e-12)

	_, err = s.ValueRetCalendarPeriod(2021, 0)
	assert.ErrorIs(t, err, ErrRangeOutOfBounds)
}

func TestWorstMonth(t *testing.T) {
	s, err := New(Input{
		Name: "fund",
		Dates: []string{
			"2023-01-16", "2023-01-31",
			"2023-02-15", "2023-02-28",
			"2023-03-15", "2023-03-31",
		},
		Values: []float64{100, 104, 102, 98, 99, 101},
	})
	require.NoError(t, err)

	got, err := s.WorstMonth()
	require.NoError(t, err)
	assert.InDelta(t, 98.0/104-1, got, 1e-12)
	// the monthly resample must not touch the daily table
	assert.Equal(t, 6, s.Length())
}

func TestZScore(t *testing.T) {
	s := testSeries(t)
	got, err := s.ZScore(Window{})
	require.NoError(t, err)

	rets := []float64{0.02, 101.0/102 - 1, 105.0/101 - 1}
	want := (rets[2] - formulas.Mean(rets)) / formulas.StdDev(rets)
	assert.InDelta(t, want, got, 1e-12)
}

func TestAllProperties(t *testing.T) {
	s := testSeries(t)
	props := s.AllProperties()
	require.NotEmpty(t, props)

	byName := make(map[string]float64, len(props))
	for _, p := range props {
		byName[p.Name] = p.Value
	}
	assert.InDelta(t, 0.05, byName["Total return"], 1e-12)
	assert.InDelta(t, 101.0/102-1, byName["Max drawdown"], 1e-12)
	assert.Equal(t, 4.0, byName["Observations"])
	assert.Contains(t, byName, "VaR 95.0%")
}

func TestAllPropertiesVaRLevelFromEnv(t *testing.T) {
	t.Setenv("QUANTSERIES_VAR_LEVEL", "0.9")

	s := testSeries(t)
	byName := make(map[string]float64)
	for _, p := range s.AllProperties() {
		byName[p.Name] = p.Value
	}
	assert.Contains(t, byName, "VaR 90.0%")
	assert.Contains(t, byName, "CVaR 90.0%")
	assert.NotContains(t, byName, "VaR 95.0%")
}

func TestAllPropertiesFlatSeriesYieldsNaN(t *testing.T) {
	s, err := New(Input{
		Name:   "flat",
		Dates:  []string{"2023-01-02", "2023-01-03", "2023-01-04"},
		Values: []float64{100, 100, 100},
	})
	require.NoError(t, err)

	byName := make(map[string]float64)
	for _, p := range s.AllProperties() {
		byName[p.Name] = p.Value
	}
	assert.True(t, math.IsNaN(byName["Return vol ratio"]))
	assert.Equal(t, 0.0, byName["Volatility"])
}
