package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantseries/pkg/calendar"
	"github.com/aristath/quantseries/pkg/timeseries"
)

func mustSeries(t *testing.T, name string, dates []string, values []float64) *timeseries.Series {
	t.Helper()
	s, err := timeseries.New(timeseries.Input{Name: name, Dates: dates, Values: values})
	require.NoError(t, err)
	return s
}

func pairFrame(t *testing.T) *Frame {
	t.Helper()
	a := mustSeries(t, "a",
		[]string{"2023-01-02", "2023-01-03", "2023-01-04", "2023-01-05"},
		[]float64{100, 102, 101, 105})
	b := mustSeries(t, "b",
		[]string{"2023-01-02", "2023-01-03", "2023-01-04", "2023-01-05"},
		[]float64{50, 51, 53, 52})
	f, err := New(a, b)
	require.NoError(t, err)
	return f
}

func TestNewRejectsDuplicateLabels(t *testing.T) {
	a := mustSeries(t, "same", []string{"2023-01-02"}, []float64{1})
	b := mustSeries(t, "same", []string{"2023-01-02"}, []float64{2})
	_, err := New(a, b)
	assert.ErrorIs(t, err, ErrDuplicateLabels)
}

func TestNewDeepCopiesConstituents(t *testing.T) {
	a := mustSeries(t, "a", []string{"2023-01-02", "2023-01-03"}, []float64{100, 102})
	f, err := New(a)
	require.NoError(t, err)

	a.ValueToRet()
	col, err := f.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 102}, col)
}

func TestMergeOuterJoin(t *testing.T) {
	a := mustSeries(t, "a",
		[]string{"2023-01-02", "2023-01-04"}, []float64{100, 101})
	b := mustSeries(t, "b",
		[]string{"2023-01-03", "2023-01-04"}, []float64{50, 51})
	f, err := New(a, b)
	require.NoError(t, err)

	require.Equal(t, 3, f.Length())
	colA, err := f.Column("a")
	require.NoError(t, err)
	colB, err := f.Column("b")
	require.NoError(t, err)

	assert.Equal(t, 100.0, colA[0])
	assert.True(t, math.IsNaN(colA[1]))
	assert.Equal(t, 101.0, colA[2])
	assert.True(t, math.IsNaN(colB[0]))
	assert.Equal(t, 50.0, colB[1])
}

func TestAddAndDeleteSeries(t *testing.T) {
	f := pairFrame(t)
	c := mustSeries(t, "c", []string{"2023-01-03", "2023-01-06"}, []float64{10, 11})

	require.NoError(t, f.AddSeries(c))
	assert.Equal(t, 3, f.ItemCount())
	assert.Equal(t, 5, f.Length())
	assert.Equal(t, []string{"a", "b", "c"}, f.Labels())

	assert.ErrorIs(t, f.AddSeries(c), ErrDuplicateLabels)

	require.NoError(t, f.DeleteSeries("c"))
	assert.Equal(t, 2, f.ItemCount())
	assert.Equal(t, 4, f.Length())

	assert.ErrorIs(t, f.DeleteSeries("missing"), ErrLabelNotFound)
}

func TestTruncFrameToIntersection(t *testing.T) {
	a := mustSeries(t, "a",
		[]string{"2020-01-02", "2020-01-03", "2020-01-05", "2020-01-08", "2020-01-10"},
		[]float64{1, 2, 3, 4, 5})
	b := mustSeries(t, "b",
		[]string{"2020-01-03", "2020-01-04", "2020-01-05"},
		[]float64{10, 11, 12})
	f, err := New(a, b)
	require.NoError(t, err)

	require.NoError(t, f.TruncFrame(time.Time{}, time.Time{}))

	want := time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, f.LastDate())
	for _, last := range f.LastIndices() {
		assert.Equal(t, want, last)
	}
	assert.Equal(t, time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), f.FirstDate())
}

func TestTruncFrameEmptyIntersection(t *testing.T) {
	a := mustSeries(t, "a", []string{"2020-01-02", "2020-01-03"}, []float64{1, 2})
	b := mustSeries(t, "b", []string{"2020-02-02", "2020-02-03"}, []float64{1, 2})
	f, err := New(a, b)
	require.NoError(t, err)

	assert.ErrorIs(t, f.TruncFrame(time.Time{}, time.Time{}), ErrEmptyAlignment)
}

func TestTruncFrameErrorLeavesFrameUnchanged(t *testing.T) {
	a := mustSeries(t, "a",
		[]string{"2020-01-02", "2020-01-03", "2020-01-06", "2020-01-07"},
		[]float64{1, 2, 3, 4})
	b := mustSeries(t, "b",
		[]string{"2020-01-02", "2020-01-03", "2020-01-06", "2020-01-07"},
		[]float64{5, 6, 7, 8})
	c := mustSeries(t, "c", []string{"2020-01-02"}, []float64{9})
	f, err := New(a, b, c)
	require.NoError(t, err)

	lengths := f.Lengths()
	dates := f.Dates()

	// a and b can be cut to the range but c has nothing inside it; the
	// failure must not leave them cut.
	start := time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 7, 0, 0, 0, 0, time.UTC)
	require.ErrorIs(t, f.TruncFrame(start, end), ErrEmptyAlignment)

	assert.Equal(t, lengths, f.Lengths())
	assert.Equal(t, dates, f.Dates())
}

func TestAlignIndexToLocalCDays(t *testing.T) {
	// a misses the Monday the calendar contains; forward fill closes it.
	a := mustSeries(t, "a",
		[]string{"2023-01-06", "2023-01-10"}, []float64{100, 102})
	b := mustSeries(t, "b",
		[]string{"2023-01-06", "2023-01-09", "2023-01-10"}, []float64{50, 51, 52})
	f, err := New(a, b)
	require.NoError(t, err)

	require.NoError(t, f.AlignIndexToLocalCDays(calendar.NewWeekdayCalendar(), []string{"SE"}))

	colA, err := f.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 100, 102}, colA)
}

func TestFrameTransformsAndProperties(t *testing.T) {
	f := pairFrame(t)

	assert.Equal(t, []int{4, 4}, f.Lengths())
	assert.Greater(t, f.PeriodsInAYear(), 0.0)

	f.ValueToRet()
	colA, err := f.Column("a")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(colA[0]))
	assert.InDelta(t, 0.02, colA[1], 1e-12)

	f.ReturnNaNHandle()
	colA, err = f.Column("a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, colA[0])

	f.ToCumRet()
	colA, err = f.Column("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, colA[0])
	assert.InDelta(t, 1.05, colA[3], 1e-12)
}

func TestFramePerColumnStats(t *testing.T) {
	f := pairFrame(t)
	w := timeseries.Window{}

	rets, err := f.ValueRet(w)
	require.NoError(t, err)
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.05, rets[0], 1e-12)
	assert.InDelta(t, 0.04, rets[1], 1e-12)

	dds, err := f.MaxDrawdown(w)
	require.NoError(t, err)
	assert.InDelta(t, 101.0/102-1, dds[0], 1e-12)
	assert.InDelta(t, 52.0/53-1, dds[1], 1e-12)

	vols, err := f.Vol(timeseries.Window{FixedPeriodsPerYear: 252})
	require.NoError(t, err)
	assert.Greater(t, vols[0], 0.0)
	assert.Greater(t, vols[1], 0.0)
}

func TestCorrelMatrix(t *testing.T) {
	f := pairFrame(t)
	corr := f.CorrelMatrix()

	require.Len(t, corr, 2)
	assert.InDelta(t, 1.0, corr[0][0], 1e-12)
	assert.InDelta(t, 1.0, corr[1][1], 1e-12)
	assert.InDelta(t, corr[0][1], corr[1][0], 1e-12)
	assert.LessOrEqual(t, math.Abs(corr[0][1]), 1.0)
}

func TestAllProperties(t *testing.T) {
	f := pairFrame(t)
	props, err := f.AllProperties()
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "a", props[0].Label)
	assert.NotEmpty(t, props[0].Properties)
}

func TestResampleToBusinessPeriodEnds(t *testing.T) {
	// 2023-04-30 is a Sunday; month end must snap back to Friday the 28th.
	a := mustSeries(t, "a",
		[]string{"2023-04-14", "2023-04-21", "2023-05-19", "2023-05-31"},
		[]float64{1, 2, 3, 4})
	f, err := New(a)
	require.NoError(t, err)

	require.NoError(t, f.ResampleToBusinessPeriodEnds(timeseries.Monthly, calendar.NewWeekdayCalendar(), []string{"SE"}))

	dates := f.Dates()
	require.Len(t, dates, 2)
	assert.Equal(t, time.Date(2023, 4, 28, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC), dates[1])
}
