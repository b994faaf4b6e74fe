package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessDaysSkipsWeekends(t *testing.T) {
	cal := NewWeekdayCalendar()

	// 2020-01-03 is a Friday, 2020-01-06 a Monday.
	start := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC)

	days, err := cal.BusinessDays([]string{"SE"}, start, end)
	require.NoError(t, err)

	want := []time.Time{
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, want, days)
}

func TestBusinessDaysInvalidCountry(t *testing.T) {
	cal := NewWeekdayCalendar()

	_, err := cal.BusinessDays([]string{"XX1"},
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalendarUnavailable)
}

func TestBusinessDaysEmptyCountries(t *testing.T) {
	cal := NewWeekdayCalendar()

	_, err := cal.BusinessDays(nil,
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrCalendarUnavailable)
}

func TestBusinessDaysReversedRange(t *testing.T) {
	cal := NewWeekdayCalendar()

	_, err := cal.BusinessDays([]string{"US"},
		time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrCalendarUnavailable)
}
