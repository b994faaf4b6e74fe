// Package calendar defines the business-day calendar contract consumed by
// the alignment engine, plus a weekday-based default implementation.
// Holiday-aware calendars are external collaborators implementing Service.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrCalendarUnavailable indicates the calendar service could not resolve
// the requested country codes or date range.
var ErrCalendarUnavailable = errors.New("calendar unavailable")

// Service returns the ordered set of valid business dates for a country
// set within [start, end], both inclusive.
type Service interface {
	BusinessDays(countries []string, start, end time.Time) ([]time.Time, error)
}

// WeekdayCalendar is the default Service: Monday through Friday with no
// holiday handling. Country codes are validated as ISO 3166-1 alpha-2
// even though they do not alter the result, so an invalid code fails the
// same way it would against a holiday-aware implementation.
type WeekdayCalendar struct {
	validate *validator.Validate
}

// NewWeekdayCalendar creates the default business-day calendar.
func NewWeekdayCalendar() *WeekdayCalendar {
	return &WeekdayCalendar{validate: validator.New()}
}

// BusinessDays returns the weekdays within [start, end] in ascending order.
func (c *WeekdayCalendar) BusinessDays(countries []string, start, end time.Time) ([]time.Time, error) {
	if len(countries) == 0 {
		return nil, fmt.Errorf("%w: no country codes given", ErrCalendarUnavailable)
	}
	for _, code := range countries {
		if err := c.validate.Var(code, "iso3166_1_alpha2"); err != nil {
			return nil, fmt.Errorf("%w: invalid country code %q", ErrCalendarUnavailable, code)
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %s before start date %s",
			ErrCalendarUnavailable, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		default:
			days = append(days, d)
		}
	}
	return days, nil
}
