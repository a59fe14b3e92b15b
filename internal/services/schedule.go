package services

import (
	"errors"
	"fmt"
	"time"

	"expenses/internal/core"
)

var ErrInvalidDayOfMonth = errors.New("day of month must be between 1 and 31")

// NextOccurrence computes the next calendar date for a recurring charge
// due on dayOfMonth. A day at or after today's day lands in the current
// month; an earlier day rolls over to the following month, wrapping the
// year at December. Days past the end of the target month clamp to its
// last day, so day 31 in a 30-day month becomes the 30th.
func NextOccurrence(today core.Date, dayOfMonth int) (core.Date, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return core.Date{}, fmt.Errorf("%w: got %d", ErrInvalidDayOfMonth, dayOfMonth)
	}

	year, month := today.Year(), today.Month()
	if dayOfMonth < today.Day() {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}

	day := dayOfMonth
	if last := core.LastDayOfMonth(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day), nil
}
