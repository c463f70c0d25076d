// Package patchday computes the vendor's monthly release day, the second
// Tuesday of the month.
package patchday

import (
	"errors"
	"fmt"
	"time"
)

// Supported year range. The vendor's monthly cadence starts well after
// MinYear; MaxYear only guards against garbage input.
const (
	MinYear = 1970
	MaxYear = 9999
)

// ErrInvalidCalendarInput is returned for a month outside 1..12 or a year
// outside [MinYear, MaxYear].
var ErrInvalidCalendarInput = errors.New("patchday: invalid calendar input")

// SecondTuesday returns the second Tuesday of the given month.
func SecondTuesday(year, month int) (int, time.Month, int, error) {
	if err := check(year, month); err != nil {
		return 0, 0, 0, err
	}

	var tuesdays []int
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Tuesday {
			tuesdays = append(tuesdays, d.Day())
		}
	}
	return year, time.Month(month), tuesdays[1], nil
}

// Date renders the second Tuesday as yyyy-mm-dd with deltaDays added to the
// day-of-month. The delta is applied to the day field only and never rolls
// into a neighbouring month; the second Tuesday falls on day 8..14, so small
// offsets stay inside the month.
func Date(year, month, deltaDays int) (string, error) {
	y, m, d, err := SecondTuesday(year, month)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%02d-%02d", y, int(m), d+deltaDays), nil
}

// Human renders the second Tuesday as "Tuesday, June 13, 2023".
func Human(year, month int) (string, error) {
	y, m, d, err := SecondTuesday(year, month)
	if err != nil {
		return "", err
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return t.Format("Monday, January 2, 2006"), nil
}

// PreviousMonth steps back one month, rolling January into December of the
// previous year.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

func check(year, month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidCalendarInput, month)
	}
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: year %d", ErrInvalidCalendarInput, year)
	}
	return nil
}
