package pipeline

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// MaxRangeDays bounds a single fetch or export.
const MaxRangeDays = 366

// ValidateRange checks that start..end is a valid, bounded, inclusive range.
func ValidateRange(start, end civil.Date) error {
	if !start.IsValid() {
		return fmt.Errorf("invalid start date %s", start)
	}
	if !end.IsValid() {
		return fmt.Errorf("invalid end date %s", end)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", end, start)
	}
	if days := end.DaysSince(start) + 1; days > MaxRangeDays {
		return fmt.Errorf("range of %d days exceeds the %d day limit", days, MaxRangeDays)
	}
	return nil
}

// ParseRange parses two YYYY-MM-DD strings and validates the range.
func ParseRange(rawStart, rawEnd string) (civil.Date, civil.Date, error) {
	start, err := civil.ParseDate(rawStart)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("parsing start date %q: %w", rawStart, err)
	}
	end, err := civil.ParseDate(rawEnd)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("parsing end date %q: %w", rawEnd, err)
	}
	if err := ValidateRange(start, end); err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	return start, end, nil
}
