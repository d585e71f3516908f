package utils

import (
	"fmt"
	"time"
)

// AgeOn returns the age in whole years of someone born on dob, as of now.
func AgeOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// AgeFromDOB parses a date of birth in layout and returns the age as of now.
// A birth date after now is an error.
func AgeFromDOB(layout, dob string, now time.Time) (int, error) {
	born, err := time.Parse(layout, dob)
	if err != nil {
		return 0, fmt.Errorf("invalid date of birth %q: %w", dob, err)
	}
	if born.After(now) {
		return 0, fmt.Errorf("date of birth %q is in the future", dob)
	}
	return AgeOn(born, now), nil
}
