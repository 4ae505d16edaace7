package workflows

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the only date format users type. Wire dates are RFC 3339.
const DateLayout = "02/01/2006 15:04"

// dateShape rejects near-miss inputs (ISO dates, single-digit days) before
// time.Parse gets a chance to be lenient about them.
var dateShape = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}$`)

// NowTimeFunc returns the current time and can be replaced for testing.
var NowTimeFunc = time.Now

var (
	errDateFormat      = errors.New("Invalid date format. Please use DD/MM/YYYY HH:MM (for example 25/12/2024 14:30).")
	errDateNotFuture   = errors.New("The date must be in the future.")
	errDeadlineTooLate = errors.New("The registration deadline must not be after the event date.")
)

// ParseDate parses user input in DateLayout, shape-checked first.
func ParseDate(input string) (time.Time, error) {
	if !dateShape.MatchString(input) {
		return time.Time{}, errDateFormat
	}
	t, err := time.Parse(DateLayout, input)
	if err != nil {
		return time.Time{}, errDateFormat
	}
	return t, nil
}

// ValidateFutureDate parses input and requires it to be strictly after now.
func ValidateFutureDate(input string) (time.Time, error) {
	t, err := ParseDate(input)
	if err != nil {
		return time.Time{}, err
	}
	if !t.After(NowTimeFunc().UTC()) {
		return time.Time{}, errDateNotFuture
	}
	return t, nil
}

// ValidateDeadline parses input and requires it to be strictly future and
// no later than the event date. Equal to the event date is allowed.
func ValidateDeadline(input string, eventDate time.Time) (time.Time, error) {
	t, err := ValidateFutureDate(input)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(eventDate) {
		return time.Time{}, errDeadlineTooLate
	}
	return t, nil
}

func toWire(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func fromWire(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse wire date %q: %w", s, err)
	}
	return t, nil
}
