package domain

import (
	"fmt"
	"time"
)

// NextOccurrence returns the next absolute instant strictly after ref at which
// the local wall time hhmm ("HH:MM") occurs in the given IANA zone.
// Around DST transitions a skipped or repeated local time resolves to the
// nearest forward instant (time.Date normalization).
func NextOccurrence(tz, hhmm string, ref time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	h, m, err := timeOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}

	local := ref.In(loc)
	cand := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc)
	if !cand.After(ref) {
		next := local.AddDate(0, 0, 1)
		cand = time.Date(next.Year(), next.Month(), next.Day(), h, m, 0, 0, loc)
	}
	return cand, nil
}

// OccurrenceOn returns the instant at which hhmm occurs on ref's local
// calendar date in the given zone, whether or not it has already passed.
// The due query uses it to decide "due at or before T on T's date".
func OccurrenceOn(tz, hhmm string, ref time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	h, m, err := timeOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc), nil
}

// SameLocalDate reports whether a and b fall on the same calendar date in the
// given zone. Used to detect "already attempted today".
func SameLocalDate(tz string, a, b time.Time) (bool, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	ya, ma, da := a.In(loc).Date()
	yb, mb, db := b.In(loc).Date()
	return ya == yb && ma == mb && da == db, nil
}

// ValidateTimezone checks that tz is a loadable IANA zone and returns its
// canonical name.
func ValidateTimezone(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc.String(), nil
}
