package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrInvalidTimezone  = errors.New("invalid timezone")
)

// ParseTimeOfDay normalizes a user-typed time of day to "HH:MM" (24h).
// Accepted forms: "8", "08", "8:30", "08:30", "830", "1245".
// Out-of-range values (hour > 23, minute > 59) are rejected, never clamped.
func ParseTimeOfDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidTimeOfDay)
	}

	if h, m, ok := splitColon(s); ok {
		return formatHM(h, m)
	}

	if !isAllDigits(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	switch len(s) {
	case 1, 2: // bare hour: "8", "14"
		h, _ := strconv.Atoi(s)
		return formatHM(h, 0)
	case 3: // "830" -> 08:30
		h, _ := strconv.Atoi(s[:1])
		m, _ := strconv.Atoi(s[1:])
		return formatHM(h, m)
	case 4: // "1245" -> 12:45
		h, _ := strconv.Atoi(s[:2])
		m, _ := strconv.Atoi(s[2:])
		return formatHM(h, m)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

func splitColon(s string) (h, m int, ok bool) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return 0, 0, false
	}
	hs, ms := s[:i], s[i+1:]
	if !isAllDigits(hs) || len(hs) > 2 || len(ms) != 2 || !isAllDigits(ms) {
		return 0, 0, false
	}
	h, _ = strconv.Atoi(hs)
	m, _ = strconv.Atoi(ms)
	return h, m, true
}

func formatHM(h, m int) (string, error) {
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return "", fmt.Errorf("%w: %02d:%02d out of range", ErrInvalidTimeOfDay, h, m)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// timeOfDay splits an already-normalized "HH:MM" value. Stored reminder
// times always satisfy this; anything else is data corruption.
func timeOfDay(s string) (h, m int, err error) {
	h, m, ok := splitColon(s)
	if !ok || len(s) != 5 || h > 23 || m > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return h, m, nil
}
