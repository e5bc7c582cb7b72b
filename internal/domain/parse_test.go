package domain

import (
	"errors"
	"testing"
)

func TestParseTimeOfDay_Normalizes(t *testing.T) {
	cases := map[string]string{
		"8":      "08:00",
		"08":     "08:00",
		"23":     "23:00",
		"8:30":   "08:30",
		"08:30":  "08:30",
		" 7:05 ": "07:05",
		"830":    "08:30",
		"1245":   "12:45",
		"0000":   "00:00",
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseTimeOfDay(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseTimeOfDay_Rejects(t *testing.T) {
	for _, in := range []string{"", "25:00", "12:60", "2460", "24", "abc", "8:5", "12:345", "123:45"} {
		if _, err := ParseTimeOfDay(in); !errors.Is(err, ErrInvalidTimeOfDay) {
			t.Errorf("ParseTimeOfDay(%q): want ErrInvalidTimeOfDay, got %v", in, err)
		}
	}
}
