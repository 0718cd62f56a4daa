package hours

import (
	"testing"
	"time"
)

func at(t *testing.T, c *Checker, value string) {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	c.SetNow(func() time.Time { return parsed })
}

func TestOpenWindow(t *testing.T) {
	c := NewChecker(true, "America/Sao_Paulo")

	cases := []struct {
		when string // 2026-08-31 is a Monday
		want bool
	}{
		{"2026-08-31 08:29", false},
		{"2026-08-31 08:30", true},
		{"2026-08-31 10:00", true},
		{"2026-08-31 11:59", true},
		{"2026-08-31 12:00", false},
		{"2026-08-31 15:00", false},
		{"2026-09-04 09:00", true},  // Friday
		{"2026-09-05 09:00", false}, // Saturday
		{"2026-09-06 09:00", false}, // Sunday
	}
	for _, tc := range cases {
		at(t, c, tc.when)
		if got := c.Open(); got != tc.want {
			t.Errorf("Open at %s = %v, want %v", tc.when, got, tc.want)
		}
	}
}

func TestDisabledAlwaysOpen(t *testing.T) {
	c := NewChecker(false, "America/Sao_Paulo")
	at(t, c, "2026-09-06 03:00") // Sunday, middle of the night
	if !c.Open() {
		t.Fatal("disabled checker must report open")
	}
}

func TestUnknownTimezoneFallsBack(t *testing.T) {
	c := NewChecker(true, "Mars/Olympus_Mons")
	c.SetNow(func() time.Time {
		return time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	})
	if !c.Open() {
		t.Fatal("UTC fallback: Monday 09:00 UTC should be open")
	}
}
