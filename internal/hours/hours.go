// Package hours answers whether the human sales team is reachable right
// now. The bot itself runs around the clock; this only gates the
// off-hours notice shown before escalations.
package hours

import (
	"log"
	"time"
)

const defaultTimezone = "America/Sao_Paulo"

// Checker reports whether the current instant falls inside the team's
// working window: Monday to Friday, 08:30 to 12:00, in the configured
// timezone.
type Checker struct {
	enabled bool
	loc     *time.Location
	now     func() time.Time
}

func NewChecker(enabled bool, timezone string) *Checker {
	if timezone == "" {
		timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("hours: unknown timezone %q, falling back to UTC: %v", timezone, err)
		loc = time.UTC
	}
	return &Checker{enabled: enabled, loc: loc, now: time.Now}
}

// SetNow overrides the clock. Test hook.
func (c *Checker) SetNow(now func() time.Time) { c.now = now }

// Enabled reports whether business-hours gating is active at all.
func (c *Checker) Enabled() bool { return c.enabled }

// Open reports whether the team is currently available. Always true when
// gating is disabled.
func (c *Checker) Open() bool {
	if !c.enabled {
		return true
	}
	t := c.now().In(c.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 8*60+30 && minutes < 12*60
}

// Info is the business-hours block of the stats endpoint.
type Info struct {
	Enabled  bool   `json:"enabled"`
	Open     bool   `json:"open"`
	Window   string `json:"window"`
	Timezone string `json:"timezone"`
	Now      string `json:"now"`
}

func (c *Checker) Info() Info {
	return Info{
		Enabled:  c.enabled,
		Open:     c.Open(),
		Window:   "Mon-Fri 08:30-12:00",
		Timezone: c.loc.String(),
		Now:      c.now().In(c.loc).Format(time.RFC3339),
	}
}
