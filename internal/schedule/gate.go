// internal/schedule/gate.go
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Gate decides whether a poll may run at a given wall-clock time.
// Window bounds are minutes of day in Location; End is inclusive.
type Gate struct {
	Location *time.Location
	Weekdays []time.Weekday
	Start    int
	End      int
}

// Allow reports whether t falls on an allowed weekday inside the window.
func (g Gate) Allow(t time.Time) bool {
	if g.Location != nil {
		t = t.In(g.Location)
	}

	if !g.weekdayAllowed(t.Weekday()) {
		return false
	}

	m := t.Hour()*60 + t.Minute()
	return m >= g.Start && m <= g.End
}

func (g Gate) weekdayAllowed(d time.Weekday) bool {
	if len(g.Weekdays) == 0 {
		return true
	}
	for _, w := range g.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// ParseClock parses "HH:MM" into minutes of day.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid time of day %q (want HH:MM)", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday accepts three-letter or full English day names, any case.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if len(key) >= 3 {
		if d, ok := weekdayNames[key[:3]]; ok && (len(key) == 3 || strings.EqualFold(d.String(), key)) {
			return d, nil
		}
	}
	return 0, errors.New("schedule: unknown weekday " + s)
}
