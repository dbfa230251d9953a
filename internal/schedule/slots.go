// internal/schedule/slots.go
package schedule

import "time"

// Slots are the minutes of each hour at which a fresh login may be made.
// A time is aligned when it lies within Tolerance after one of them,
// so a ticker that drifts a little past :00 or :30 still qualifies.
type Slots struct {
	Location  *time.Location
	Minutes   []int
	Tolerance time.Duration
}

// Aligned reports whether t falls inside a login slot.
// With no minutes configured every time is aligned.
func (s Slots) Aligned(t time.Time) bool {
	if len(s.Minutes) == 0 {
		return true
	}
	if s.Location != nil {
		t = t.In(s.Location)
	}

	tol := s.Tolerance
	if tol <= 0 {
		tol = time.Minute
	}

	intoHour := time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())

	for _, m := range s.Minutes {
		since := intoHour - time.Duration(m)*time.Minute
		if since < 0 {
			since += time.Hour
		}
		if since < tol {
			return true
		}
	}
	return false
}
