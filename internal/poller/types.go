// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
)

// Skip reasons. A skipped cycle is not a failure.
const (
	SkipInFlight        = "cycle already in flight"
	SkipOutsideSchedule = "outside schedule"
	SkipLoginSlot       = "waiting for login slot"
)

// PollResult is what one poll cycle produced.
type PollResult struct {
	CycleID string
	At      time.Time

	Skipped    bool
	SkipReason string

	Courses        int // courses written to the new snapshot
	Events         []attendance.Event
	Notified       int
	NotifyFailures int

	Err error // non-nil means the cycle aborted
}

// OK reports a cycle that ran to completion.
func (r PollResult) OK() bool {
	return !r.Skipped && r.Err == nil
}
