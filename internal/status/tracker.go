// internal/status/tracker.go
package status

import (
	"errors"
	"math"
	"sync"

	"github.com/tamzrod/attendance-notifier/internal/notify"
	"github.com/tamzrod/attendance-notifier/internal/poller"
	"github.com/tamzrod/attendance-notifier/internal/session"
)

// Tracker folds poll results into a Snapshot.
// Observe and Tick report whether anything changed so writers only
// deliver on change.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Observe applies one poll result.
func (t *Tracker) Observe(res poller.PollResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.snap

	switch {
	case res.Skipped && res.SkipReason == poller.SkipLoginSlot:
		t.snap.Health = HealthWaiting
	case res.Skipped:
		// outside schedule or overlapping trigger: health unchanged
		return false

	case res.Err == nil:
		// Recovery / OK
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = CodeNone
		t.snap.SecondsInError = 0
		t.snap.LastError = ""
		t.snap.CoursesTracked = clamp16(res.Courses)
		t.snap.EventsLastCycle = clamp16(len(res.Events))

	default:
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(res.Err)
		t.snap.LastError = res.Err.Error()
		// seconds_in_error increments on Tick only
	}

	t.snap.LastCycleAt = res.At
	return t.snap != before
}

// Tick advances seconds_in_error by one while health is not OK.
// Call it at 1 Hz. The counter saturates instead of wrapping.
func (t *Tracker) Tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Health != HealthError {
		return false
	}
	if t.snap.SecondsInError == math.MaxUint16 {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode maps a cycle error to a stable numeric code.
func ErrorCode(err error) uint16 {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, session.ErrAuthFailure):
		return CodeAuthFailure
	case errors.Is(err, session.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, poller.ErrSessionExpired):
		return CodeSessionExpired
	case errors.Is(err, poller.ErrFetch):
		return CodeFetch
	case errors.Is(err, notify.ErrNotify):
		return CodeNotify
	case errors.Is(err, poller.ErrPersistence):
		return CodePersistence
	default:
		return CodeOther
	}
}

func clamp16(n int) uint16 {
	if n < 0 {
		return 0
	}
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(n)
}
