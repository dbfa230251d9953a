// internal/status/tracker_test.go
package status

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
	"github.com/tamzrod/attendance-notifier/internal/poller"
	"github.com/tamzrod/attendance-notifier/internal/session"
)

func TestTracker_ErrorThenRecovery(t *testing.T) {
	tr := NewTracker()
	at := time.Date(2026, 10, 19, 10, 40, 0, 0, time.UTC)

	changed := tr.Observe(poller.PollResult{
		At:  at,
		Err: fmt.Errorf("%w: timeout", poller.ErrFetch),
	})
	if !changed {
		t.Fatalf("error result should change status")
	}

	s := tr.Snapshot()
	if s.Health != HealthError || s.LastErrorCode != CodeFetch {
		t.Fatalf("unexpected snapshot %+v", s)
	}

	tr.Tick()
	tr.Tick()
	if tr.Snapshot().SecondsInError != 2 {
		t.Fatalf("seconds_in_error=%d want 2", tr.Snapshot().SecondsInError)
	}

	tr.Observe(poller.PollResult{
		At:      at.Add(10 * time.Minute),
		Courses: 6,
		Events:  []attendance.Event{{CourseCode: "CS101", Kind: attendance.Present}},
	})

	s = tr.Snapshot()
	if s.Health != HealthOK || s.LastErrorCode != 0 || s.SecondsInError != 0 || s.LastError != "" {
		t.Fatalf("recovery did not reset error state: %+v", s)
	}
	if s.CoursesTracked != 6 || s.EventsLastCycle != 1 {
		t.Fatalf("counts not recorded: %+v", s)
	}
	if tr.Tick() {
		t.Fatalf("Tick must not count while healthy")
	}
}

func TestTracker_SkipsLeaveHealth(t *testing.T) {
	tr := NewTracker()
	tr.Observe(poller.PollResult{Courses: 3})

	if tr.Observe(poller.PollResult{Skipped: true, SkipReason: poller.SkipOutsideSchedule}) {
		t.Fatalf("outside-schedule skip must not change status")
	}
	if tr.Snapshot().Health != HealthOK {
		t.Fatalf("health changed on skip")
	}

	tr.Observe(poller.PollResult{Skipped: true, SkipReason: poller.SkipLoginSlot})
	if tr.Snapshot().Health != HealthWaiting {
		t.Fatalf("login-slot wait should report waiting")
	}
}

func TestTracker_SecondsSaturate(t *testing.T) {
	tr := NewTracker()
	tr.Observe(poller.PollResult{Err: errors.New("boom")})
	tr.snap.SecondsInError = 65535

	if tr.Tick() {
		t.Fatalf("saturated counter must not change")
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want uint16
	}{
		{nil, CodeNone},
		{fmt.Errorf("%w: %w", session.ErrAuthFailure, errors.New("400")), CodeAuthFailure},
		{session.ErrRateLimited, CodeRateLimited},
		{fmt.Errorf("%w: %w", poller.ErrSessionExpired, errors.New("unauthorized")), CodeSessionExpired},
		{fmt.Errorf("%w: timeout", poller.ErrFetch), CodeFetch},
		{fmt.Errorf("%w: load: disk", poller.ErrPersistence), CodePersistence},
		{errors.New("mystery"), CodeOther},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v)=%d want %d", tc.err, got, tc.want)
		}
	}
}

func TestEncode(t *testing.T) {
	regs := Encode(Snapshot{Health: HealthError, LastErrorCode: CodeFetch, SecondsInError: 7, CoursesTracked: 6, EventsLastCycle: 2})

	if len(regs) != SlotsPerInstance {
		t.Fatalf("len=%d", len(regs))
	}
	if regs[SlotHealthCode] != HealthError || regs[SlotLastErrorCode] != CodeFetch ||
		regs[SlotSecondsInError] != 7 || regs[SlotCoursesTracked] != 6 || regs[SlotEventsLastCycle] != 2 {
		t.Fatalf("unexpected regs %v", regs)
	}
}

func TestEncodeLabel(t *testing.T) {
	regs := EncodeLabel("AB\x01")
	if regs[0] != uint16('A')<<8|uint16('B') || regs[1] != uint16('?')<<8 {
		t.Fatalf("unexpected label regs %v", regs[:2])
	}
}
