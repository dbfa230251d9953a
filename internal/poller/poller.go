// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
	"github.com/tamzrod/attendance-notifier/internal/clock"
	"github.com/tamzrod/attendance-notifier/internal/notify"
	"github.com/tamzrod/attendance-notifier/internal/portal"
	"github.com/tamzrod/attendance-notifier/internal/session"
	"github.com/tamzrod/attendance-notifier/internal/store"
)

var (
	ErrFetch          = errors.New("poller: fetch courses failed")
	ErrSessionExpired = errors.New("poller: session expired")
	ErrPersistence    = errors.New("poller: snapshot persistence failed")
)

// Sessions hands out portal sessions.
type Sessions interface {
	Acquire(ctx context.Context) (session.Session, error)
	Invalidate()
}

// Portal fetches the course list.
type Portal interface {
	FetchCourses(ctx context.Context, authorization string) ([]portal.Course, error)
}

// Syncer is the best-effort secondary backup of the stored snapshot.
type Syncer interface {
	Sync(ctx context.Context) (bool, error)
}

// Gate decides whether wall-clock time permits a poll.
type Gate interface {
	Allow(t time.Time) bool
}

// Config is the runtime config the poller needs.
type Config struct {
	Interval   time.Duration
	RunOnStart bool
	Gate       Gate // nil: always allowed
}

// Deps are the collaborators of a poll cycle. Syncer is optional.
type Deps struct {
	Sessions Sessions
	Portal   Portal
	Notifier notify.Notifier
	Store    store.Store
	Syncer   Syncer
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Poller runs attendance poll cycles. Cycles never overlap.
type Poller struct {
	cfg Config
	d   Deps

	inFlight atomic.Bool
}

// New creates a poller with immutable config.
func New(cfg Config, d Deps) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if d.Sessions == nil || d.Portal == nil || d.Notifier == nil || d.Store == nil {
		return nil, errors.New("poller: sessions, portal, notifier and store are required")
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	d.Logger = d.Logger.With("component", "poller")

	return &Poller{cfg: cfg, d: d}, nil
}

// PollOnce performs exactly one poll cycle.
// Any failure before the snapshot is saved aborts the cycle; notification
// failures are counted per course and never abort it.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		CycleID: uuid.NewString(),
		At:      p.d.Clock.Now(),
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		res.Skipped, res.SkipReason = true, SkipInFlight
		return res
	}
	defer p.inFlight.Store(false)

	log := p.d.Logger.With("cycle", res.CycleID)

	if p.cfg.Gate != nil && !p.cfg.Gate.Allow(res.At) {
		res.Skipped, res.SkipReason = true, SkipOutsideSchedule
		log.Debug("poll skipped", "reason", res.SkipReason)
		return res
	}

	// ---- session ----
	sess, err := p.d.Sessions.Acquire(ctx)
	if errors.Is(err, session.ErrScheduledWait) {
		res.Skipped, res.SkipReason = true, SkipLoginSlot
		log.Info("poll skipped", "reason", res.SkipReason)
		return res
	}
	if err != nil {
		res.Err = err
		log.Error("poll aborted: no session", "error", err)
		return res
	}

	// ---- fetch ----
	courses, err := p.d.Portal.FetchCourses(ctx, sess.Authorization())
	if err != nil {
		if errors.Is(err, portal.ErrUnauthorized) {
			p.d.Sessions.Invalidate()
			res.Err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
		} else {
			res.Err = fmt.Errorf("%w: %w", ErrFetch, err)
		}
		log.Error("poll aborted: fetch failed", "error", err)
		return res
	}

	// ---- diff ----
	prev, err := p.d.Store.Load(ctx)
	if err != nil {
		res.Err = fmt.Errorf("%w: load: %w", ErrPersistence, err)
		log.Error("poll aborted: snapshot load failed", "error", err)
		return res
	}

	next := make(attendance.Snapshot, len(courses))
	for _, c := range courses {
		counter, ok := c.Counter()
		if !ok {
			log.Warn("course has no completion details", "course", c.Code)
			continue
		}
		next[c.Code] = counter

		kind := attendance.Classify(prev.Lookup(c.Code), counter)
		if kind == attendance.NoChange {
			continue
		}

		ev := attendance.Event{
			CourseCode: c.Code,
			CourseName: c.Name,
			Kind:       kind,
			Counter:    counter,
			Advisory:   attendance.Advise(counter.Present, counter.Total),
		}
		res.Events = append(res.Events, ev)

		if err := p.d.Notifier.Notify(ctx, attendance.Render(ev)); err != nil {
			res.NotifyFailures++
			log.Warn("notification failed", "course", c.Code, "kind", kind, "error", err)
			continue
		}
		res.Notified++
		log.Info("attendance event", "course", c.Code, "kind", kind,
			"present", counter.Present, "total", counter.Total)
	}
	res.Courses = len(next)

	// ---- persist ----
	if err := p.d.Store.Save(ctx, next); err != nil {
		res.Err = fmt.Errorf("%w: save: %w", ErrPersistence, err)
		log.Error("snapshot save failed", "error", err)
		return res
	}

	if p.d.Syncer != nil {
		if committed, err := p.d.Syncer.Sync(ctx); err != nil {
			log.Warn("state backup sync failed", "error", err)
		} else if committed {
			log.Info("state backup committed")
		}
	}

	log.Info("poll cycle complete",
		"courses", res.Courses,
		"events", len(res.Events),
		"notified", res.Notified,
		"notify_failures", res.NotifyFailures,
	)
	return res
}
