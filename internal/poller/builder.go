// internal/poller/builder.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/attendance-notifier/internal/clock"
	cfg "github.com/tamzrod/attendance-notifier/internal/config"
	"github.com/tamzrod/attendance-notifier/internal/gitsync"
	"github.com/tamzrod/attendance-notifier/internal/notify"
	"github.com/tamzrod/attendance-notifier/internal/portal"
	"github.com/tamzrod/attendance-notifier/internal/schedule"
	"github.com/tamzrod/attendance-notifier/internal/session"
	"github.com/tamzrod/attendance-notifier/internal/store"
)

// Built is a fully wired poller plus the collaborators other surfaces read.
type Built struct {
	Poller   *Poller
	Sessions *session.Manager
	Store    store.Store
	Close    func() error
}

// Build wires a Poller from validated, normalized config.
// The remote store is connected here so a bad DSN fails at startup.
// Nothing else touches the network until the first cycle.
func Build(ctx context.Context, c *cfg.Config, clk clock.Clock, logger *slog.Logger) (*Built, error) {
	if c == nil {
		return nil, errors.New("poller build: nil config")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("poller build: timezone: %w", err)
	}

	// ---- portal ----
	pc, err := portal.New(portal.Config{
		BaseURL:  c.Portal.BaseURL,
		Username: c.Portal.Username,
		Password: c.Portal.Password,
		Timeout:  time.Duration(c.Portal.TimeoutMs) * time.Millisecond,
	}, nil)
	if err != nil {
		return nil, err
	}

	// ---- session ----
	sessions, err := session.New(session.Config{
		Validity:     c.Session.Validity,
		RenewAfter:   c.Session.RenewAfter,
		BackoffBase:  c.Session.BackoffBase,
		Cooldown:     c.Session.Cooldown,
		MaxFailures:  c.Session.MaxFailures,
		LoginTimeout: time.Duration(c.Portal.TimeoutMs) * time.Millisecond,
		Slots: schedule.Slots{
			Location:  loc,
			Minutes:   c.Session.LoginSlots,
			Tolerance: c.Session.SlotTolerance,
		},
	}, pc, clk, logger)
	if err != nil {
		return nil, err
	}

	// ---- notifier ----
	var notifier notify.Notifier = notify.Log{Logger: logger.With("component", "notify")}
	if tg := c.Notify.Telegram; tg.BotToken != "" {
		t, err := notify.NewTelegram(notify.TelegramConfig{
			BaseURL:  tg.BaseURL,
			BotToken: tg.BotToken,
			ChatID:   tg.ChatID,
			Timeout:  time.Duration(tg.TimeoutMs) * time.Millisecond,
		}, nil)
		if err != nil {
			return nil, err
		}
		notifier = t
	} else {
		logger.Warn("no telegram bot token configured; notifications go to the log")
	}

	// ---- store ----
	closers := []func() error{}
	tiered := &store.Tiered{
		Fallback: store.File{Path: c.Store.File},
		Logger:   logger.With("component", "store"),
	}
	if c.Store.PostgresDSN != "" {
		pg, err := store.OpenPostgres(ctx, c.Store.PostgresDSN, c.Store.Key)
		if err != nil {
			return nil, err
		}
		tiered.Primary = pg
		closers = append(closers, pg.Close)
	}

	// ---- git backup ----
	var syncer Syncer
	if g := c.GitSync; g.Enabled {
		s, err := gitsync.New(gitsync.Config{
			RepoDir:     g.RepoDir,
			File:        c.Store.File,
			Remote:      g.Remote,
			RemoteURL:   g.RemoteURL,
			Branch:      g.Branch,
			AuthorName:  g.AuthorName,
			AuthorEmail: g.AuthorEmail,
			SSHKeyPath:  g.SSHKeyPath,
			Push:        g.Push,
		}, clk)
		if err != nil {
			return nil, err
		}
		syncer = s
	}

	// ---- schedule ----
	gate, err := buildGate(c.Schedule, loc)
	if err != nil {
		return nil, err
	}

	p, err := New(
		Config{
			Interval:   c.Poll.Interval,
			RunOnStart: c.Poll.RunOnStart,
			Gate:       gate,
		},
		Deps{
			Sessions: sessions,
			Portal:   pc,
			Notifier: notifier,
			Store:    tiered,
			Syncer:   syncer,
			Clock:    clk,
			Logger:   logger,
		},
	)
	if err != nil {
		return nil, err
	}

	closeFn := func() error {
		// let an in-flight renewal finish before the store goes away
		sessions.Wait()
		var errs []error
		for _, fn := range closers {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}

	return &Built{
		Poller:   p,
		Sessions: sessions,
		Store:    tiered,
		Close:    closeFn,
	}, nil
}

func buildGate(sc cfg.ScheduleConfig, loc *time.Location) (schedule.Gate, error) {
	start, err := schedule.ParseClock(sc.Start)
	if err != nil {
		return schedule.Gate{}, fmt.Errorf("poller build: schedule.start: %w", err)
	}
	end, err := schedule.ParseClock(sc.End)
	if err != nil {
		return schedule.Gate{}, fmt.Errorf("poller build: schedule.end: %w", err)
	}

	days := make([]time.Weekday, 0, len(sc.Weekdays))
	for _, s := range sc.Weekdays {
		d, err := schedule.ParseWeekday(s)
		if err != nil {
			return schedule.Gate{}, fmt.Errorf("poller build: schedule.weekdays: %w", err)
		}
		days = append(days, d)
	}

	return schedule.Gate{
		Location: loc,
		Weekdays: days,
		Start:    start,
		End:      end,
	}, nil
}
