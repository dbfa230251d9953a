// internal/config/validate.go
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/tamzrod/attendance-notifier/internal/schedule"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// PORTAL
	// ------------------------------------------------------------

	if cfg.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if cfg.Portal.Username == "" || cfg.Portal.Password == "" {
		return fmt.Errorf("portal.username and portal.password are required (or PORTAL_USERNAME / PORTAL_PASSWORD)")
	}
	if cfg.Portal.TimeoutMs <= 0 {
		return fmt.Errorf("portal.timeout_ms must be > 0")
	}

	// ------------------------------------------------------------
	// SESSION POLICY
	// ------------------------------------------------------------

	s := cfg.Session
	if s.Validity <= 0 {
		return fmt.Errorf("session.validity must be > 0")
	}
	if s.RenewAfter <= 0 || s.RenewAfter >= s.Validity {
		return fmt.Errorf("session.renew_after (%s) must be > 0 and < session.validity (%s)", s.RenewAfter, s.Validity)
	}
	if s.Cooldown <= 0 {
		return fmt.Errorf("session.cooldown must be > 0")
	}
	if s.BackoffBase <= 0 || s.BackoffBase > s.Cooldown {
		return fmt.Errorf("session.backoff_base must be > 0 and <= session.cooldown")
	}
	if s.MaxFailures <= 0 {
		return fmt.Errorf("session.max_failures must be > 0")
	}
	for _, m := range s.LoginSlots {
		if m < 0 || m > 59 {
			return fmt.Errorf("session.login_slots: minute %d out of range 0-59", m)
		}
	}
	if s.SlotTolerance < 0 || s.SlotTolerance > time.Hour {
		return fmt.Errorf("session.slot_tolerance must be within 0-1h")
	}

	// ------------------------------------------------------------
	// NOTIFY (telegram is all-or-nothing)
	// ------------------------------------------------------------

	tg := cfg.Notify.Telegram
	if (tg.BotToken == "") != (tg.ChatID == "") {
		return fmt.Errorf("notify.telegram: bot_token and chat_id must be set together")
	}

	// ------------------------------------------------------------
	// STORE
	// ------------------------------------------------------------

	if cfg.Store.File == "" {
		return fmt.Errorf("store.file is required (local fallback tier)")
	}

	// ------------------------------------------------------------
	// GIT SYNC (opt-in)
	// ------------------------------------------------------------

	if cfg.GitSync.Enabled && cfg.GitSync.RepoDir == "" {
		return fmt.Errorf("git_sync.repo_dir is required when git_sync is enabled")
	}

	// ------------------------------------------------------------
	// SCHEDULE
	// ------------------------------------------------------------

	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	for _, d := range cfg.Schedule.Weekdays {
		if _, err := schedule.ParseWeekday(d); err != nil {
			return fmt.Errorf("schedule.weekdays: %w", err)
		}
	}
	start, err := schedule.ParseClock(cfg.Schedule.Start)
	if err != nil {
		return fmt.Errorf("schedule.start: %w", err)
	}
	end, err := schedule.ParseClock(cfg.Schedule.End)
	if err != nil {
		return fmt.Errorf("schedule.end: %w", err)
	}
	if start > end {
		return fmt.Errorf("schedule.start (%s) must not be after schedule.end (%s)", cfg.Schedule.Start, cfg.Schedule.End)
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be > 0")
	}

	// The slot window (explicit, or the poll interval by default) must be
	// narrower than the tightest gap between slots, or every minute counts
	// as a login slot.
	if gap, ok := minSlotGap(s.LoginSlots); ok {
		tol, from := s.SlotTolerance, "session.slot_tolerance"
		if tol == 0 {
			tol, from = cfg.Poll.Interval, "poll.interval (default session.slot_tolerance)"
		}
		if tol >= gap {
			return fmt.Errorf("%s (%s) must be < the smallest gap between session.login_slots (%s)", from, tol, gap)
		}
	}

	// ------------------------------------------------------------
	// STATUS EXPORT (opt-in)
	// ------------------------------------------------------------

	if cfg.StatusExport.Endpoint != "" {
		for i := 0; i < len(cfg.StatusExport.Label); i++ {
			if cfg.StatusExport.Label[i] > 0x7F {
				return fmt.Errorf("status_export.label must contain ASCII characters only")
			}
		}
		if cfg.StatusExport.TimeoutMs <= 0 {
			return fmt.Errorf("status_export.timeout_ms must be > 0")
		}
	}

	return nil
}

// minSlotGap returns the smallest distance between consecutive login
// slots, wrapping around the hour. ok is false with no slots.
func minSlotGap(minutes []int) (time.Duration, bool) {
	if len(minutes) == 0 {
		return 0, false
	}

	sorted := append([]int(nil), minutes...)
	sort.Ints(sorted)

	gap := 60 - sorted[len(sorted)-1] + sorted[0]
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 0 && d < gap {
			gap = d
		}
	}
	return time.Duration(gap) * time.Minute, true
}
