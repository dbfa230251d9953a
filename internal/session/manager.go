// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tamzrod/attendance-notifier/internal/clock"
	"github.com/tamzrod/attendance-notifier/internal/schedule"
)

// Config is the login policy.
type Config struct {
	Validity     time.Duration
	RenewAfter   time.Duration
	BackoffBase  time.Duration
	Cooldown     time.Duration
	MaxFailures  int
	LoginTimeout time.Duration // background renewals only
	Slots        schedule.Slots
}

// DefaultConfig mirrors the portal's observed behaviour: day-long tokens,
// renew at 20h, logins at :00 and :30.
func DefaultConfig() Config {
	return Config{
		Validity:     24 * time.Hour,
		RenewAfter:   20 * time.Hour,
		BackoffBase:  time.Minute,
		Cooldown:     30 * time.Minute,
		MaxFailures:  3,
		LoginTimeout: 30 * time.Second,
		Slots: schedule.Slots{
			Minutes:   []int{0, 30},
			Tolerance: 5 * time.Minute,
		},
	}
}

// Manager is the single writer of the session and the attempt ledger.
type Manager struct {
	cfg    Config
	auth   Authenticator
	clock  clock.Clock
	logger *slog.Logger

	// serialises upstream logins (foreground and background renewal)
	loginMu sync.Mutex

	mu          sync.Mutex
	current     *Session // kept after expiry as the stale fallback
	invalidated bool
	ledger      Ledger
	renewing    bool

	renewals sync.WaitGroup
}

// New validates the policy and returns a Manager with no session.
func New(cfg Config, auth Authenticator, clk clock.Clock, logger *slog.Logger) (*Manager, error) {
	if auth == nil {
		return nil, errors.New("session: authenticator required")
	}
	if cfg.Validity <= 0 {
		return nil, errors.New("session: validity must be > 0")
	}
	if cfg.RenewAfter <= 0 || cfg.RenewAfter >= cfg.Validity {
		return nil, errors.New("session: renew_after must be > 0 and < validity")
	}
	if cfg.MaxFailures <= 0 {
		return nil, errors.New("session: max_failures must be > 0")
	}
	if cfg.Cooldown <= 0 {
		return nil, errors.New("session: cooldown must be > 0")
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 30 * time.Second
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:    cfg,
		auth:   auth,
		clock:  clk,
		logger: logger.With("component", "session"),
	}, nil
}

// Acquire returns a usable session, logging in when policy allows.
//
// A near-expiry session is returned as is while a renewal runs in the
// background. During cooldown or backoff a stale session is returned
// instead of ErrRateLimited when one is held.
func (m *Manager) Acquire(ctx context.Context) (Session, error) {
	m.mu.Lock()
	now := m.clock.Now()

	switch m.stateLocked(now) {
	case Valid:
		s := *m.current
		m.mu.Unlock()
		return s, nil

	case NearExpiry:
		s := *m.current
		if !m.renewing && m.attemptAllowedLocked(now) {
			m.renewing = true
			m.renewals.Add(1)
			go m.renew()
		}
		m.mu.Unlock()
		return s, nil

	case CoolingDown:
		defer m.mu.Unlock()
		return m.fallbackLocked(fmt.Errorf("%w: cooling down until %s",
			ErrRateLimited, m.ledger.CooldownUntil.Format(time.RFC3339)))
	}

	// NoSession or Expired.
	if !m.attemptAllowedLocked(now) {
		defer m.mu.Unlock()
		return m.fallbackLocked(fmt.Errorf("%w: backing off after %d failure(s)",
			ErrRateLimited, m.ledger.ConsecutiveFailures))
	}

	// The very first login is free; replacing an expired session waits for a slot.
	if m.current != nil && !m.cfg.Slots.Aligned(now) {
		m.mu.Unlock()
		return Session{}, ErrScheduledWait
	}
	m.mu.Unlock()

	return m.login(ctx)
}

// Invalidate marks the held session expired after the upstream rejected it.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.invalidated {
		return
	}
	m.invalidated = true
	m.logger.Warn("session invalidated by upstream",
		"age", m.clock.Now().Sub(m.current.CreatedAt).Round(time.Second))
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(m.clock.Now())
}

// Ledger returns a copy of the login attempt ledger.
func (m *Manager) Ledger() Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger
}

// Current returns the held session, usable or not.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Wait blocks until in-flight background renewals finish.
func (m *Manager) Wait() {
	m.renewals.Wait()
}

func (m *Manager) stateLocked(now time.Time) State {
	if m.current != nil && !m.invalidated && now.Before(m.current.ExpiresAt) {
		if now.Before(m.current.RenewAt) {
			return Valid
		}
		return NearExpiry
	}
	if now.Before(m.ledger.CooldownUntil) {
		return CoolingDown
	}
	if m.current == nil {
		return NoSession
	}
	return Expired
}

// attemptAllowedLocked checks cooldown and the per-attempt backoff
// min(base*2^failures, cooldown) measured from the last attempt.
func (m *Manager) attemptAllowedLocked(now time.Time) bool {
	if now.Before(m.ledger.CooldownUntil) {
		return false
	}
	if m.ledger.ConsecutiveFailures == 0 {
		return true
	}
	return !now.Before(m.ledger.LastAttemptAt.Add(m.backoffLocked()))
}

func (m *Manager) backoffLocked() time.Duration {
	delay := m.cfg.BackoffBase
	for i := 0; i < m.ledger.ConsecutiveFailures && delay < m.cfg.Cooldown; i++ {
		delay *= 2
	}
	if delay > m.cfg.Cooldown {
		delay = m.cfg.Cooldown
	}
	return delay
}

func (m *Manager) fallbackLocked(err error) (Session, error) {
	if m.current == nil {
		return Session{}, err
	}
	m.logger.Warn("login blocked, using stale session", "reason", err)
	return *m.current, nil
}

func (m *Manager) login(ctx context.Context) (Session, error) {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	// a renewal may have landed while we waited for loginMu
	m.mu.Lock()
	if m.stateLocked(m.clock.Now()) == Valid {
		s := *m.current
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	creds, err := m.auth.Login(ctx)
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ledger.LastAttemptAt = now

	if err != nil {
		m.ledger.ConsecutiveFailures++
		if m.ledger.ConsecutiveFailures >= m.cfg.MaxFailures {
			m.ledger.CooldownUntil = now.Add(m.cfg.Cooldown)
			m.logger.Warn("login failures reached limit, cooling down",
				"failures", m.ledger.ConsecutiveFailures,
				"until", m.ledger.CooldownUntil)
		}
		return Session{}, fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}

	s := newSession(creds, now, m.cfg.Validity, m.cfg.RenewAfter)
	m.current = &s
	m.invalidated = false
	m.ledger = Ledger{LastAttemptAt: now}

	m.logger.Info("logged in", "expires_at", s.ExpiresAt, "renew_at", s.RenewAt)
	return s, nil
}

func (m *Manager) renew() {
	defer m.renewals.Done()
	defer func() {
		m.mu.Lock()
		m.renewing = false
		m.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.LoginTimeout)
	defer cancel()

	if _, err := m.login(ctx); err != nil {
		m.logger.Warn("background session renewal failed", "error", err)
	}
}
