// internal/session/manager_test.go
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tamzrod/attendance-notifier/internal/clock"
	"github.com/tamzrod/attendance-notifier/internal/schedule"
)

// ---- fake authenticator ----

type fakeAuth struct {
	mu    sync.Mutex
	calls int
	fail  bool
	token string
}

func (f *fakeAuth) Login(ctx context.Context) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.fail {
		return Credentials{}, errors.New("upstream said no")
	}
	tok := f.token
	if tok == "" {
		tok = fmt.Sprintf("tok-%d", f.calls)
	}
	return Credentials{AuthPrefix: "Bearer ", Token: tok}, nil
}

func (f *fakeAuth) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeAuth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ---- helpers ----

// Monday 11:17 UTC: deliberately off-slot.
var start = time.Date(2026, 10, 19, 11, 17, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Slots = schedule.Slots{Location: time.UTC, Minutes: []int{0, 30}, Tolerance: 5 * time.Minute}
	return cfg
}

func newTestManager(t *testing.T, auth *fakeAuth) (*Manager, *clock.FakeClock) {
	t.Helper()

	clk := clock.Fake(start)
	m, err := New(testConfig(), auth, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return m, clk
}

// nextDay returns the given wall time on the day after start.
func nextDay(hour, min int) time.Time {
	return time.Date(2026, 10, 20, hour, min, 0, 0, time.UTC)
}

// ---- tests ----

func TestNew_RejectsBadPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.RenewAfter = cfg.Validity
	if _, err := New(cfg, &fakeAuth{}, nil, nil); err == nil {
		t.Fatalf("expected error for renew_after >= validity")
	}
	if _, err := New(testConfig(), nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil authenticator")
	}
}

func TestAcquire_FirstLoginIgnoresSlots(t *testing.T) {
	auth := &fakeAuth{}
	m, _ := newTestManager(t, auth)

	if m.State() != NoSession {
		t.Fatalf("initial state=%v", m.State())
	}

	s, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err=%v", err)
	}
	if s.Authorization() != "Bearer tok-1" {
		t.Fatalf("Authorization()=%q", s.Authorization())
	}
	if m.State() != Valid {
		t.Fatalf("state=%v want valid", m.State())
	}
	if !s.ExpiresAt.Equal(start.Add(24*time.Hour)) || !s.RenewAt.Equal(start.Add(20*time.Hour)) {
		t.Fatalf("unexpected window: renew=%v expires=%v", s.RenewAt, s.ExpiresAt)
	}
}

func TestAcquire_ReusesValidSession(t *testing.T) {
	auth := &fakeAuth{}
	m, clk := newTestManager(t, auth)

	first, _ := m.Acquire(context.Background())
	clk.Advance(3 * time.Hour)
	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err=%v", err)
	}
	if second.Token != first.Token || auth.callCount() != 1 {
		t.Fatalf("expected session reuse, calls=%d", auth.callCount())
	}
}

func TestAcquire_NearExpiryRenewsInBackground(t *testing.T) {
	auth := &fakeAuth{}
	m, clk := newTestManager(t, auth)

	first, _ := m.Acquire(context.Background())

	clk.Advance(21 * time.Hour)
	if m.State() != NearExpiry {
		t.Fatalf("state=%v want near_expiry", m.State())
	}

	held, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err=%v", err)
	}
	if held.Token != first.Token {
		t.Fatalf("near-expiry acquire must return the held session")
	}

	m.Wait()
	if auth.callCount() != 2 {
		t.Fatalf("expected background renewal login, calls=%d", auth.callCount())
	}

	renewed, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err=%v", err)
	}
	if renewed.Token != "tok-2" || m.State() != Valid {
		t.Fatalf("expected renewed session, got %q state=%v", renewed.Token, m.State())
	}
}

func TestAcquire_RenewalFailureKeepsSession(t *testing.T) {
	auth := &fakeAuth{}
	m, clk := newTestManager(t, auth)

	first, _ := m.Acquire(context.Background())
	auth.setFail(true)
	clk.Advance(21 * time.Hour)

	held, err := m.Acquire(context.Background())
	if err != nil || held.Token != first.Token {
		t.Fatalf("Acquire=%q,%v", held.Token, err)
	}
	m.Wait()

	if m.Ledger().ConsecutiveFailures != 1 {
		t.Fatalf("renewal failure should be counted, ledger=%+v", m.Ledger())
	}
	if m.State() != NearExpiry {
		t.Fatalf("state=%v want near_expiry", m.State())
	}
}

func TestAcquire_ExpiredOffSlotRequiresWait(t *testing.T) {
	auth := &fakeAuth{}
	m, clk := newTestManager(t, auth)

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire err=%v", err)
	}

	clk.Set(nextDay(11, 18))
	if m.State() != Expired {
		t.Fatalf("state=%v want expired", m.State())
	}

	_, err := m.Acquire(context.Background())
	if !errors.Is(err, ErrScheduledWait) {
		t.Fatalf("err=%v want ErrScheduledWait", err)
	}
	if auth.callCount() != 1 {
		t.Fatalf("no login expected off-slot, calls=%d", auth.callCount())
	}

	clk.Set(nextDay(11, 30))
	s, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire on slot err=%v", err)
	}
	if s.Token != "tok-2" {
		t.Fatalf("expected fresh login on slot, got %q", s.Token)
	}
}

func TestInvalidate_ForcesExpiry(t *testing.T) {
	auth := &fakeAuth{}
	m, clk := newTestManager(t, auth)

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire err=%v", err)
	}
	m.Invalidate()

	if m.State() != Expired {
		t.Fatalf("state=%v want expired", m.State())
	}
	if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrScheduledWait) {
		t.Fatalf("err=%v want ErrScheduledWait", err)
	}

	clk.Set(time.Date(2026, 10, 19, 12, 1, 0, 0, time.UTC))
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire on slot err=%v", err)
	}
	if m.State() != Valid {
		t.Fatalf("state=%v want valid", m.State())
	}
}

func TestAcquire_BackoffBlocksImmediateRetry(t *testing.T) {
	auth := &fakeAuth{fail: true}
	m, clk := newTestManager(t, auth)

	if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("err=%v want ErrAuthFailure", err)
	}
	if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err=%v want ErrRateLimited", err)
	}
	if auth.callCount() != 1 {
		t.Fatalf("backoff should block login, calls=%d", auth.callCount())
	}

	// base 1m * 2^1
	clk.Advance(2 * time.Minute)
	if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("err=%v want ErrAuthFailure", err)
	}
	if auth.callCount() != 2 {
		t.Fatalf("expected second attempt, calls=%d", auth.callCount())
	}
}

func TestAcquire_BackoffCappedAtCooldown(t *testing.T) {
	// MaxFailures high enough that only the backoff gates retries.
	cfg := testConfig()
	cfg.MaxFailures = 10

	auth := &fakeAuth{fail: true}
	clk := clock.Fake(start)
	m, err := New(cfg, auth, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	// failures 1..5 after waits of base*2^(n-1)
	for i, wait := range []time.Duration{0, 2 * time.Minute, 4 * time.Minute, 8 * time.Minute, 16 * time.Minute} {
		clk.Advance(wait)
		if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrAuthFailure) {
			t.Fatalf("attempt %d: err=%v want ErrAuthFailure", i+1, err)
		}
	}
	if f := m.Ledger().ConsecutiveFailures; f != 5 {
		t.Fatalf("failures=%d want 5", f)
	}

	// base*2^5 = 32m, capped at the 30m cooldown; still capped at 6 failures
	for failures := 5; failures <= 6; failures++ {
		calls := auth.callCount()

		clk.Advance(cfg.Cooldown - time.Nanosecond)
		if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrRateLimited) {
			t.Fatalf("failures=%d at cooldown-1ns: err=%v want ErrRateLimited", failures, err)
		}
		if auth.callCount() != calls {
			t.Fatalf("failures=%d: retry not blocked before cap, calls=%d", failures, auth.callCount())
		}

		clk.Advance(time.Nanosecond)
		if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrAuthFailure) {
			t.Fatalf("failures=%d at cooldown: err=%v want ErrAuthFailure", failures, err)
		}
		if auth.callCount() != calls+1 {
			t.Fatalf("failures=%d: retry not allowed at cap, calls=%d", failures, auth.callCount())
		}
	}

	if m.State() == CoolingDown {
		t.Fatalf("cooldown must not trigger below max failures")
	}
}

func TestAcquire_CooldownWithoutSession(t *testing.T) {
	auth := &fakeAuth{fail: true}
	m, clk := newTestManager(t, auth)

	for i, wait := range []time.Duration{0, 2 * time.Minute, 4 * time.Minute} {
		clk.Advance(wait)
		if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrAuthFailure) {
			t.Fatalf("attempt %d: err=%v want ErrAuthFailure", i+1, err)
		}
	}

	if m.State() != CoolingDown {
		t.Fatalf("state=%v want cooling_down", m.State())
	}

	clk.Advance(10 * time.Minute)
	if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err=%v want ErrRateLimited", err)
	}
	if auth.callCount() != 3 {
		t.Fatalf("no login during cooldown, calls=%d", auth.callCount())
	}

	clk.Advance(20 * time.Minute)
	if m.State() != NoSession {
		t.Fatalf("state=%v want no_session after cooldown", m.State())
	}

	auth.setFail(false)
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after cooldown err=%v", err)
	}
	if l := m.Ledger(); l.ConsecutiveFailures != 0 || !l.CooldownUntil.IsZero() {
		t.Fatalf("ledger not reset on success: %+v", l)
	}
}

func TestAcquire_CooldownReturnsStaleSession(t *testing.T) {
	auth := &fakeAuth{}
	m, clk := newTestManager(t, auth)

	held, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err=%v", err)
	}

	m.Invalidate()
	auth.setFail(true)

	for _, at := range []time.Time{
		time.Date(2026, 10, 19, 11, 30, 0, 0, time.UTC),
		time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC),
	} {
		clk.Set(at)
		if _, err := m.Acquire(context.Background()); !errors.Is(err, ErrAuthFailure) {
			t.Fatalf("at %s: err=%v want ErrAuthFailure", at.Format("15:04"), err)
		}
	}

	if m.State() != CoolingDown {
		t.Fatalf("state=%v want cooling_down", m.State())
	}

	clk.Advance(2 * time.Minute)
	stale, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected stale fallback, err=%v", err)
	}
	if stale.Token != held.Token {
		t.Fatalf("stale token=%q want %q", stale.Token, held.Token)
	}
	if auth.callCount() != 4 {
		t.Fatalf("no login during cooldown, calls=%d", auth.callCount())
	}
}

func TestNewSession_JWTExpiryShortensLifetime(t *testing.T) {
	now := start
	exp := now.Add(12 * time.Hour)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s := newSession(Credentials{AuthPrefix: "Bearer ", Token: tok}, now, 24*time.Hour, 20*time.Hour)
	if !s.ExpiresAt.Equal(exp) {
		t.Fatalf("ExpiresAt=%v want %v", s.ExpiresAt, exp)
	}
	if !s.RenewAt.Equal(now.Add(10 * time.Hour)) {
		t.Fatalf("RenewAt=%v want %v", s.RenewAt, now.Add(10*time.Hour))
	}

	opaque := newSession(Credentials{Token: "not-a-jwt"}, now, 24*time.Hour, 20*time.Hour)
	if !opaque.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("opaque token ExpiresAt=%v", opaque.ExpiresAt)
	}
}
