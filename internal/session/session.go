// internal/session/session.go
package session

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrAuthFailure wraps any rejected or failed login.
	ErrAuthFailure = errors.New("session: login failed")

	// ErrRateLimited means a login is not allowed yet (cooldown or backoff)
	// and no stale session is held to fall back on.
	ErrRateLimited = errors.New("session: login rate limited")

	// ErrScheduledWait means the session expired outside a login slot.
	// Callers skip the cycle; it is not a failure.
	ErrScheduledWait = errors.New("session: waiting for next login slot")
)

// Credentials is what a successful upstream login yields.
type Credentials struct {
	AuthPrefix string
	Token      string
}

// Authenticator performs one upstream login attempt.
type Authenticator interface {
	Login(ctx context.Context) (Credentials, error)
}

// Session is proof of authentication with a validity window.
type Session struct {
	AuthPrefix string    `json:"-"`
	Token      string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	RenewAt    time.Time `json:"renew_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Authorization is the header value for upstream calls.
func (s Session) Authorization() string {
	return s.AuthPrefix + s.Token
}

// State is the lifecycle state of the held session.
type State int

const (
	NoSession State = iota
	Valid
	NearExpiry
	Expired
	CoolingDown
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no_session"
	case Valid:
		return "valid"
	case NearExpiry:
		return "near_expiry"
	case Expired:
		return "expired"
	case CoolingDown:
		return "cooling_down"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Ledger tracks login attempts for backoff and cooldown.
// Zero times mean "none".
type Ledger struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastAttemptAt       time.Time `json:"last_attempt_at"`
	CooldownUntil       time.Time `json:"cooldown_until"`
}

// newSession stamps credentials with their validity window.
// A JWT exp claim earlier than the configured window wins; RenewAt keeps
// the configured renew/validity proportion of whatever lifetime results.
func newSession(c Credentials, now time.Time, validity, renewAfter time.Duration) Session {
	expires := now.Add(validity)
	if exp, ok := tokenExpiry(c.Token); ok && exp.After(now) && exp.Before(expires) {
		expires = exp
	}

	renewAt := now.Add(renewAfter)
	if lifetime := expires.Sub(now); lifetime != validity {
		frac := float64(renewAfter) / float64(validity)
		renewAt = now.Add(time.Duration(math.Round(float64(lifetime) * frac)))
	}

	return Session{
		AuthPrefix: c.AuthPrefix,
		Token:      c.Token,
		CreatedAt:  now,
		RenewAt:    renewAt,
		ExpiresAt:  expires,
	}
}

// tokenExpiry reads the exp claim without verifying the signature;
// the portal is the only party that can verify it anyway.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
