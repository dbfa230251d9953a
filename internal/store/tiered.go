// internal/store/tiered.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
)

// Tiered is a remote primary with a local fallback.
//
// Load: primary wins; fallback is consulted only when primary errors.
// Save: primary first, then the fallback is always written as a mirror
// (the git backup reads it). Save fails only if both tiers fail.
type Tiered struct {
	Primary  Store
	Fallback Store
	Logger   *slog.Logger
}

func (t *Tiered) Load(ctx context.Context) (attendance.Snapshot, error) {
	if t.Primary == nil {
		return t.Fallback.Load(ctx)
	}

	snap, err := t.Primary.Load(ctx)
	if err == nil {
		return snap, nil
	}
	if t.Fallback == nil {
		return nil, err
	}

	t.logger().Warn("primary store load failed, using fallback", "error", err)
	snap, ferr := t.Fallback.Load(ctx)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return snap, nil
}

func (t *Tiered) Save(ctx context.Context, snap attendance.Snapshot) error {
	var perr, ferr error

	if t.Primary != nil {
		perr = t.Primary.Save(ctx, snap)
		if perr != nil {
			t.logger().Warn("primary store save failed", "error", perr)
		}
	}
	if t.Fallback != nil {
		ferr = t.Fallback.Save(ctx, snap)
		if ferr != nil && t.Primary != nil && perr == nil {
			t.logger().Warn("fallback store mirror failed", "error", ferr)
			ferr = nil
		}
	}

	switch {
	case t.Primary == nil && t.Fallback == nil:
		return errors.New("store: no tiers configured")
	case t.Primary == nil:
		return ferr
	case t.Fallback == nil:
		return perr
	case perr != nil && ferr != nil:
		return fmt.Errorf("store: both tiers failed: %w", errors.Join(perr, ferr))
	default:
		return nil
	}
}

func (t *Tiered) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
