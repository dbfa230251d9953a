// internal/store/store.go
package store

import (
	"context"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
)

// Store persists the last observed attendance snapshot.
// Load returns an empty snapshot, not an error, when nothing was saved yet.
type Store interface {
	Load(ctx context.Context) (attendance.Snapshot, error)
	Save(ctx context.Context, snap attendance.Snapshot) error
}
