// internal/store/file.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
)

// File keeps the snapshot as a JSON document on local disk.
type File struct {
	Path string
}

func (f File) Load(ctx context.Context) (attendance.Snapshot, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return attendance.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store file: read %s: %w", f.Path, err)
	}

	snap := attendance.Snapshot{}
	if len(raw) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("store file: decode %s: %w", f.Path, err)
	}
	return snap, nil
}

// Save writes through a temp file and rename so a crash never leaves
// a truncated document behind.
func (f File) Save(ctx context.Context, snap attendance.Snapshot) error {
	if snap == nil {
		snap = attendance.Snapshot{}
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store file: encode: %w", err)
	}
	raw = append(raw, '\n')

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".attendance-*.tmp")
	if err != nil {
		return fmt.Errorf("store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("store file: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store file: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("store file: rename: %w", err)
	}
	return nil
}
