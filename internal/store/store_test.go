// internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
)

// ---- fake store ----

type fakeStore struct {
	snap    attendance.Snapshot
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load(ctx context.Context) (attendance.Snapshot, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.snap.Clone(), nil
}

func (f *fakeStore) Save(ctx context.Context, s attendance.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.snap = s.Clone()
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---- File ----

func TestFile_MissingIsEmpty(t *testing.T) {
	f := File{Path: filepath.Join(t.TempDir(), "attendance_state.json")}

	snap, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if snap == nil || len(snap) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap)
	}
}

func TestFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "attendance_state.json")
	f := File{Path: path}

	want := attendance.Snapshot{"CS101": {Present: 19, Total: 21}}
	if err := f.Save(context.Background(), want); err != nil {
		t.Fatalf("Save err=%v", err)
	}

	got, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if len(got) != 1 || got["CS101"] != want["CS101"] {
		t.Fatalf("Load()=%v want %v", got, want)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestFile_ReadsOriginalStateFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance_state.json")
	if err := os.WriteFile(path, []byte(`{"CS101":{"present":18,"total":20}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := File{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if got["CS101"] != (attendance.CourseCounter{Present: 18, Total: 20}) {
		t.Fatalf("Load()=%v", got)
	}
}

func TestFile_CorruptIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance_state.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (File{Path: path}).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

// ---- Tiered ----

func TestTiered_LoadPrefersPrimary(t *testing.T) {
	primary := &fakeStore{snap: attendance.Snapshot{"A": {Present: 1, Total: 1}}}
	fallback := &fakeStore{snap: attendance.Snapshot{"B": {Present: 2, Total: 2}}}
	ts := &Tiered{Primary: primary, Fallback: fallback, Logger: quietLogger()}

	got, err := ts.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if _, ok := got["A"]; !ok {
		t.Fatalf("expected primary snapshot, got %v", got)
	}
}

func TestTiered_LoadFallsBack(t *testing.T) {
	primary := &fakeStore{loadErr: errors.New("connection refused")}
	fallback := &fakeStore{snap: attendance.Snapshot{"B": {Present: 2, Total: 2}}}
	ts := &Tiered{Primary: primary, Fallback: fallback, Logger: quietLogger()}

	got, err := ts.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if _, ok := got["B"]; !ok {
		t.Fatalf("expected fallback snapshot, got %v", got)
	}

	fallback.loadErr = errors.New("disk gone")
	if _, err := ts.Load(context.Background()); err == nil {
		t.Fatalf("expected error when both tiers fail")
	}
}

func TestTiered_SaveMirrorsAndTolerates(t *testing.T) {
	primary := &fakeStore{}
	fallback := &fakeStore{}
	ts := &Tiered{Primary: primary, Fallback: fallback, Logger: quietLogger()}
	snap := attendance.Snapshot{"A": {Present: 1, Total: 2}}

	if err := ts.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save err=%v", err)
	}
	if primary.saves != 1 || fallback.saves != 1 {
		t.Fatalf("expected both tiers written, got %d/%d", primary.saves, fallback.saves)
	}

	primary.saveErr = errors.New("timeout")
	if err := ts.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save with fallback err=%v", err)
	}

	primary.saveErr = nil
	fallback.saveErr = errors.New("read-only fs")
	if err := ts.Save(context.Background(), snap); err != nil {
		t.Fatalf("mirror failure must not fail Save, err=%v", err)
	}

	primary.saveErr = errors.New("timeout")
	if err := ts.Save(context.Background(), snap); err == nil {
		t.Fatalf("expected error when both tiers fail")
	}
}

func TestTiered_FallbackOnly(t *testing.T) {
	fallback := &fakeStore{saveErr: errors.New("read-only fs")}
	ts := &Tiered{Fallback: fallback, Logger: quietLogger()}

	if err := ts.Save(context.Background(), attendance.Snapshot{}); err == nil {
		t.Fatalf("expected fallback error to surface when it is the only tier")
	}
}
