// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
)

const schema = `
CREATE TABLE IF NOT EXISTS attendance_snapshots (
	key        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Postgres keeps the snapshot as one JSONB row per key.
type Postgres struct {
	db  *sql.DB
	key string
}

// OpenPostgres connects with lib/pq and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn, key string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("store postgres: dsn required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store postgres: open: %w", err)
	}

	p, err := NewPostgres(ctx, db, key)
	if err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing handle.
func NewPostgres(ctx context.Context, db *sql.DB, key string) (*Postgres, error) {
	if key == "" {
		key = "default"
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store postgres: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("store postgres: init schema: %w", err)
	}
	return &Postgres{db: db, key: key}, nil
}

func (p *Postgres) Load(ctx context.Context) (attendance.Snapshot, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM attendance_snapshots WHERE key = $1`, p.key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store postgres: load: %w", err)
	}

	snap := attendance.Snapshot{}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("store postgres: decode: %w", err)
	}
	return snap, nil
}

func (p *Postgres) Save(ctx context.Context, snap attendance.Snapshot) error {
	if snap == nil {
		snap = attendance.Snapshot{}
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store postgres: encode: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO attendance_snapshots (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		p.key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("store postgres: save: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
