package snapshotstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scriptlang/scriptlang/engine"
)

// PostgresSnapshotStore keeps one row per (session_id, saved_at) rather than
// overwriting a session's latest snapshot in place, so a caller can still
// reach an earlier boundary if a later save turns out to be a dead end.
type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotStore opens a pool against connString. Callers own the
// returned store's lifetime and must call Close when done.
func NewPostgresSnapshotStore(ctx context.Context, connString string) (*PostgresSnapshotStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: connect: %w", err)
	}
	return &PostgresSnapshotStore{pool: pool}, nil
}

func (s *PostgresSnapshotStore) Close() {
	s.pool.Close()
}

const createSnapshotTableSQL = `
CREATE TABLE IF NOT EXISTS scriptlang_snapshots (
	session_id TEXT NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	envelope   JSONB NOT NULL,
	PRIMARY KEY (session_id, saved_at)
)`

// EnsureSchema creates the snapshot table if it does not already exist.
func (s *PostgresSnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createSnapshotTableSQL); err != nil {
		return fmt.Errorf("snapshotstore: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, sessionID string, snap engine.Snapshot) error {
	envelope, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshotstore: marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scriptlang_snapshots (session_id, envelope) VALUES ($1, $2)`,
		sessionID, envelope)
	if err != nil {
		return fmt.Errorf("snapshotstore: save: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Load(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	var envelope []byte
	err := s.pool.QueryRow(ctx,
		`SELECT envelope FROM scriptlang_snapshots WHERE session_id = $1 ORDER BY saved_at DESC LIMIT 1`,
		sessionID,
	).Scan(&envelope)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshotstore: load: %w", err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(envelope, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshotstore: unmarshal snapshot: %w", err)
	}
	return snap, nil
}
