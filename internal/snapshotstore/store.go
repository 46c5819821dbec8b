// Package snapshotstore persists engine.Snapshot envelopes outside the
// engine itself. The engine's Snapshot/Resume operate purely on in-memory
// structs per spec §4.6 ("a parsed snapshot, never bytes"); everything here
// is the external collaborator that turns one into durable bytes and back,
// the same separation datastore.go draws between a script's in-process
// datastore() handle and its optional on-disk persistence.
package snapshotstore

import (
	"context"

	"github.com/scriptlang/scriptlang/engine"
)

// Store persists and retrieves the most recent Snapshot for a session id.
type Store interface {
	Save(ctx context.Context, sessionID string, snap engine.Snapshot) error
	Load(ctx context.Context, sessionID string) (engine.Snapshot, error)
}
