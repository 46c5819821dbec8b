package snapshotstore

import "github.com/google/uuid"

// NewSessionID mints a new session id for a fresh snapshot row, the same
// way a connection manager mints a per-connection id for routing and
// logging.
func NewSessionID() string {
	return uuid.New().String()
}
