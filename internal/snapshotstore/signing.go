package snapshotstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/scriptlang/scriptlang/engine"
)

// SignedEnvelope wraps a Snapshot with an HMAC-SHA256 tag so a snapshot
// handed to an untrusted resume path (a save-game uploaded by a player, a
// snapshot relayed through a queue) can be authenticated before Resume is
// ever attempted. Resume itself (spec §4.6) takes a parsed Snapshot and has
// no notion of signatures; this stays a layer above it.
type SignedEnvelope struct {
	Snapshot engine.Snapshot `json:"snapshot"`
	Tag      string          `json:"tag"`
}

// deriveKey expands a caller-supplied passphrase into a 32-byte MAC key via
// HKDF-SHA256, salted per session so the same passphrase never yields the
// same key across two different sessions.
func deriveKey(passphrase, sessionID string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(passphrase), []byte(sessionID), []byte("scriptlang-snapshot-v3"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("snapshotstore: derive key: %w", err)
	}
	return key, nil
}

// Sign produces a SignedEnvelope for snap, bound to sessionID so a tag
// cannot be replayed against a different session even with the same
// passphrase.
func Sign(snap engine.Snapshot, passphrase, sessionID string) (SignedEnvelope, error) {
	key, err := deriveKey(passphrase, sessionID)
	if err != nil {
		return SignedEnvelope{}, err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return SignedEnvelope{}, fmt.Errorf("snapshotstore: marshal snapshot: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return SignedEnvelope{Snapshot: snap, Tag: hex.EncodeToString(mac.Sum(nil))}, nil
}

// Verify recomputes the HMAC over env.Snapshot and reports whether it
// matches env.Tag, comparing in constant time to avoid a timing
// side-channel on the tag check.
func Verify(env SignedEnvelope, passphrase, sessionID string) (bool, error) {
	key, err := deriveKey(passphrase, sessionID)
	if err != nil {
		return false, err
	}
	payload, err := json.Marshal(env.Snapshot)
	if err != nil {
		return false, fmt.Errorf("snapshotstore: marshal snapshot: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	expected := mac.Sum(nil)
	got, err := hex.DecodeString(env.Tag)
	if err != nil {
		return false, fmt.Errorf("snapshotstore: decode tag: %w", err)
	}
	return hmac.Equal(expected, got), nil
}
