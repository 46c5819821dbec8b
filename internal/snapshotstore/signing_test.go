package snapshotstore

import (
	"testing"

	"github.com/scriptlang/scriptlang/engine"
)

func TestSignAndVerifyRoundTrips(t *testing.T) {
	t.Parallel()
	snap := engine.Snapshot{SchemaVersion: engine.SnapshotSchemaV3, CompilerVersion: "scriptlang-1"}

	env, err := Sign(snap, "correct horse battery staple", "session-1")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	ok, err := Verify(env, "correct horse battery staple", "session-1")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsWrongSession(t *testing.T) {
	t.Parallel()
	snap := engine.Snapshot{SchemaVersion: engine.SnapshotSchemaV3, CompilerVersion: "scriptlang-1"}

	env, err := Sign(snap, "correct horse battery staple", "session-1")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	ok, err := Verify(env, "correct horse battery staple", "session-2")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected signature bound to session-1 to fail verification under session-2")
	}
}

func TestVerifyRejectsTamperedSnapshot(t *testing.T) {
	t.Parallel()
	snap := engine.Snapshot{SchemaVersion: engine.SnapshotSchemaV3, CompilerVersion: "scriptlang-1"}

	env, err := Sign(snap, "correct horse battery staple", "session-1")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	env.Snapshot.CompilerVersion = "tampered"

	ok, err := Verify(env, "correct horse battery staple", "session-1")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected tampered snapshot to fail verification")
	}
}
