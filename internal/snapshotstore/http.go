package snapshotstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"golang.org/x/net/http2"

	"github.com/scriptlang/scriptlang/engine"
)

// HTTPSnapshotStore PUTs/GETs a serialized snapshot envelope against a
// remote store, one resource per session id. The transport is configured
// for cleartext HTTP/2 (h2c): a snapshot store commonly sits behind a
// sidecar or load balancer that terminates TLS, leaving the store's own
// listener plaintext but still wanting the multiplexing h2 gives a client
// issuing many small save/load calls.
type HTTPSnapshotStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSnapshotStore(baseURL string) *HTTPSnapshotStore {
	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
	return &HTTPSnapshotStore{baseURL: baseURL, client: &http.Client{Transport: transport}}
}

func (s *HTTPSnapshotStore) Save(ctx context.Context, sessionID string, snap engine.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshotstore: marshal snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/snapshots/"+sessionID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("snapshotstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("snapshotstore: put: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("snapshotstore: put returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSnapshotStore) Load(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/snapshots/"+sessionID, nil)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshotstore: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshotstore: get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return engine.Snapshot{}, fmt.Errorf("snapshotstore: get returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshotstore: read response: %w", err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshotstore: unmarshal snapshot: %w", err)
	}
	return snap, nil
}
