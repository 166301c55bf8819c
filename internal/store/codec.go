package store

import (
	"encoding/json"
	"fmt"

	"github.com/ashureev/debate-labs/internal/domain"
)

// EncodeSnapshot serializes a snapshot as a JSON object keyed by session ID.
func EncodeSnapshot(snap domain.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = domain.Snapshot{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot produced by EncodeSnapshot.
// Sessions with a nil history are normalized to an empty history.
func DecodeSnapshot(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap == nil {
		return domain.Snapshot{}, nil
	}
	for id, sess := range snap {
		for i, msg := range sess.History {
			if !msg.Role.Valid() {
				return nil, fmt.Errorf("session %s: message %d: unknown role %q", id, i, msg.Role)
			}
		}
		if sess.History == nil {
			sess.History = []domain.Message{}
			snap[id] = sess
		}
	}
	return snap, nil
}
