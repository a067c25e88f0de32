// Package live pushes the building collection to connected clients over
// WebSocket and accepts whole-collection pushes back.
package live

import (
	"encoding/json"

	"github.com/matthewbaird/partmanager/internal/types"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "push", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "snapshot", "ack", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SnapshotData carries the full collection. EventType names the change
// that caused it and is empty for the snapshot sent on connect.
type SnapshotData struct {
	Version   int              `json:"version"`
	Buildings []types.Building `json:"buildings"`
	EventID   string           `json:"event_id,omitempty"`
	EventType string           `json:"event_type,omitempty"`
}

// AckData confirms an applied push.
type AckData struct {
	Buildings  int `json:"buildings"`
	Apartments int `json:"apartments"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
