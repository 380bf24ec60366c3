package livesync

import (
	"encoding/json"
	"time"

	"github.com/roach88/modpack/internal/model"
)

// Message types on the wire. One JSON object per text frame.
const (
	TypeAuth      = "AUTH"
	TypeSyncState = "SYNC_STATE"
)

// AuthMessage is sent once, right after the socket opens. No reply is
// expected.
type AuthMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SyncStateMessage carries a full snapshot.
type SyncStateMessage struct {
	Type      string         `json:"type"`
	Data      model.Snapshot `json:"data"`
	Sender    string         `json:"sender"`
	Timestamp string         `json:"timestamp"`
}

// Envelope is the loosely decoded form of an inbound frame.
type Envelope struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Sender   string          `json:"sender,omitempty"`
	Username string          `json:"username,omitempty"`
}

// HasData reports whether the frame carries a non-null data field.
func (e Envelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// NewSyncState builds an outbound SYNC_STATE frame.
func NewSyncState(snap model.Snapshot, sender string, now time.Time) SyncStateMessage {
	return SyncStateMessage{
		Type:      TypeSyncState,
		Data:      snap.Normalize(),
		Sender:    sender,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
