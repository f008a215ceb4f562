package models

import "time"

// Event represents an immutable fact recorded by the hub, e.g. "deploy.finished".
// The ID is assigned by the store and is monotonically increasing.
type Event struct {
	ID        int64                  `json:"id"`
	EventType string                 `json:"event_type"` // dot-namespaced, e.g. "deploy.finished"
	Source    string                 `json:"source"`     // producer identifier, e.g. "ci"
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}
