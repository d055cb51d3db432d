// pkg/events/events.go
package events

import "time"

// Kind identifies the type of a recorded session event.
type Kind string

const (
	KindConnection  Kind = "connection"
	KindAuthAttempt Kind = "auth_attempt"
	KindCommand     Kind = "command"
	KindDisconnect  Kind = "disconnect"
)

// Event is one timestamped fact recorded during a session. Events are
// append-only; within a session the handler is single-threaded, so timestamp
// order is arrival order.
type Event struct {
	SessionID string            `json:"session_id"`
	Kind      Kind              `json:"type"`
	Payload   map[string]string `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
}
