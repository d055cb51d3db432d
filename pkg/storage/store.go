// pkg/storage/store.go
package storage

import (
	"time"

	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/profile"
)

// Session is the persisted record of one accepted connection.
type Session struct {
	ID        string    `json:"session_id"`
	IP        string    `json:"ip"`
	Port      int       `json:"port"`
	StartTime time.Time `json:"start_time"`
}

// FeatureRow pairs a session id with its persisted feature map.
type FeatureRow struct {
	SessionID string             `json:"session_id"`
	Features  map[string]float64 `json:"features"`
}

// ProfileRow pairs a session id with its classified label.
type ProfileRow struct {
	SessionID string        `json:"session_id"`
	Label     profile.Label `json:"profile"`
}

// Store is the durable collaborator the core depends on. Implementations must
// be safe under concurrent callers; the core treats every call as an
// independent best-effort operation and never retries.
type Store interface {
	// CreateSessionIfAbsent persists a session record. Duplicate ids are
	// ignored, never an error.
	CreateSessionIfAbsent(s Session) error

	// AppendEvent appends one event to the session's trace.
	AppendEvent(e events.Event) error

	// ReplaceFeatures overwrites any prior feature derivation for the session.
	ReplaceFeatures(sessionID string, features map[string]float64) error

	// UpsertProfile writes the session's label, last write wins.
	UpsertProfile(sessionID string, label profile.Label) error

	// GetProfile returns the stored label, or LabelUnknown when the session
	// has never been classified.
	GetProfile(sessionID string) (profile.Label, error)

	// ListFeatureVectors returns every session's feature map, one row per
	// session with at least one persisted feature.
	ListFeatureVectors() ([]FeatureRow, error)

	// ListRecentEvents returns up to limit events, newest first.
	ListRecentEvents(limit int) ([]events.Event, error)

	// ListSessions returns all sessions, newest first.
	ListSessions() ([]Session, error)

	// ListProfiles returns all classified sessions.
	ListProfiles() ([]ProfileRow, error)

	Close() error
}
