// pkg/session/session.go
package session

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/profile"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

// Manager owns session identity: it mints ids, persists the session record
// and brackets the conversation with connection/disconnect events.
type Manager struct {
	store    storage.Store
	recorder *events.Recorder
	logger   zerolog.Logger
	newID    func() string
	now      func() time.Time
}

// NewManager creates a lifecycle manager over the given store and recorder.
func NewManager(store storage.Store, recorder *events.Recorder, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		recorder: recorder,
		logger:   logger.With().Str("component", "session").Logger(),
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Begin creates and persists a fresh session for an accepted connection and
// records its connection event. Persistence is best-effort: a failed write is
// logged and the live conversation proceeds regardless.
func (m *Manager) Begin(ip string, port int) (storage.Session, events.Event) {
	sess := storage.Session{
		ID:        m.newID(),
		IP:        ip,
		Port:      port,
		StartTime: m.now(),
	}

	if err := m.store.CreateSessionIfAbsent(sess); err != nil {
		m.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to persist session record")
	}

	ev := m.recorder.Record(sess.ID, events.KindConnection, map[string]string{
		"ip":         sess.IP,
		"port":       strconv.Itoa(sess.Port),
		"start_time": sess.StartTime.Format(time.RFC3339Nano),
	})

	m.logger.Info().
		Str("session_id", sess.ID).
		Str("ip", sess.IP).
		Int("port", sess.Port).
		Msg("Session started")

	return sess, ev
}

// End records the disconnect event carrying the session's final label.
func (m *Manager) End(sess storage.Session, label profile.Label) events.Event {
	ev := m.recorder.Record(sess.ID, events.KindDisconnect, map[string]string{
		"profile": string(label),
	})

	m.logger.Info().
		Str("session_id", sess.ID).
		Str("profile", string(label)).
		Msg("Session ended")

	return ev
}
