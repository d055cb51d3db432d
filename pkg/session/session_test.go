package session

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/profile"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

func newManager(store storage.Store) *Manager {
	return NewManager(store, events.NewRecorder(store, zerolog.Nop()), zerolog.Nop())
}

func TestBegin_PersistsSessionAndRecordsConnection(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newManager(store)

	sess, ev := m.Begin("203.0.113.7", 51234)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "203.0.113.7", sess.IP)
	assert.Equal(t, 51234, sess.Port)
	assert.False(t, sess.StartTime.IsZero())

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)

	assert.Equal(t, events.KindConnection, ev.Kind)
	assert.Equal(t, "203.0.113.7", ev.Payload["ip"])
	assert.Equal(t, "51234", ev.Payload["port"])
	assert.NotEmpty(t, ev.Payload["start_time"])
}

func TestBegin_FreshIDPerConnection(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newManager(store)

	first, _ := m.Begin("203.0.113.7", 1)
	second, _ := m.Begin("203.0.113.7", 2)

	assert.NotEqual(t, first.ID, second.ID)

	// A brand-new id has never been classified, so the live adaptation key
	// reads back unknown on a first visit.
	label, err := store.GetProfile(second.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.LabelUnknown, label)
}

func TestEnd_RecordsDisconnectWithLabel(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newManager(store)

	sess, _ := m.Begin("203.0.113.7", 1)
	ev := m.End(sess, profile.LabelBruteforceBot)

	assert.Equal(t, events.KindDisconnect, ev.Kind)
	assert.Equal(t, "bruteforce_bot", ev.Payload["profile"])

	recent, err := store.ListRecentEvents(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, events.KindDisconnect, recent[0].Kind)
}

type failingStore struct {
	*storage.MemoryStore
}

func (f *failingStore) CreateSessionIfAbsent(s storage.Session) error {
	return errors.New("write failed")
}

func TestBegin_SwallowsPersistenceFailure(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	m := newManager(store)

	assert.NotPanics(t, func() {
		sess, _ := m.Begin("203.0.113.7", 1)
		assert.NotEmpty(t, sess.ID, "session identity survives a failed write")
	})
}

func TestBegin_TimestampsAreUTC(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newManager(store)

	sess, _ := m.Begin("203.0.113.7", 1)

	assert.Equal(t, time.UTC, sess.StartTime.Location())
}
