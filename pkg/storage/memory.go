// pkg/storage/memory.go
package storage

import (
	"sort"
	"sync"

	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/profile"
)

// MemoryStore is an in-process Store used by tests and by the listener's
// dry-run mode. It honors the same contracts as the sqlite store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	order    []string
	events   []events.Event
	features map[string]map[string]float64
	featOrd  []string
	profiles map[string]profile.Label
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		features: make(map[string]map[string]float64),
		profiles: make(map[string]profile.Label),
	}
}

func (m *MemoryStore) CreateSessionIfAbsent(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return nil
	}
	m.sessions[s.ID] = s
	m.order = append(m.order, s.ID)
	return nil
}

func (m *MemoryStore) AppendEvent(e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, e)
	return nil
}

func (m *MemoryStore) ReplaceFeatures(sessionID string, features map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.features[sessionID]; !ok {
		m.featOrd = append(m.featOrd, sessionID)
	}
	copied := make(map[string]float64, len(features))
	for k, v := range features {
		copied[k] = v
	}
	m.features[sessionID] = copied
	return nil
}

func (m *MemoryStore) UpsertProfile(sessionID string, label profile.Label) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[sessionID] = label
	return nil
}

func (m *MemoryStore) GetProfile(sessionID string) (profile.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if label, ok := m.profiles[sessionID]; ok {
		return label, nil
	}
	return profile.LabelUnknown, nil
}

func (m *MemoryStore) ListFeatureVectors() ([]FeatureRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]FeatureRow, 0, len(m.featOrd))
	for _, sid := range m.featOrd {
		copied := make(map[string]float64, len(m.features[sid]))
		for k, v := range m.features[sid] {
			copied[k] = v
		}
		out = append(out, FeatureRow{SessionID: sid, Features: copied})
	}
	return out, nil
}

func (m *MemoryStore) ListRecentEvents(limit int) ([]events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]events.Event, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *MemoryStore) ListSessions() ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

func (m *MemoryStore) ListProfiles() ([]ProfileRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProfileRow, 0, len(m.profiles))
	for sid, label := range m.profiles {
		out = append(out, ProfileRow{SessionID: sid, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
