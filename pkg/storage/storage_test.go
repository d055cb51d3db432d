package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/profile"
)

// openStores returns one store of each implementation so the contract tests
// run against both.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestCreateSessionIfAbsent_Idempotent(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			sess := Session{ID: "dup", IP: "10.0.0.1", Port: 1234, StartTime: time.Now().UTC()}

			require.NoError(t, store.CreateSessionIfAbsent(sess))
			require.NoError(t, store.CreateSessionIfAbsent(sess))

			sessions, err := store.ListSessions()
			require.NoError(t, err)
			assert.Len(t, sessions, 1, "duplicate ids persist exactly one record")
			assert.Equal(t, "dup", sessions[0].ID)
			assert.Equal(t, "10.0.0.1", sessions[0].IP)
			assert.Equal(t, 1234, sessions[0].Port)
		})
	}
}

func TestAppendEvent_RecentNewestFirst(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			for i, kind := range []events.Kind{events.KindConnection, events.KindAuthAttempt, events.KindCommand} {
				require.NoError(t, store.AppendEvent(events.Event{
					SessionID: "s1",
					Kind:      kind,
					Payload:   map[string]string{"n": string(rune('a' + i))},
					Timestamp: base.Add(time.Duration(i) * time.Second),
				}))
			}

			recent, err := store.ListRecentEvents(2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, events.KindCommand, recent[0].Kind)
			assert.Equal(t, events.KindAuthAttempt, recent[1].Kind)
		})
	}
}

func TestReplaceFeatures_OverwritesPriorDerivation(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.ReplaceFeatures("s1", map[string]float64{
				profile.FeatureCommandCount: 3,
				profile.FeatureAuthAttempts: 1,
			}))
			require.NoError(t, store.ReplaceFeatures("s1", map[string]float64{
				profile.FeatureCommandCount: 5,
			}))

			rows, err := store.ListFeatureVectors()
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "s1", rows[0].SessionID)
			assert.Equal(t, map[string]float64{profile.FeatureCommandCount: 5}, rows[0].Features,
				"replacement drops stale feature names")
		})
	}
}

func TestProfile_DefaultUnknownAndLastWriteWins(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			label, err := store.GetProfile("never-seen")
			require.NoError(t, err)
			assert.Equal(t, profile.LabelUnknown, label, "unclassified sessions read back unknown")

			require.NoError(t, store.UpsertProfile("s1", profile.LabelAutomatedScanner))
			require.NoError(t, store.UpsertProfile("s1", profile.LabelHumanInteractive))

			label, err = store.GetProfile("s1")
			require.NoError(t, err)
			assert.Equal(t, profile.LabelHumanInteractive, label)

			profiles, err := store.ListProfiles()
			require.NoError(t, err)
			require.Len(t, profiles, 1)
			assert.Equal(t, profile.LabelHumanInteractive, profiles[0].Label)
		})
	}
}

func TestListFeatureVectors_OneRowPerSession(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.ReplaceFeatures("s1", map[string]float64{profile.FeatureCommandCount: 1}))
			require.NoError(t, store.ReplaceFeatures("s2", map[string]float64{profile.FeatureCommandCount: 2}))

			rows, err := store.ListFeatureVectors()
			require.NoError(t, err)
			assert.Len(t, rows, 2)
		})
	}
}
