package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/profile"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

func seededServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateSessionIfAbsent(storage.Session{
		ID: "s1", IP: "203.0.113.5", Port: 50000, StartTime: time.Now().UTC(),
	}))
	require.NoError(t, store.AppendEvent(events.Event{
		SessionID: "s1",
		Kind:      events.KindCommand,
		Payload:   map[string]string{"command": "ls"},
		Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, store.UpsertProfile("s1", profile.LabelAutomatedScanner))

	return NewServer(store, zerolog.Nop()), store
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := seededServer(t)

	rec := get(t, srv.Handler(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestEventsEndpoint(t *testing.T) {
	srv, _ := seededServer(t)

	rec := get(t, srv.Handler(), "/api/events")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []events.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, events.KindCommand, got[0].Kind)
	assert.Equal(t, "ls", got[0].Payload["command"])
}

func TestSessionsEndpoint(t *testing.T) {
	srv, _ := seededServer(t)

	rec := get(t, srv.Handler(), "/api/sessions")

	require.Equal(t, http.StatusOK, rec.Code)

	var got []storage.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "203.0.113.5", got[0].IP)
}

func TestProfilesEndpoint(t *testing.T) {
	srv, _ := seededServer(t)

	rec := get(t, srv.Handler(), "/api/profiles")

	require.Equal(t, http.StatusOK, rec.Code)

	var got []storage.ProfileRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, profile.LabelAutomatedScanner, got[0].Label)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := seededServer(t)

	rec := get(t, srv.Handler(), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := seededServer(t)

	rec := get(t, srv.Handler(), "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got, "hostname")
	assert.Contains(t, got, "load1")
	assert.Contains(t, got, "mem_used_pct")
}
