package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/lucid-vigil/mirage/pkg/storage"
)

// recentEventLimit caps the /api/events response, newest first.
const recentEventLimit = 50

// Server is the read-only reporting surface: recent events, session list and
// profile list for human inspection, plus health, metrics and host status.
// It consumes only the store's read methods.
type Server struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewServer creates the reporting surface over the given store.
func NewServer(store storage.Store, logger zerolog.Logger) *Server {
	return &Server{
		store:  store,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/events", s.eventsHandler)
	mux.HandleFunc("/api/sessions", s.sessionsHandler)
	mux.HandleFunc("/api/profiles", s.profilesHandler)
	mux.HandleFunc("/api/status", s.statusHandler)
	return mux
}

// ListenAndServe starts the reporting surface on the given port. It runs
// until the process exits.
func (s *Server) ListenAndServe(port string) error {
	s.logger.Info().Str("port", port).Msg("API server starting")
	return http.ListenAndServe(":"+port, s.Handler())
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListRecentEvents(recentEventLimit)
	if err != nil {
		s.fail(w, err, "list events")
		return
	}
	s.writeJSON(w, events)
}

func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		s.fail(w, err, "list sessions")
		return
	}
	s.writeJSON(w, sessions)
}

func (s *Server) profilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles()
	if err != nil {
		s.fail(w, err, "list profiles")
		return
	}
	s.writeJSON(w, profiles)
}

// hostStatus is the operator-facing health snapshot of the machine running
// the honeypot (the real one, not the fabricated identity shown to peers).
type hostStatus struct {
	Hostname      string  `json:"hostname"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	Load15        float64 `json:"load15"`
	MemUsedPct    float64 `json:"mem_used_pct"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var status hostStatus

	if info, err := host.Info(); err == nil {
		status.Hostname = info.Hostname
		status.UptimeSeconds = info.Uptime
	}
	if avg, err := load.Avg(); err == nil {
		status.Load1 = avg.Load1
		status.Load5 = avg.Load5
		status.Load15 = avg.Load15
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemUsedPct = vm.UsedPercent
	}

	s.writeJSON(w, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error, op string) {
	s.logger.Error().Err(err).Str("op", op).Msg("Storage read failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
