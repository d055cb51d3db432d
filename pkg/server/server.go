// pkg/server/server.go
package server

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/mirage/pkg/config"
	"github.com/lucid-vigil/mirage/pkg/deception"
	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/metrics"
	"github.com/lucid-vigil/mirage/pkg/profile"
	"github.com/lucid-vigil/mirage/pkg/session"
	"github.com/lucid-vigil/mirage/pkg/shell"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

// Server accepts attacker connections and runs one independent conversation
// per connection. Sessions share no in-memory state; all cross-session
// coordination goes through the store.
type Server struct {
	live     *config.Live
	store    storage.Store
	recorder *events.Recorder
	sessions *session.Manager
	deceiver *deception.Engine
	logger   zerolog.Logger
}

// Option adjusts server construction.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock stamped onto recorded events.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires the listener over its collaborators.
func New(live *config.Live, store storage.Store, logger zerolog.Logger, opts ...Option) *Server {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}

	recorder := events.NewRecorder(store, logger, events.WithClock(o.now))
	return &Server{
		live:     live,
		store:    store,
		recorder: recorder,
		sessions: session.NewManager(store, recorder, logger),
		deceiver: deception.New(rand.New(rand.NewSource(time.Now().UnixNano()))),
		logger:   logger.With().Str("component", "server").Logger(),
	}
}

// ListenAndServe runs the accept loop until the context is cancelled or the
// listener fails. Connections beyond the configured limit are dropped at
// accept time.
func (s *Server) ListenAndServe(ctx context.Context) error {
	cfg := s.live.Snapshot()
	addr := fmt.Sprintf("%s:%d", cfg.Listen.Host, cfg.Listen.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()

	// Unblock Accept on shutdown.
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.logger.Info().Str("addr", addr).Msg("Honeypot listening")

	sem := make(chan struct{}, cfg.Listen.MaxConn)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Msg("Listener stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		select {
		case sem <- struct{}{}:
			go func() {
				defer func() { <-sem }()
				s.handleConn(ctx, conn)
			}()
		default:
			metrics.ConnectionsRejected.Inc()
			s.logger.Warn().Str("remote", conn.RemoteAddr().String()).Msg("Connection limit reached, dropping")
			conn.Close()
		}
	}
}

// handleConn owns one connection end to end: session creation, the fake
// conversation, and the synchronous end-of-session profiling. Nothing here
// may propagate a fault into the accept loop or another session.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Session handler panicked")
		}
	}()

	// Close the conn on shutdown so blocked reads and deception delays end.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	metrics.ConnectionsTotal.Inc()
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	ip, port := splitAddr(conn.RemoteAddr())
	sess, connEv := s.sessions.Begin(ip, port)

	// The stored label keys adaptation for this conversation. Keyed by the
	// freshly generated session id, a first-time connection always reads
	// back "unknown": a prior process must have written a profile under
	// this exact id for adaptation to trigger. A future revision should key
	// profiles by source address or a cross-session fingerprint instead.
	label, err := s.store.GetProfile(sess.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Profile lookup failed, treating as unknown")
		label = profile.LabelUnknown
	}

	cfg := s.live.Snapshot()
	readTimeout, err := time.ParseDuration(cfg.Listen.ReadTimeout)
	if err != nil {
		readTimeout = 0
	}

	conv := shell.NewConversation(conn, sess, s.recorder, s.deceiver, label, shell.Options{
		Banner:           cfg.Listen.Banner,
		ReadTimeout:      readTimeout,
		DeceptionEnabled: cfg.Deception.Enabled,
	}, s.logger)

	// The connection event leads the trace so session_duration spans from
	// accept, not from the first authentication attempt. A client that idles
	// before typing must not read as a burst of fast commands.
	trace := append([]events.Event{connEv}, conv.Run(ctx)...)

	s.finalize(sess, trace)
}

// finalize runs feature extraction and classification synchronously before
// the connection goroutine exits, updating the label used the next time this
// session id shows up. Works with whatever events were recorded, including
// traces cut short by disconnects.
func (s *Server) finalize(sess storage.Session, trace []events.Event) {
	feats := profile.Extract(trace)

	if err := s.store.ReplaceFeatures(sess.ID, feats.Map()); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to persist features")
	}

	label := profile.Classify(feats)
	if err := s.store.UpsertProfile(sess.ID, label); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to persist profile")
	}
	metrics.ProfilesAssigned.WithLabelValues(string(label)).Inc()

	s.sessions.End(sess, label)
}

func splitAddr(addr net.Addr) (string, int) {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	return host, 0
}
