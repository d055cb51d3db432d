// pkg/events/recorder.go
package events

import (
	"time"

	"github.com/rs/zerolog"
)

// Sink is the slice of the storage contract the recorder needs.
type Sink interface {
	AppendEvent(e Event) error
}

// Recorder forwards each event to durable storage and to the operator stream
// (the structured log). Storage failures are logged and swallowed: one bad
// write must never abort a live conversation.
type Recorder struct {
	sink   Sink
	logger zerolog.Logger
	now    func() time.Time
}

// Option adjusts recorder construction.
type Option func(*Recorder)

// WithClock replaces the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder writing to the given sink.
func NewRecorder(sink Sink, logger zerolog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		sink:   sink,
		logger: logger.With().Str("component", "recorder").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stamps, persists and logs one event, returning the stamped event so
// callers can keep a local trace for end-of-session analysis.
func (r *Recorder) Record(sessionID string, kind Kind, payload map[string]string) Event {
	e := Event{
		SessionID: sessionID,
		Kind:      kind,
		Payload:   payload,
		Timestamp: r.now(),
	}

	if err := r.sink.AppendEvent(e); err != nil {
		r.logger.Error().Err(err).
			Str("session_id", sessionID).
			Str("event_type", string(kind)).
			Msg("Failed to persist event, continuing with degraded durability")
	}

	ev := r.logger.Info().
		Str("session_id", sessionID).
		Str("event_type", string(kind))
	for k, v := range payload {
		ev = ev.Str(k, v)
	}
	ev.Msg("Session event")

	return e
}
