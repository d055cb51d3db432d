// pkg/profile/features.go
package profile

import (
	"time"

	"github.com/lucid-vigil/mirage/pkg/events"
)

// Feature names, in the fixed column order used by storage and clustering.
const (
	FeatureAuthAttempts     = "auth_attempts"
	FeatureCommandCount     = "command_count"
	FeatureUniqueCommands   = "unique_commands"
	FeatureAvgCommandLength = "avg_command_length"
	FeatureSessionDuration  = "session_duration"
	FeatureCommandRate      = "command_rate"
)

// FeatureNames is the canonical column ordering for feature vectors.
var FeatureNames = []string{
	FeatureAuthAttempts,
	FeatureCommandCount,
	FeatureUniqueCommands,
	FeatureAvgCommandLength,
	FeatureSessionDuration,
	FeatureCommandRate,
}

// Features is the fixed-dimension numeric summary of one session's events.
type Features struct {
	AuthAttempts     float64
	CommandCount     float64
	UniqueCommands   float64
	AvgCommandLength float64
	SessionDuration  float64
	CommandRate      float64
}

// Map returns the features keyed by their canonical names, the shape the
// storage layer persists.
func (f Features) Map() map[string]float64 {
	return map[string]float64{
		FeatureAuthAttempts:     f.AuthAttempts,
		FeatureCommandCount:     f.CommandCount,
		FeatureUniqueCommands:   f.UniqueCommands,
		FeatureAvgCommandLength: f.AvgCommandLength,
		FeatureSessionDuration:  f.SessionDuration,
		FeatureCommandRate:      f.CommandRate,
	}
}

// Vector returns the features as a row in canonical column order.
func (f Features) Vector() []float64 {
	return []float64{
		f.AuthAttempts,
		f.CommandCount,
		f.UniqueCommands,
		f.AvgCommandLength,
		f.SessionDuration,
		f.CommandRate,
	}
}

// VectorFromMap builds a row in canonical column order from a stored feature
// map; missing names contribute zero.
func VectorFromMap(m map[string]float64) []float64 {
	row := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		row[i] = m[name]
	}
	return row
}

// exitTokens end the shell loop. They appear in the event trace but are not
// counted as extracted commands, so a connect-ls-exit session has a command
// count of one.
var exitTokens = map[string]bool{
	"exit":   true,
	"logout": true,
}

// Extract reduces a session's complete ordered event trace to a feature
// vector. It is a pure function of the trace.
func Extract(trace []events.Event) Features {
	var (
		authAttempts int
		commands     []string
		timestamps   []time.Time
	)

	for _, e := range trace {
		timestamps = append(timestamps, e.Timestamp)

		switch e.Kind {
		case events.KindAuthAttempt:
			authAttempts++
		case events.KindCommand:
			cmd := e.Payload["command"]
			if cmd == "" || exitTokens[cmd] {
				continue
			}
			commands = append(commands, cmd)
		}
	}

	unique := make(map[string]bool, len(commands))
	totalLen := 0
	for _, c := range commands {
		unique[c] = true
		totalLen += len(c)
	}

	avgLen := 0.0
	if len(commands) > 0 {
		avgLen = float64(totalLen) / float64(len(commands))
	}

	// Duration is floored at one second for degenerate single-event traces
	// so the rate division below is always defined.
	duration := 1.0
	if len(timestamps) > 1 {
		minTS, maxTS := timestamps[0], timestamps[0]
		for _, ts := range timestamps[1:] {
			if ts.Before(minTS) {
				minTS = ts
			}
			if ts.After(maxTS) {
				maxTS = ts
			}
		}
		duration = maxTS.Sub(minTS).Seconds()
	}

	rate := 0.0
	if duration > 0 {
		rate = float64(len(commands)) / duration
	}

	return Features{
		AuthAttempts:     float64(authAttempts),
		CommandCount:     float64(len(commands)),
		UniqueCommands:   float64(len(unique)),
		AvgCommandLength: avgLen,
		SessionDuration:  duration,
		CommandRate:      rate,
	}
}
