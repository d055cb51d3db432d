// pkg/cluster/job.go
package cluster

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/mirage/pkg/storage"
)

// Job is the periodic clustering pass over the full feature store. It only
// needs a consistent read of the feature table at invocation time and shares
// nothing with live session handlers.
type Job struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewJob wraps the store for scheduled execution.
func NewJob(store storage.Store, logger zerolog.Logger) *Job {
	return &Job{
		store:  store,
		logger: logger.With().Str("component", "clustering").Logger(),
	}
}

func (j *Job) Name() string { return "session_clustering" }

// Run clusters all stored feature vectors and logs a triage summary. Failures
// are logged and dropped; the next run starts fresh.
func (j *Job) Run(ctx context.Context) {
	rows, err := j.store.ListFeatureVectors()
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to load feature vectors")
		return
	}

	assignments := GroupSessions(rows)
	if len(assignments) == 0 {
		j.logger.Info().Int("sessions", len(rows)).Msg("Not enough sessions to cluster")
		return
	}

	sizes := make(map[int]int)
	for _, id := range assignments {
		sizes[id]++
	}

	j.logger.Info().
		Int("sessions", len(assignments)).
		Int("clusters", len(sizes)-boolToInt(sizes[Noise] > 0)).
		Int("noise", sizes[Noise]).
		Msg("Clustering pass complete")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
