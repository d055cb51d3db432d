package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	name string
	runs atomic.Int64
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) { j.runs.Add(1) }

func TestScheduler_RegisterJob(t *testing.T) {
	sched := NewScheduler()

	sched.RegisterJob(&countingJob{name: "clustering"}, time.Minute)

	assert.Len(t, sched.jobs, 1)
}

func TestScheduler_RejectsInvalidInterval(t *testing.T) {
	sched := NewScheduler()

	sched.RegisterJob(&countingJob{name: "bad"}, 0)
	sched.RegisterJob(&countingJob{name: "worse"}, -time.Second)

	assert.Empty(t, sched.jobs)
}

func TestScheduler_RunsJobImmediatelyThenOnInterval(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 450*time.Millisecond)
	defer cancel()

	job := &countingJob{name: "ticker"}
	sched := NewScheduler()
	sched.RegisterJob(job, 100*time.Millisecond)
	sched.Start(ctx)

	<-ctx.Done()

	// One immediate run plus at least three interval ticks within 450ms.
	runs := job.runs.Load()
	assert.GreaterOrEqual(t, runs, int64(3))
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	job := &countingJob{name: "stopper"}
	sched := NewScheduler()
	sched.RegisterJob(job, 20*time.Millisecond)
	sched.Start(ctx)

	time.Sleep(70 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	settled := job.runs.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, settled, job.runs.Load(), "no runs after cancellation")
}
