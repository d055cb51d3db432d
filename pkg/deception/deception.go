// pkg/deception/deception.go
package deception

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/lucid-vigil/mirage/pkg/profile"
)

// Tarpit delay bounds for automated clients.
const (
	DelayMin = 2 * time.Second
	DelayMax = 5 * time.Second
)

// fakeErrors are the canned failures served to scanners in place of real
// output. Chosen uniformly at random, keyed off the literal command text.
var fakeErrors = []string{
	"%s: Permission denied",
	"%s: Segmentation fault",
	"%s: Operation not permitted",
}

// rootListing is the richer decoy filesystem shown to interactive humans.
const rootListing = "bin  boot  dev  etc  home  lib  opt  root  tmp  var"

// Engine mutates timing and output according to the session's profile label.
// It holds no mutable state beyond its injected random source; both hooks are
// total functions of their arguments modulo that explicit randomness.
type Engine struct {
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSleep replaces the real suspension with a recorded one; used by tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// New creates an engine drawing randomness from the given seedable source.
func New(rng *rand.Rand, opts ...Option) *Engine {
	e := &Engine{
		rng:   rng,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Delay draws a tarpit duration uniformly from [DelayMin, DelayMax).
func (e *Engine) Delay() time.Duration {
	span := float64(DelayMax - DelayMin)
	return DelayMin + time.Duration(e.rng.Float64()*span)
}

// PreCommand suspends the session before command execution for labels that
// identify automated clients, wasting their time against a seemingly
// overloaded host. The suspension ends early if ctx is cancelled. Returns the
// delay that was scheduled, zero for labels without a tarpit policy.
func (e *Engine) PreCommand(ctx context.Context, label profile.Label) time.Duration {
	switch label {
	case profile.LabelBruteforceBot, profile.LabelAutomatedScanner:
		d := e.Delay()
		e.sleep(ctx, d)
		return d
	case profile.LabelHumanInteractive, profile.LabelUnknown:
		return 0
	}
	return 0
}

// PostCommand rewrites command output after execution according to the
// label-keyed policy table; labels without a policy pass output through.
func (e *Engine) PostCommand(label profile.Label, command, defaultOutput string) string {
	switch label {
	case profile.LabelAutomatedScanner:
		tmpl := fakeErrors[e.rng.Intn(len(fakeErrors))]
		return strings.Replace(tmpl, "%s", command, 1)
	case profile.LabelHumanInteractive:
		if command == "ls" {
			return rootListing
		}
		if strings.HasPrefix(command, "cd") {
			return ""
		}
		return defaultOutput
	case profile.LabelBruteforceBot, profile.LabelUnknown:
		return defaultOutput
	}
	return defaultOutput
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
