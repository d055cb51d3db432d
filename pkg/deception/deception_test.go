package deception

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-vigil/mirage/pkg/profile"
)

func recordedEngine(seed int64) (*Engine, *[]time.Duration) {
	var slept []time.Duration
	e := New(rand.New(rand.NewSource(seed)), WithSleep(func(ctx context.Context, d time.Duration) {
		slept = append(slept, d)
	}))
	return e, &slept
}

func TestDelay_WithinBounds(t *testing.T) {
	e := New(rand.New(rand.NewSource(42)))

	for i := 0; i < 1000; i++ {
		d := e.Delay()
		assert.GreaterOrEqual(t, d, DelayMin)
		assert.Less(t, d, DelayMax)
	}
}

func TestPreCommand_SampledDelaysWithinBounds(t *testing.T) {
	e, slept := recordedEngine(42)

	for i := 0; i < 1000; i++ {
		e.PreCommand(context.Background(), profile.LabelAutomatedScanner)
	}

	require.Len(t, *slept, 1000)
	for _, d := range *slept {
		assert.GreaterOrEqual(t, d, DelayMin)
		assert.Less(t, d, DelayMax)
	}
}

func TestPreCommand_DelaysAutomatedLabels(t *testing.T) {
	for _, label := range []profile.Label{profile.LabelBruteforceBot, profile.LabelAutomatedScanner} {
		e, slept := recordedEngine(1)

		d := e.PreCommand(context.Background(), label)

		assert.Len(t, *slept, 1, "label %s must be tarpitted", label)
		assert.Equal(t, d, (*slept)[0])
		assert.GreaterOrEqual(t, d, DelayMin)
		assert.Less(t, d, DelayMax)
	}
}

func TestPreCommand_NoDelayForOtherLabels(t *testing.T) {
	for _, label := range []profile.Label{profile.LabelHumanInteractive, profile.LabelUnknown} {
		e, slept := recordedEngine(1)

		d := e.PreCommand(context.Background(), label)

		assert.Empty(t, *slept, "label %s must not be delayed", label)
		assert.Zero(t, d)
	}
}

func TestPostCommand_ScannerGetsFakeErrors(t *testing.T) {
	e, _ := recordedEngine(7)

	expected := map[string]bool{
		"nmap -sV localhost: Permission denied":       true,
		"nmap -sV localhost: Segmentation fault":      true,
		"nmap -sV localhost: Operation not permitted": true,
	}

	for i := 0; i < 100; i++ {
		out := e.PostCommand(profile.LabelAutomatedScanner, "nmap -sV localhost", "real output")
		assert.True(t, expected[out], "unexpected scanner output %q", out)
	}
}

func TestPostCommand_HumanInteractiveOverrides(t *testing.T) {
	e, _ := recordedEngine(7)

	assert.Equal(t, "bin  boot  dev  etc  home  lib  opt  root  tmp  var",
		e.PostCommand(profile.LabelHumanInteractive, "ls", "Desktop  Documents"))
	assert.Equal(t, "", e.PostCommand(profile.LabelHumanInteractive, "cd /etc", "anything"))
	assert.Equal(t, "", e.PostCommand(profile.LabelHumanInteractive, "cd", "anything"))
	assert.Equal(t, "admin", e.PostCommand(profile.LabelHumanInteractive, "whoami", "admin"),
		"commands outside the ls/cd overrides pass through")
}

func TestPostCommand_Passthrough(t *testing.T) {
	e, _ := recordedEngine(7)

	for _, label := range []profile.Label{profile.LabelUnknown, profile.LabelBruteforceBot} {
		assert.Equal(t, "default", e.PostCommand(label, "ls", "default"))
	}
}

func TestPostCommand_DeterministicWithSeed(t *testing.T) {
	first, _ := recordedEngine(99)
	second, _ := recordedEngine(99)

	for i := 0; i < 50; i++ {
		assert.Equal(t,
			first.PostCommand(profile.LabelAutomatedScanner, "id", "x"),
			second.PostCommand(profile.LabelAutomatedScanner, "id", "x"))
	}
}
