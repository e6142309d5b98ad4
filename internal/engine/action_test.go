// internal/engine/action_test.go
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(targets ...string) []Candidate {
	out := make([]Candidate, 0, len(targets))
	for _, tgt := range targets {
		out = append(out, NewCandidate(Text(tgt), 100*time.Millisecond))
	}
	return out
}

func TestAttemptStopsAtFirstSuccess(t *testing.T) {
	surface := newFakeSurface()
	surface.failVisible["text=first"] = true
	exec := testExecutor(t, surface)

	ok := exec.Attempt(context.Background(), ProfileFast, candidates("first", "second", "third"))

	require.True(t, ok)
	assert.Equal(t, []string{"text=second"}, surface.clicked)
	// The third candidate must never be touched after the second succeeds.
	assert.Equal(t, []string{"text=first", "text=second"}, surface.waited)
}

func TestAttemptAllCandidatesFail(t *testing.T) {
	surface := newFakeSurface()
	surface.failVisible["text=a"] = true
	surface.failVisible["text=b"] = true
	surface.failClick["text=c"] = true
	exec := testExecutor(t, surface)

	ok := exec.Attempt(context.Background(), ProfileNormal, candidates("a", "b", "c"))

	require.False(t, ok)
	// Every candidate attempted exactly once, in order.
	assert.Equal(t, []string{"text=a", "text=b", "text=c"}, surface.waited)
	assert.Empty(t, surface.clicked)
}

func TestAttemptClickFailureFallsThrough(t *testing.T) {
	surface := newFakeSurface()
	surface.failClick["text=flaky"] = true
	exec := testExecutor(t, surface)

	ok := exec.Attempt(context.Background(), ProfileFast, candidates("flaky", "stable"))

	require.True(t, ok)
	assert.Equal(t, []string{"text=stable"}, surface.clicked)
}

func TestAttemptHonorsCancelledContext(t *testing.T) {
	surface := newFakeSurface()
	exec := testExecutor(t, surface)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := exec.Attempt(ctx, ProfileFast, candidates("anything"))
	require.False(t, ok)
	assert.Empty(t, surface.waited)
}
