// internal/engine/pacing_test.go
package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fengtianyu/courtdash/internal/config"
)

func pacingConfig() config.PacingConfig {
	return config.PacingConfig{
		NormalMin:           800 * time.Millisecond,
		NormalMax:           2 * time.Second,
		FastMin:             50 * time.Millisecond,
		FastMax:             150 * time.Millisecond,
		Automated:           100 * time.Millisecond,
		MaxActionsPerSecond: 1000,
	}
}

func TestPauseAutomatedIsFixed(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	p := NewPacer(pacingConfig(), true, rand.New(rand.NewSource(1)), clock, zap.NewNop())

	require.NoError(t, p.Pause(context.Background(), ProfileNormal))
	require.NoError(t, p.Pause(context.Background(), ProfileFast))

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, clock.slept,
		"automated mode ignores the tier and uses the fixed pause")
}

func TestPauseNormalProfileStaysInBounds(t *testing.T) {
	cfg := pacingConfig()
	clock := newFakeClock(time.Unix(0, 0))
	p := NewPacer(cfg, false, rand.New(rand.NewSource(7)), clock, zap.NewNop())

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Pause(context.Background(), ProfileNormal))
	}

	require.Len(t, clock.slept, 20)
	for _, d := range clock.slept {
		assert.GreaterOrEqual(t, d, cfg.NormalMin)
		assert.Less(t, d, cfg.NormalMax)
	}
}

func TestPauseFastProfileStaysInBounds(t *testing.T) {
	cfg := pacingConfig()
	clock := newFakeClock(time.Unix(0, 0))
	p := NewPacer(cfg, false, rand.New(rand.NewSource(7)), clock, zap.NewNop())

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Pause(context.Background(), ProfileFast))
	}

	require.Len(t, clock.slept, 20)
	for _, d := range clock.slept {
		assert.GreaterOrEqual(t, d, cfg.FastMin)
		assert.Less(t, d, cfg.FastMax)
	}
}

func TestPauseDegenerateRange(t *testing.T) {
	cfg := pacingConfig()
	cfg.FastMin = 50 * time.Millisecond
	cfg.FastMax = 50 * time.Millisecond
	clock := newFakeClock(time.Unix(0, 0))
	p := NewPacer(cfg, false, rand.New(rand.NewSource(1)), clock, zap.NewNop())

	require.NoError(t, p.Pause(context.Background(), ProfileFast))
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, clock.slept)
}

func TestPauseCancelledContext(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	p := NewPacer(pacingConfig(), true, rand.New(rand.NewSource(1)), clock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Pause(ctx, ProfileNormal)
	require.ErrorIs(t, err, context.Canceled)
}
