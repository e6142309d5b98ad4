// File: internal/engine/pacing.go
package engine

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fengtianyu/courtdash/internal/config"
)

// Profile selects the delay tier for a pre-action pause.
type Profile int

const (
	// ProfileNormal is used during preparation, where looking human matters
	// more than speed.
	ProfileNormal Profile = iota
	// ProfileFast is used inside the critical booking window.
	ProfileFast
)

func (p Profile) String() string {
	if p == ProfileFast {
		return "fast"
	}
	return "normal"
}

// Pacer injects randomized pre-action delays so the click cadence does not
// look machine-generated. In automated mode the delay collapses to a fixed
// short pause; in human-paced mode an additional rate limiter caps bursts of
// fallback attempts.
type Pacer struct {
	cfg       config.PacingConfig
	automated bool
	limiter   *rate.Limiter
	rng       *rand.Rand
	clock     Clock
	logger    *zap.Logger
}

// NewPacer builds a Pacer. The rand source is injected so tests can pin it.
func NewPacer(cfg config.PacingConfig, automated bool, rng *rand.Rand, clock Clock, logger *zap.Logger) *Pacer {
	return &Pacer{
		cfg:       cfg,
		automated: automated,
		limiter:   rate.NewLimiter(rate.Limit(cfg.MaxActionsPerSecond), 1),
		rng:       rng,
		clock:     clock,
		logger:    logger.Named("pacer"),
	}
}

// Pause blocks for a profile-dependent randomized duration.
func (p *Pacer) Pause(ctx context.Context, profile Profile) error {
	if p.automated {
		return p.clock.Sleep(ctx, p.cfg.Automated)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	min, max := p.cfg.NormalMin, p.cfg.NormalMax
	if profile == ProfileFast {
		min, max = p.cfg.FastMin, p.cfg.FastMax
	}

	d := min
	if span := max - min; span > 0 {
		d += time.Duration(p.rng.Int63n(int64(span)))
	}
	p.logger.Debug("Pre-action pause", zap.Stringer("profile", profile), zap.Duration("delay", d))
	return p.clock.Sleep(ctx, d)
}
