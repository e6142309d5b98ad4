// File: internal/engine/classifier.go
package engine

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// Probe is one (signal, matcher, budget) tuple. Probes are configuration
// data so new portal phrasings can be added without touching control flow.
type Probe struct {
	Signal  Signal
	Pattern string
	Timeout time.Duration
}

// Classifier decides the result of a submission attempt from noisy page
// signals. Probes run sequentially in order, so the worst-case latency is
// the sum of all probe budgets.
type Classifier struct {
	surface Surface
	probes  []Probe
	logger  *zap.Logger
}

// NewClassifier validates probe patterns up front and returns the
// classifier. Patterns are evaluated by the surface, but a pattern that does
// not compile here would never match there either.
func NewClassifier(surface Surface, probes []Probe, logger *zap.Logger) (*Classifier, error) {
	if len(probes) == 0 {
		return nil, fmt.Errorf("classifier requires at least one probe")
	}
	for _, p := range probes {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return nil, fmt.Errorf("probe pattern %q: %w", p.Pattern, err)
		}
		if p.Timeout <= 0 {
			return nil, fmt.Errorf("probe pattern %q has non-positive timeout", p.Pattern)
		}
	}
	return &Classifier{
		surface: surface,
		probes:  probes,
		logger:  logger.Named("classifier"),
	}, nil
}

// Classify runs the probe sequence once, immediately after a submission.
// The first matching probe wins; when none match within their budgets the
// outcome is Unknown, which is not proof of failure and must never be taken
// as a confirmation.
func (c *Classifier) Classify(ctx context.Context) Outcome {
	for _, p := range c.probes {
		matched, err := c.surface.FindText(ctx, p.Pattern, p.Timeout)
		if err != nil {
			c.logger.Debug("Probe did not match within budget",
				zap.Stringer("signal", p.Signal),
				zap.Duration("timeout", p.Timeout),
				zap.Error(err))
			continue
		}
		return Outcome{Signal: p.Signal, Message: matched}
	}
	return Outcome{Signal: SignalUnknown}
}
