// File: internal/engine/action.go
package engine

import (
	"context"

	"go.uber.org/zap"
)

// ActionExecutor performs one logical UI action by walking an ordered list
// of candidate locators until one succeeds. The ordering is a priority, not
// a retry count: each candidate is tried exactly once per call.
type ActionExecutor struct {
	surface Surface
	pacer   *Pacer
	logger  *zap.Logger
}

func NewActionExecutor(surface Surface, pacer *Pacer, logger *zap.Logger) *ActionExecutor {
	return &ActionExecutor{
		surface: surface,
		pacer:   pacer,
		logger:  logger.Named("action"),
	}
}

// Attempt tries each candidate in order and returns true on the first one
// that becomes actionable and clicks cleanly. Candidate errors, timeouts
// included, are soft: they are logged and the next candidate is tried. A
// false return means the action could not be performed right now; callers
// decide whether that is fatal.
func (e *ActionExecutor) Attempt(ctx context.Context, profile Profile, candidates []Candidate) bool {
	for _, c := range candidates {
		if ctx.Err() != nil {
			return false
		}
		if err := e.tryCandidate(ctx, profile, c); err != nil {
			e.logger.Warn("Candidate failed, trying next",
				zap.Stringer("target", c.Target),
				zap.Duration("timeout", c.Timeout),
				zap.Error(err))
			continue
		}
		e.logger.Debug("Clicked", zap.Stringer("target", c.Target))
		return true
	}
	e.logger.Error("All candidates failed for action", zap.Int("candidates", len(candidates)))
	return false
}

func (e *ActionExecutor) tryCandidate(ctx context.Context, profile Profile, c Candidate) error {
	if err := e.surface.WaitVisible(ctx, c.Target, c.Timeout); err != nil {
		return err
	}
	if err := e.pacer.Pause(ctx, profile); err != nil {
		return err
	}
	return e.surface.Click(ctx, c.Target, c.Timeout)
}
