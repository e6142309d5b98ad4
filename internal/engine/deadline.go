// File: internal/engine/deadline.go
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// spinInterval is the sleep increment of the deadline busy-wait. A short
// fixed tick is deliberate: millisecond precision at the release instant is
// worth a second or two of spinning, and the wait window is typically well
// under a minute.
const spinInterval = time.Millisecond

// DeadlineScheduler suspends the calling flow until a target wall-clock
// instant. In bypass mode it returns immediately, for environments where
// racing the clock is pointless (CI) or unsafe.
type DeadlineScheduler struct {
	clock  Clock
	bypass bool
	logger *zap.Logger
}

func NewDeadlineScheduler(clock Clock, bypass bool, logger *zap.Logger) *DeadlineScheduler {
	return &DeadlineScheduler{
		clock:  clock,
		bypass: bypass,
		logger: logger.Named("deadline"),
	}
}

// WaitUntil blocks until the next occurrence of the target time of day,
// rolling to tomorrow when the instant has already passed today. The target
// is computed once. Cancelling ctx aborts the wait; this is the run-level
// cancellation hook, since every other suspension point already carries its
// own timeout.
func (s *DeadlineScheduler) WaitUntil(ctx context.Context, target TimeOfDay) error {
	if s.bypass {
		s.logger.Info("Bypass mode, skipping deadline wait")
		return nil
	}

	instant := target.NextOccurrence(s.clock.Now())
	s.logger.Info("Preparation complete, waiting for release instant",
		zap.Time("target", instant),
		zap.Duration("remaining", instant.Sub(s.clock.Now())))

	for s.clock.Now().Before(instant) {
		if err := s.clock.Sleep(ctx, spinInterval); err != nil {
			return err
		}
	}

	s.logger.Info("Release instant reached")
	return nil
}
