// File: internal/engine/search.go
package engine

import (
	"context"
	"errors"
	"math/rand"

	"go.uber.org/zap"
)

var (
	// ErrExhausted is returned when every combination has been attempted
	// without a confirmed success.
	ErrExhausted = errors.New("all court and slot combinations attempted without success")

	// ErrDateSelection marks the fatal one-time setup failure before the
	// search loop starts.
	ErrDateSelection = errors.New("date selection failed")
)

// Steps describes the venue-specific actions the search drives for each
// combination. Locator construction stays with the caller; the search only
// sequences them.
type Steps struct {
	// SelectDate runs once before the loop; its failure is fatal.
	SelectDate []Candidate

	// SelectResource switches to the court's tab; fallback list.
	SelectResource func(Resource) []Candidate

	// SelectSlot picks the interval inside the current court view.
	SelectSlot func(Slot) Candidate

	// Confirm locks the selection.
	Confirm Candidate

	// LockedMarker must become visible after Confirm; its absence means a
	// competing actor took the slot first.
	LockedMarker Candidate

	// Submit places the order; fallback list.
	Submit []Candidate

	// FollowUp runs once after a confirmed success (payment hand-off);
	// best effort, its failure does not invalidate the booking.
	FollowUp []Candidate
}

// Search drives the randomized exhaustive walk over the Resource×Slot grid.
// Combinations are attempted strictly one at a time; no combination is ever
// revisited within a run, because a failed attempt may already have mutated
// remote state.
type Search struct {
	exec            *ActionExecutor
	surface         Surface
	classifier      *Classifier
	recorder        AttemptRecorder // optional
	rng             *rand.Rand
	escalateUnknown bool
	logger          *zap.Logger
}

func NewSearch(
	exec *ActionExecutor,
	surface Surface,
	classifier *Classifier,
	recorder AttemptRecorder,
	rng *rand.Rand,
	escalateUnknown bool,
	logger *zap.Logger,
) *Search {
	return &Search{
		exec:            exec,
		surface:         surface,
		classifier:      classifier,
		recorder:        recorder,
		rng:             rng,
		escalateUnknown: escalateUnknown,
		logger:          logger.Named("search"),
	}
}

// Run selects the date once, then walks a uniformly shuffled ordering of
// every (resource, slot) pair until one books successfully. It returns the
// winning combination, or ErrExhausted / ErrDateSelection / a context error.
func (s *Search) Run(ctx context.Context, resources []Resource, slots []Slot, steps Steps) (Combination, error) {
	if !s.exec.Attempt(ctx, ProfileFast, steps.SelectDate) {
		return Combination{}, ErrDateSelection
	}

	combos := Combinations(resources, slots)
	// A uniform shuffle avoids the deterministic first-court bias that
	// would starve later courts under contention from other actors.
	s.rng.Shuffle(len(combos), func(i, j int) {
		combos[i], combos[j] = combos[j], combos[i]
	})
	s.logger.Info("Trying combinations in randomized order", zap.Int("count", len(combos)))

	for _, combo := range combos {
		if err := ctx.Err(); err != nil {
			return Combination{}, err
		}

		outcome, classified := s.attempt(ctx, combo, steps)
		if classified && s.recorder != nil {
			s.recorder.RecordAttempt(ctx, combo, outcome)
		}
		if !classified {
			continue
		}

		switch outcome.Signal {
		case SignalSuccess:
			s.logger.Info("Booking confirmed",
				zap.Stringer("combination", combo),
				zap.String("message", outcome.Message))
			if len(steps.FollowUp) > 0 && !s.exec.Attempt(ctx, ProfileNormal, steps.FollowUp) {
				s.logger.Warn("Follow-up action failed; finish it manually",
					zap.Stringer("combination", combo))
			}
			return combo, nil
		case SignalFailure:
			s.logger.Error("Booking rejected, trying next combination",
				zap.Stringer("combination", combo),
				zap.String("message", outcome.Message))
		default:
			// Unknown: not a failure confirmation either. Surface it so a
			// human can verify, then keep searching.
			log := s.logger.Warn
			if s.escalateUnknown {
				log = s.logger.Error
			}
			log("Outcome undetermined within budget, verify manually",
				zap.Stringer("combination", combo))
		}
	}

	return Combination{}, ErrExhausted
}

// attempt drives one combination through selection, confirmation, the lock
// check, submission and classification. The bool reports whether the attempt
// reached classification; any earlier failure abandons the combination.
func (s *Search) attempt(ctx context.Context, combo Combination, steps Steps) (Outcome, bool) {
	s.logger.Info("Attempting combination", zap.Stringer("combination", combo))

	if !s.exec.Attempt(ctx, ProfileFast, steps.SelectResource(combo.Court)) {
		s.logger.Warn("Could not switch to court tab, skipping",
			zap.Stringer("combination", combo))
		return Outcome{}, false
	}

	if !s.exec.Attempt(ctx, ProfileFast, []Candidate{steps.SelectSlot(combo.Slot)}) {
		s.logger.Warn("Could not select time slot, skipping",
			zap.Stringer("combination", combo))
		return Outcome{}, false
	}

	if !s.exec.Attempt(ctx, ProfileFast, []Candidate{steps.Confirm}) {
		s.logger.Warn("Could not confirm selection, skipping",
			zap.Stringer("combination", combo))
		return Outcome{}, false
	}

	// The locked marker proves the confirm actually held. When it never
	// appears the slot was most likely taken between click and commit.
	if err := s.surface.WaitVisible(ctx, steps.LockedMarker.Target, steps.LockedMarker.Timeout); err != nil {
		s.logger.Warn("Selection did not lock, likely lost to a competitor",
			zap.Stringer("combination", combo), zap.Error(err))
		return Outcome{}, false
	}
	s.logger.Info("Combination locked", zap.Stringer("combination", combo))

	if !s.exec.Attempt(ctx, ProfileFast, steps.Submit) {
		s.logger.Warn("Submission failed after lock, possibly preempted",
			zap.Stringer("combination", combo))
		return Outcome{}, false
	}

	return s.classifier.Classify(ctx), true
}
