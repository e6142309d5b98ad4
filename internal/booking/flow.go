// File: internal/booking/flow.go
package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fengtianyu/courtdash/internal/config"
	"github.com/fengtianyu/courtdash/internal/diagnostics"
	"github.com/fengtianyu/courtdash/internal/engine"
)

// Flow orchestrates a booking run end to end: login and navigation first,
// then the deadline wait, then the timed search over every court and slot.
type Flow struct {
	cfg       *config.Config
	surface   engine.Surface
	exec      *engine.ActionExecutor
	scheduler *engine.DeadlineScheduler
	search    *engine.Search
	sink      *diagnostics.Sink
	clock     engine.Clock
	logger    *zap.Logger
}

func NewFlow(
	cfg *config.Config,
	surface engine.Surface,
	exec *engine.ActionExecutor,
	scheduler *engine.DeadlineScheduler,
	search *engine.Search,
	sink *diagnostics.Sink,
	clock engine.Clock,
	logger *zap.Logger,
) *Flow {
	return &Flow{
		cfg:       cfg,
		surface:   surface,
		exec:      exec,
		scheduler: scheduler,
		search:    search,
		sink:      sink,
		clock:     clock,
		logger:    logger.Named("flow"),
	}
}

// Run executes the booking and persists diagnostics regardless of how it
// ends. The winning combination is returned on success.
func (f *Flow) Run(ctx context.Context) (engine.Combination, error) {
	combo, err := f.run(ctx)
	if err != nil {
		f.logger.Error("Booking run failed", zap.Error(err))
		f.sink.CaptureFailure(ctx, f.surface)
	}
	if _, werr := f.sink.WriteReport(combo, err); werr != nil {
		f.logger.Warn("Could not write run report", zap.Error(werr))
	}
	return combo, err
}

func (f *Flow) run(ctx context.Context) (engine.Combination, error) {
	resources, slots, err := f.targets()
	if err != nil {
		return engine.Combination{}, err
	}
	target, err := engine.ParseTimeOfDay(f.cfg.Booking.TargetTime)
	if err != nil {
		return engine.Combination{}, fmt.Errorf("invalid target time: %w", err)
	}

	f.logger.Info("Phase 1: login and preparation")
	if err := f.prepare(ctx); err != nil {
		return engine.Combination{}, err
	}

	if err := f.scheduler.WaitUntil(ctx, target); err != nil {
		return engine.Combination{}, err
	}
	f.logger.Info("Phase 2: timed booking window")

	// Bookings open for the following day, so the date to click is the day
	// after the release instant fires.
	tomorrow := f.clock.Now().AddDate(0, 0, 1).Day()

	f.sink.MarkCriticalStart()
	combo, err := f.search.Run(ctx, resources, slots, searchSteps(tomorrow))
	f.sink.MarkCriticalEnd()
	if err != nil {
		return combo, err
	}

	f.logger.Info("Booking complete, finish payment manually within the portal's deadline",
		zap.Stringer("combination", combo))
	return combo, nil
}

// prepare is the untimed phase: everything that can be done before the
// release instant so the timed phase starts on the reservation page.
func (f *Flow) prepare(ctx context.Context) error {
	f.logger.Info("Opening venue portal", zap.String("url", f.cfg.Booking.PortalURL))
	if err := f.surface.Navigate(ctx, f.cfg.Booking.PortalURL); err != nil {
		return err
	}

	if err := f.login(ctx); err != nil {
		return err
	}

	if !f.exec.Attempt(ctx, engine.ProfileNormal, venueCandidates(f.cfg.Booking.Venue)) {
		return fmt.Errorf("could not open venue %q", f.cfg.Booking.Venue)
	}
	if !f.exec.Attempt(ctx, engine.ProfileNormal, bookingEntryCandidates()) {
		return fmt.Errorf("could not open the reservation page")
	}

	f.logger.Info("Preparation complete, on the reservation page")
	return nil
}

func (f *Flow) login(ctx context.Context) error {
	creds := f.cfg.Booking
	if creds.Username == "" || creds.Password == "" {
		f.logger.Warn("No credentials configured, skipping login")
		return nil
	}

	if !f.exec.Attempt(ctx, engine.ProfileNormal, loginEntryCandidates()) {
		return fmt.Errorf("could not open the external-user login form")
	}
	if err := f.surface.Fill(ctx, usernameField(), creds.Username, prepareTimeout); err != nil {
		return fmt.Errorf("could not fill username: %w", err)
	}
	if err := f.surface.Fill(ctx, passwordField(), creds.Password, prepareTimeout); err != nil {
		return fmt.Errorf("could not fill password: %w", err)
	}
	if !f.exec.Attempt(ctx, engine.ProfileNormal, loginSubmitCandidates()) {
		return fmt.Errorf("could not submit the login form")
	}

	f.logger.Info("Logged in")
	return nil
}

// targets translates the configured courts and slot tokens into engine
// values.
func (f *Flow) targets() ([]engine.Resource, []engine.Slot, error) {
	resources := make([]engine.Resource, 0, len(f.cfg.Booking.Courts))
	for _, c := range f.cfg.Booking.Courts {
		resources = append(resources, engine.Resource(c))
	}
	slots := make([]engine.Slot, 0, len(f.cfg.Booking.TimeSlots))
	for _, token := range f.cfg.Booking.TimeSlots {
		slot, err := engine.ParseSlot(token)
		if err != nil {
			return nil, nil, err
		}
		slots = append(slots, slot)
	}
	return resources, slots, nil
}

// ProbesFromConfig builds the classifier probe sequence. Success runs first
// so a page showing both phrasings counts as booked.
func ProbesFromConfig(cfg config.ClassifierConfig) []engine.Probe {
	return []engine.Probe{
		{Signal: engine.SignalSuccess, Pattern: cfg.SuccessPattern, Timeout: cfg.SuccessTimeout},
		{Signal: engine.SignalFailure, Pattern: cfg.FailurePattern, Timeout: cfg.FailureTimeout},
	}
}

// MultiRecorder fans attempt records out to every non-nil recorder.
type MultiRecorder []engine.AttemptRecorder

var _ engine.AttemptRecorder = (MultiRecorder)(nil)

// NewMultiRecorder drops nil recorders; a nil result means recording is off
// entirely.
func NewMultiRecorder(recorders ...engine.AttemptRecorder) engine.AttemptRecorder {
	var active MultiRecorder
	for _, r := range recorders {
		if r != nil {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return active
}

func (m MultiRecorder) RecordAttempt(ctx context.Context, combo engine.Combination, outcome engine.Outcome) {
	for _, r := range m {
		r.RecordAttempt(ctx, combo, outcome)
	}
}
