// File: internal/engine/interfaces.go
package engine

import (
	"context"
	"time"
)

// Surface is the seam between the engine and the UI automation driver. Every
// operation is bounded by an explicit timeout and reports absence or
// timeouts as errors.
type Surface interface {
	// Navigate loads the given URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the target is visible or the timeout elapses.
	WaitVisible(ctx context.Context, target Locator, timeout time.Duration) error

	// Click scrolls the target into view and clicks it. The target must
	// already be actionable; callers wait first.
	Click(ctx context.Context, target Locator, timeout time.Duration) error

	// Fill types the value into the targeted input.
	Fill(ctx context.Context, target Locator, value string, timeout time.Duration) error

	// FindText polls the page text for the regular expression and returns
	// the matched fragment, or an error when the budget elapses first.
	FindText(ctx context.Context, pattern string, timeout time.Duration) (string, error)

	// Screenshot captures a full-page screenshot for diagnostics.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Clock abstracts wall-clock access so the deadline spin-wait is testable.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AttemptRecorder receives per-combination outcomes; implementations are
// best effort and must not fail the search.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, combo Combination, outcome Outcome)
}
