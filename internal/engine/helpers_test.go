// internal/engine/helpers_test.go
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fengtianyu/courtdash/internal/config"
)

// fakeClock advances instantly on Sleep so spin-waits finish in-memory.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

// fakeSurface is a scriptable Surface. Failures are keyed by the locator's
// String() form; FindText matches against pageText with Go regexp.
type fakeSurface struct {
	mu          sync.Mutex
	failVisible map[string]bool
	failClick   map[string]bool
	pageText    string

	waited    []string
	clicked   []string
	filled    map[string]string
	findCalls int
	navigated []string
	shot      []byte
	shotErr   error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		failVisible: make(map[string]bool),
		failClick:   make(map[string]bool),
		filled:      make(map[string]string),
	}
}

func (s *fakeSurface) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *fakeSurface) WaitVisible(ctx context.Context, target Locator, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waited = append(s.waited, target.String())
	if s.failVisible[target.String()] {
		return fmt.Errorf("element %s not visible within %v", target, timeout)
	}
	return nil
}

func (s *fakeSurface) Click(ctx context.Context, target Locator, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failClick[target.String()] {
		return fmt.Errorf("click on %s failed", target)
	}
	s.clicked = append(s.clicked, target.String())
	return nil
}

func (s *fakeSurface) Fill(ctx context.Context, target Locator, value string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filled[target.String()] = value
	return nil
}

func (s *fakeSurface) FindText(ctx context.Context, pattern string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	if m := re.FindString(s.pageText); m != "" {
		return m, nil
	}
	return "", fmt.Errorf("no text matching %q within %v", pattern, timeout)
}

func (s *fakeSurface) Screenshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shot, s.shotErr
}

func (s *fakeSurface) clickCount(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.clicked {
		if c == target {
			n++
		}
	}
	return n
}

// testPacer returns a pacer that introduces no real delay.
func testPacer(t *testing.T) *Pacer {
	t.Helper()
	cfg := config.PacingConfig{
		Automated:           0,
		MaxActionsPerSecond: 1000,
	}
	return NewPacer(cfg, true, rand.New(rand.NewSource(1)), newFakeClock(time.Unix(0, 0)), zap.NewNop())
}

func testExecutor(t *testing.T, surface Surface) *ActionExecutor {
	t.Helper()
	return NewActionExecutor(surface, testPacer(t), zap.NewNop())
}
