// File: internal/diagnostics/sink.go
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/fengtianyu/courtdash/internal/config"
	"github.com/fengtianyu/courtdash/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Attempt is one classified combination attempt as it appears in the run
// report.
type Attempt struct {
	Court   string    `json:"court"`
	Slot    string    `json:"slot"`
	Signal  string    `json:"signal"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Report is the persisted record of one booking run. A run that ends in
// Unknown outcomes is exactly the case where this file matters, since the
// user has to reconstruct what the tool did.
type Report struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	CriticalPathMS int64     `json:"critical_path_ms"`
	Success        bool      `json:"success"`
	Winner         string    `json:"winner,omitempty"`
	Error          string    `json:"error,omitempty"`
	Attempts       []Attempt `json:"attempts"`
}

// Sink collects per-run diagnostics: the attempt trail, the critical-path
// duration and failure screenshots. It implements engine.AttemptRecorder.
type Sink struct {
	cfg    config.DiagnosticsConfig
	clock  engine.Clock
	logger *zap.Logger
	runID  string

	mu            sync.Mutex
	startedAt     time.Time
	criticalStart time.Time
	criticalEnd   time.Time
	attempts      []Attempt
}

var _ engine.AttemptRecorder = (*Sink)(nil)

func NewSink(cfg config.DiagnosticsConfig, clock engine.Clock, logger *zap.Logger) *Sink {
	return &Sink{
		cfg:       cfg,
		clock:     clock,
		logger:    logger.Named("diagnostics"),
		runID:     uuid.New().String(),
		startedAt: clock.Now(),
	}
}

// RunID identifies this run in logs, reports and the attempt ledger.
func (s *Sink) RunID() string { return s.runID }

// MarkCriticalStart stamps the beginning of the timed booking window, right
// after the release instant fires.
func (s *Sink) MarkCriticalStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criticalStart = s.clock.Now()
}

// MarkCriticalEnd stamps the end of the timed booking window.
func (s *Sink) MarkCriticalEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criticalEnd = s.clock.Now()
}

// RecordAttempt appends one classified attempt to the trail.
func (s *Sink) RecordAttempt(_ context.Context, combo engine.Combination, outcome engine.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, Attempt{
		Court:   string(combo.Court),
		Slot:    combo.Slot.String(),
		Signal:  outcome.Signal.String(),
		Message: outcome.Message,
		At:      s.clock.Now(),
	})
}

// CaptureFailure writes a full-page screenshot into the diagnostics
// directory. Best effort: a failed capture is logged, never propagated,
// because it runs on paths that are already failing.
func (s *Sink) CaptureFailure(ctx context.Context, surface engine.Surface) {
	if !s.cfg.Screenshots {
		return
	}
	shot, err := surface.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("Could not capture failure screenshot", zap.Error(err))
		return
	}
	path := filepath.Join(s.cfg.Dir, fmt.Sprintf("error_%d.png", s.clock.Now().Unix()))
	if err := s.writeFile(path, shot); err != nil {
		s.logger.Warn("Could not save failure screenshot", zap.Error(err))
		return
	}
	s.logger.Info("Failure screenshot saved", zap.String("path", path))
}

// WriteReport finalizes and persists the run report, returning its path.
func (s *Sink) WriteReport(winner engine.Combination, runErr error) (string, error) {
	s.mu.Lock()
	report := Report{
		RunID:      s.runID,
		StartedAt:  s.startedAt,
		FinishedAt: s.clock.Now(),
		Success:    runErr == nil,
		Attempts:   s.attempts,
	}
	if !s.criticalStart.IsZero() && !s.criticalEnd.IsZero() {
		report.CriticalPathMS = s.criticalEnd.Sub(s.criticalStart).Milliseconds()
	}
	if runErr == nil {
		report.Winner = winner.String()
	} else {
		report.Error = runErr.Error()
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}

	path := filepath.Join(s.cfg.Dir, fmt.Sprintf("run_%s.json", s.runID[:8]))
	if err := s.writeFile(path, data); err != nil {
		return "", fmt.Errorf("failed to write run report: %w", err)
	}
	s.logger.Info("Run report written", zap.String("path", path))
	return path, nil
}

func (s *Sink) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
