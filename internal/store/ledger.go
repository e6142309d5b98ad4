// File: internal/store/ledger.go
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/fengtianyu/courtdash/internal/engine"
)

// DBPool abstracts the pgxpool.Pool so the ledger can be tested against a
// mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

const (
	createRunsTable = `
        CREATE TABLE IF NOT EXISTS booking_runs (
            id UUID PRIMARY KEY,
            venue TEXT NOT NULL,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ,
            success BOOLEAN,
            winner TEXT,
            error TEXT
        )`

	createAttemptsTable = `
        CREATE TABLE IF NOT EXISTS booking_attempts (
            id BIGSERIAL PRIMARY KEY,
            run_id UUID NOT NULL REFERENCES booking_runs(id),
            court TEXT NOT NULL,
            time_slot TEXT NOT NULL,
            signal TEXT NOT NULL,
            message TEXT,
            observed_at TIMESTAMPTZ NOT NULL
        )`
)

// Ledger persists booking runs and their per-combination attempts to
// Postgres. Attempt writes are best effort: a down database must never cost
// a booking, so they log and continue.
type Ledger struct {
	pool  DBPool
	log   *zap.Logger
	runID string
}

var _ engine.AttemptRecorder = (*Ledger)(nil)

// New verifies the connection and ensures the schema exists.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Ledger, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, ddl := range []string{createRunsTable, createAttemptsTable} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to ensure ledger schema: %w", err)
		}
	}
	return &Ledger{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// BeginRun opens the run row; attempts recorded afterwards reference it.
func (l *Ledger) BeginRun(ctx context.Context, runID, venue string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO booking_runs (id, venue, started_at) VALUES ($1, $2, now())`,
		runID, venue)
	if err != nil {
		return fmt.Errorf("failed to insert booking run: %w", err)
	}
	l.runID = runID
	return nil
}

// RecordAttempt appends one classified attempt to the run's trail.
func (l *Ledger) RecordAttempt(ctx context.Context, combo engine.Combination, outcome engine.Outcome) {
	if l.runID == "" {
		return
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO booking_attempts (run_id, court, time_slot, signal, message, observed_at)
         VALUES ($1, $2, $3, $4, $5, now())`,
		l.runID, string(combo.Court), combo.Slot.String(), outcome.Signal.String(), outcome.Message)
	if err != nil {
		l.log.Warn("Could not record attempt, continuing",
			zap.Stringer("combination", combo), zap.Error(err))
	}
}

// FinishRun closes the run row with its final verdict.
func (l *Ledger) FinishRun(ctx context.Context, runID, winner string, runErr error) error {
	var errText string
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := l.pool.Exec(ctx,
		`UPDATE booking_runs SET finished_at = now(), success = $2, winner = $3, error = $4 WHERE id = $1`,
		runID, runErr == nil, winner, errText)
	if err != nil {
		return fmt.Errorf("failed to finish booking run: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (l *Ledger) Close() {
	l.pool.Close()
}
