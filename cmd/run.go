// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fengtianyu/courtdash/internal/booking"
	"github.com/fengtianyu/courtdash/internal/browser"
	"github.com/fengtianyu/courtdash/internal/config"
	"github.com/fengtianyu/courtdash/internal/diagnostics"
	"github.com/fengtianyu/courtdash/internal/engine"
	"github.com/fengtianyu/courtdash/internal/observability"
	"github.com/fengtianyu/courtdash/internal/store"
)

// newRunCmd creates and configures the `run` command, which executes one
// complete booking: prepare, wait for the release instant, search, report.
func newRunCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Log in ahead of time, wait for the release instant, then book",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line flags override
			// config file and environment values with the right precedence.
			if err := v.BindPFlag("booking.automated", cmd.Flags().Lookup("automated")); err != nil {
				return err
			}
			if err := v.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := v.BindPFlag("booking.target_time", cmd.Flags().Lookup("target-time")); err != nil {
				return err
			}
			if err := v.BindPFlag("booking.venue", cmd.Flags().Lookup("venue")); err != nil {
				return err
			}
			if err := v.BindPFlag("booking.courts", cmd.Flags().Lookup("courts")); err != nil {
				return err
			}
			return v.BindPFlag("booking.time_slots", cmd.Flags().Lookup("slots"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-unmarshal now that flag bindings are in place.
			cfg, err := config.NewFromViper(v)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}

			clock := engine.SystemClock{}
			sink := diagnostics.NewSink(cfg.Diagnostics, clock, logger)
			logger.Info("Starting booking run",
				zap.String("run_id", sink.RunID()),
				zap.String("venue", cfg.Booking.Venue),
				zap.Strings("courts", cfg.Booking.Courts),
				zap.Strings("slots", cfg.Booking.TimeSlots),
				zap.String("target_time", cfg.Booking.TargetTime),
				zap.Bool("automated", cfg.Booking.Automated),
			)

			ledger := openLedger(ctx, cfg, sink.RunID(), logger)
			if ledger != nil {
				defer ledger.Close()
			}
			recorder := booking.NewMultiRecorder(sink)
			if ledger != nil {
				recorder = booking.NewMultiRecorder(sink, ledger)
			}

			manager := browser.NewManager(ctx, cfg.Browser, logger)
			defer func() {
				if err := manager.Shutdown(context.Background()); err != nil {
					logger.Warn("Browser shutdown incomplete", zap.Error(err))
				}
			}()

			session, err := manager.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("failed to open browser session: %w", err)
			}

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			pacer := engine.NewPacer(cfg.Pacing, cfg.Booking.Automated, rng, clock, logger)
			exec := engine.NewActionExecutor(session, pacer, logger)
			scheduler := engine.NewDeadlineScheduler(clock, cfg.Booking.Automated, logger)

			classifier, err := engine.NewClassifier(session, booking.ProbesFromConfig(cfg.Classifier), logger)
			if err != nil {
				return err
			}
			search := engine.NewSearch(exec, session, classifier, recorder, rng,
				cfg.Classifier.PauseOnUnknown, logger)
			flow := booking.NewFlow(cfg, session, exec, scheduler, search, sink, clock, logger)

			combo, runErr := flow.Run(ctx)
			closeLedgerRun(ledger, sink.RunID(), combo, runErr, logger)
			return runErr
		},
	}

	runCmd.Flags().Bool("automated", false, "bypass the deadline wait and use fixed pacing (implied by CI)")
	runCmd.Flags().Bool("headless", false, "run the browser without a visible window")
	runCmd.Flags().String("target-time", "", "release instant as hh:mm:ss:SSS (default from config)")
	runCmd.Flags().String("venue", "", "venue name as shown on the portal (default from config)")
	runCmd.Flags().StringSlice("courts", nil, "court tabs to try, in preference-free order")
	runCmd.Flags().StringSlice("slots", nil, "time slots to try, e.g. 18:00-19:00")

	return runCmd
}

// openLedger connects the optional Postgres attempt ledger. Any failure here
// degrades to in-process diagnostics only; it never blocks the booking.
func openLedger(ctx context.Context, cfg *config.Config, runID string, logger *zap.Logger) *store.Ledger {
	if cfg.Database.URL == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Warn("Could not create database pool, continuing without ledger", zap.Error(err))
		return nil
	}
	ledger, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		logger.Warn("Could not initialize attempt ledger, continuing without it", zap.Error(err))
		return nil
	}
	if err := ledger.BeginRun(ctx, runID, cfg.Booking.Venue); err != nil {
		ledger.Close()
		logger.Warn("Could not open ledger run, continuing without it", zap.Error(err))
		return nil
	}
	return ledger
}

// closeLedgerRun records the final verdict. Uses a fresh context so the
// verdict still lands when the run context was cancelled.
func closeLedgerRun(ledger *store.Ledger, runID string, combo engine.Combination, runErr error, logger *zap.Logger) {
	if ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var winner string
	if runErr == nil {
		winner = combo.String()
	}
	if err := ledger.FinishRun(ctx, runID, winner, runErr); err != nil {
		logger.Warn("Could not finalize ledger run", zap.Error(err))
	}
}
