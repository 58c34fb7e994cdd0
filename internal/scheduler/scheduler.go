// Package scheduler runs the matching sweeps on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"peerbridge/config"
	"peerbridge/internal/dto"
	"peerbridge/internal/service"
)

// Sweeper is the part of the matching engine the scheduler drives.
type Sweeper interface {
	AutoMatch(ctx context.Context) (*dto.AutoMatchResult, error)
	GenerateSuggestions(ctx context.Context) (*dto.SuggestionSweepResult, error)
}

// Scheduler triggers periodic auto-match and suggestion sweeps.
// A tick is skipped while the previous run of the same job is still going.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
}

// New registers both sweeps. Invalid cron specs are reported here, not at Start.
func New(cfg config.ScheduleConfig, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	logger = logger.Named("scheduler")
	cl := cronLogger{sugar: logger.Sugar()}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(cfg.AutoMatchCron, s.runAutoMatch); err != nil {
		return nil, fmt.Errorf("auto match schedule %q: %w", cfg.AutoMatchCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.SuggestionCron, s.runSuggestions); err != nil {
		return nil, fmt.Errorf("suggestion schedule %q: %w", cfg.SuggestionCron, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new ticks and waits for running sweeps until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runAutoMatch() {
	result, err := s.sweeper.AutoMatch(context.Background())
	switch {
	case errors.Is(err, service.ErrSweepInProgress):
		s.logger.Info("auto match tick skipped, sweep in progress")
	case err != nil:
		fields := []zap.Field{zap.Error(err)}
		if result != nil {
			fields = append(fields, zap.String("run_id", result.RunID), zap.Bool("aborted", result.Aborted))
		}
		s.logger.Error("scheduled auto match failed", fields...)
	default:
		s.logger.Info("scheduled auto match done",
			zap.String("run_id", result.RunID),
			zap.Int("matches_created", result.MatchesCreated),
		)
	}
}

func (s *Scheduler) runSuggestions() {
	result, err := s.sweeper.GenerateSuggestions(context.Background())
	switch {
	case errors.Is(err, service.ErrSweepInProgress):
		s.logger.Info("suggestion tick skipped, sweep in progress")
	case err != nil:
		fields := []zap.Field{zap.Error(err)}
		if result != nil {
			fields = append(fields,
				zap.String("run_id", result.RunID),
				zap.Int("suggestions_created", result.SuggestionsCreated),
			)
		}
		s.logger.Error("scheduled suggestion sweep failed", fields...)
	default:
		s.logger.Info("scheduled suggestion sweep done",
			zap.String("run_id", result.RunID),
			zap.Int("suggestions_created", result.SuggestionsCreated),
		)
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
