// Package scheduler runs the periodic settlement batch.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
)

type payoutRunner interface {
	ReleaseElapsed(ctx context.Context) (int, error)
	RunPayouts(ctx context.Context) (*models.PayoutRunResult, error)
}

// PayoutScheduler releases settlements whose evidence window elapsed and then pays out the
// ones that are due, once per interval.
type PayoutScheduler struct {
	runner   payoutRunner
	interval time.Duration
	logger   *zap.Logger
}

// NewPayoutScheduler constructs the scheduler. Non-positive intervals default to 15 minutes.
func NewPayoutScheduler(runner payoutRunner, interval time.Duration, logger *zap.Logger) *PayoutScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutScheduler{runner: runner, interval: interval, logger: logger.With(zap.String("component", "payout_scheduler"))}
}

// Start blocks until ctx is cancelled.
func (s *PayoutScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PayoutScheduler) tick(ctx context.Context) {
	released, err := s.runner.ReleaseElapsed(ctx)
	if err != nil {
		// a failed release still leaves earlier READY rows payable
		s.logger.Error("failed to release elapsed settlements", zap.Error(err))
	} else if released > 0 {
		s.logger.Info("settlements released", zap.Int("count", released))
	}

	result, err := s.runner.RunPayouts(ctx)
	if err != nil {
		s.logger.Error("payout run failed", zap.Error(err))
		return
	}
	if result.Settled == 0 && result.Failed == 0 {
		return
	}
	s.logger.Info("payout run finished",
		zap.Int("settled", result.Settled),
		zap.Int("failed", result.Failed),
		zap.String("total_usd", result.TotalUSD.StringFixed(2)),
	)
	for _, failure := range result.Failures {
		s.logger.Warn("settlement not paid",
			zap.String("booking_id", failure.BookingID),
			zap.String("code", failure.Code),
			zap.String("message", failure.Message),
		)
	}
}
