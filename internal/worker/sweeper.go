package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// OverdueMarker flags installments past their due date.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

// OverdueSweeper runs the overdue check on a fixed interval.
type OverdueSweeper struct {
	billing  OverdueMarker
	interval time.Duration
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewOverdueSweeper(billing OverdueMarker, interval time.Duration, logger *zerolog.Logger) *OverdueSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &OverdueSweeper{billing: billing, interval: interval, logger: logger, now: time.Now}
}

func (s *OverdueSweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("overdue sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	n, err := s.billing.MarkOverdue(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("count", n).Msg("installments marked overdue")
	}
}
