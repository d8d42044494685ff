package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thiexam/thiexam-backend/internal/service"
)

// ExpiryWorker periodically finalizes overdue attempts. It is a coarse
// safety net: the lazy check on every student-facing read already enforces
// the deadline for anyone still interacting, the sweep catches attempts
// whose student walked away.
type ExpiryWorker struct {
	attempts *service.AttemptService
	interval time.Duration
	log      zerolog.Logger
}

func NewExpiryWorker(attempts *service.AttemptService, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		attempts: attempts,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopping")
			return
		case <-ticker.C:
			closed, err := w.attempts.SweepExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("Expiry sweep failed")
				continue
			}
			if closed > 0 {
				w.log.Info().Int("count", closed).Msg("Expired overdue attempts")
			}
		}
	}
}
