package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PassCodePurger deletes expired unverified passcodes.
type PassCodePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// OTPPurgeWorker periodically removes expired passcodes so the table only
// holds live challenges and verified audit rows.
type OTPPurgeWorker struct {
	purger   PassCodePurger
	interval time.Duration
	log      zerolog.Logger
}

// NewOTPPurgeWorker creates a new OTPPurgeWorker.
func NewOTPPurgeWorker(purger PassCodePurger, interval time.Duration, log zerolog.Logger) *OTPPurgeWorker {
	return &OTPPurgeWorker{
		purger:   purger,
		interval: interval,
		log:      log.With().Str("component", "otp_purge_worker").Logger(),
	}
}

// Start runs the purge loop until ctx is cancelled. Call in a goroutine.
func (w *OTPPurgeWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.purgeOnce(ctx)
		}
	}
}

func (w *OTPPurgeWorker) purgeOnce(ctx context.Context) int64 {
	n, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Purge failed")
		}
		return 0
	}
	if n > 0 {
		w.log.Info().Int64("count", n).Msg("Purged expired passcodes")
	}
	return n
}
