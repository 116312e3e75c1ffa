package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/sms"
)

const (
	SMSPollTimeout = 1 * time.Second // Must be >= 1s to satisfy Redis
	SMSMaxAttempts = 3
	SMSRetryDelay  = 2 * time.Second
)

// SMSWorker consumes sms_outbox_queue and hands each message to the gateway.
type SMSWorker struct {
	rdb     *redis.Client
	gateway sms.Gateway
	log     zerolog.Logger
}

// NewSMSWorker creates a new SMSWorker.
func NewSMSWorker(rdb *redis.Client, gateway sms.Gateway, log zerolog.Logger) *SMSWorker {
	return &SMSWorker{
		rdb:     rdb,
		gateway: gateway,
		log:     log.With().Str("component", "sms_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *SMSWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SMSWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, SMSPollTimeout, config.WorkerKey.SMSOutboxQueue).Result()
	if err != nil {
		if err == redis.Nil || ctx.Err() != nil {
			return
		}
		w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
		time.Sleep(3 * time.Second)
		return
	}
	if len(result) < 2 {
		return
	}

	if retry := w.handle(ctx, result[1]); retry != nil {
		w.requeue(ctx, retry)
		time.Sleep(SMSRetryDelay)
	}
}

// handle delivers one raw queue item. It returns the payload to requeue, or
// nil when the item is done (sent, malformed, or out of attempts).
func (w *SMSWorker) handle(ctx context.Context, raw string) []byte {
	var msg sms.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed SMS payload")
		return nil
	}

	id, err := w.gateway.Send(ctx, msg.Phone, msg.Body)
	if err == nil {
		w.log.Debug().Str("phone", msg.Phone).Str("message_id", id).Msg("SMS sent")
		return nil
	}

	msg.Attempts++
	if msg.Attempts >= SMSMaxAttempts {
		w.log.Error().Err(err).Str("phone", msg.Phone).Int("attempts", msg.Attempts).Msg("Giving up on SMS")
		return nil
	}

	w.log.Warn().Err(err).Str("phone", msg.Phone).Int("attempts", msg.Attempts).Msg("SMS failed, requeueing")
	retry, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	return retry
}

// requeue pushes a failed message back onto the outbox. It reports whether
// the push succeeded; a failed push loses the message and is logged.
func (w *SMSWorker) requeue(ctx context.Context, payload []byte) bool {
	if err := w.rdb.RPush(ctx, config.WorkerKey.SMSOutboxQueue, payload).Err(); err != nil {
		w.log.Error().Err(err).Msg("Failed to requeue SMS, message lost")
		return false
	}
	return true
}

// drain delivers what is left in the queue before shutdown. Failures are
// pushed back for the next process start.
func (w *SMSWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.SMSOutboxQueue).Result()
		if err != nil {
			break
		}

		if retry := w.handle(ctx, raw); retry != nil {
			w.requeue(ctx, retry)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
