package sms

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
)

// Message is one queued outbound text. Attempts counts failed deliveries.
type Message struct {
	Phone    string `json:"phone"`
	Body     string `json:"body"`
	Attempts int    `json:"attempts"`
}

// QueueNotifier pushes messages onto the SMS outbox queue for the worker to
// deliver. Send never blocks on the provider and never fails the caller.
type QueueNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewQueueNotifier creates a new QueueNotifier.
func NewQueueNotifier(rdb *redis.Client, log zerolog.Logger) *QueueNotifier {
	return &QueueNotifier{
		rdb: rdb,
		log: log.With().Str("component", "sms_notifier").Logger(),
	}
}

// Send enqueues message for phone. Failures are logged, not returned.
func (n *QueueNotifier) Send(ctx context.Context, phone, message string) {
	raw, err := json.Marshal(Message{Phone: phone, Body: message})
	if err != nil {
		n.log.Error().Err(err).Msg("Failed to encode SMS")
		return
	}

	if err := n.rdb.RPush(ctx, config.WorkerKey.SMSOutboxQueue, raw).Err(); err != nil {
		n.log.Error().Err(err).Str("phone", phone).Msg("Failed to enqueue SMS")
	}
}
