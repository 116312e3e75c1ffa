package sms

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
)

// ErrEmptyRecipient is returned when a message has no phone number.
var ErrEmptyRecipient = errors.New("sms: phone number is required")

// Gateway sends a single text message to a phone number.
type Gateway interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

// NewGateway returns the gateway named by cfg.Provider. An unknown provider
// or a kavenegar provider without an API key falls back to the log gateway.
func NewGateway(cfg config.SMSConfig, log zerolog.Logger) Gateway {
	log = log.With().Str("component", "sms_gateway").Logger()

	switch cfg.Provider {
	case "kavenegar":
		if cfg.APIKey == "" {
			log.Warn().Msg("SMS_PROVIDER is kavenegar but SMS_API_KEY is empty, using log gateway")
			return NewLogGateway(log)
		}
		log.Info().Str("sender", cfg.Sender).Msg("Using kavenegar SMS gateway")
		return NewKavenegarGateway(cfg.APIKey, cfg.Sender)
	case "", "log":
		return NewLogGateway(log)
	default:
		log.Warn().Str("provider", cfg.Provider).Msg("Unknown SMS provider, using log gateway")
		return NewLogGateway(log)
	}
}
