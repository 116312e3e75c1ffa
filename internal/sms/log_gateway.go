package sms

import (
	"context"

	"github.com/rs/zerolog"
)

// LogGateway writes messages to the log instead of sending them.
// Used in development and when no provider is configured.
type LogGateway struct {
	log zerolog.Logger
}

// NewLogGateway creates a new LogGateway.
func NewLogGateway(log zerolog.Logger) *LogGateway {
	return &LogGateway{log: log}
}

func (g *LogGateway) Send(_ context.Context, phone, message string) (string, error) {
	if phone == "" {
		return "", ErrEmptyRecipient
	}
	g.log.Info().Str("phone", phone).Str("message", message).Msg("[SMS MOCK]")
	return "", nil
}
