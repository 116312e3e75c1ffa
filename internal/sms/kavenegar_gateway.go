package sms

import (
	"context"
	"fmt"

	"github.com/kavenegar/kavenegar-go"
)

// KavenegarGateway sends plain text messages through the Kavenegar API.
type KavenegarGateway struct {
	api    *kavenegar.Kavenegar
	sender string
}

// NewKavenegarGateway creates a new KavenegarGateway.
func NewKavenegarGateway(apiKey, sender string) *KavenegarGateway {
	return &KavenegarGateway{
		api:    kavenegar.New(apiKey),
		sender: sender,
	}
}

func (g *KavenegarGateway) Send(_ context.Context, phone, message string) (string, error) {
	if phone == "" {
		return "", ErrEmptyRecipient
	}

	res, err := g.api.Message.Send(g.sender, []string{phone}, message, nil)
	if err != nil {
		switch err := err.(type) {
		case *kavenegar.APIError:
			return "", fmt.Errorf("kavenegar api error: %w", err)
		case *kavenegar.HTTPError:
			return "", fmt.Errorf("kavenegar http error: %w", err)
		default:
			return "", fmt.Errorf("send sms: %w", err)
		}
	}
	if len(res) == 0 {
		return "", fmt.Errorf("kavenegar returned no message entries")
	}

	return fmt.Sprintf("%d", res[0].MessageID), nil
}
