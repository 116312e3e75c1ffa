package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"golang.org/x/crypto/bcrypt"
)

type sentSMS struct {
	phone   string
	message string
}

// recordingNotifier captures every message instead of sending it.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentSMS
}

func (n *recordingNotifier) Send(_ context.Context, phone, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentSMS{phone: phone, message: message})
}

func (n *recordingNotifier) last() sentSMS {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentSMS{}
	}
	return n.sent[len(n.sent)-1]
}

// firstN is a deterministic Sampler that keeps bank order.
type firstN struct{}

func (firstN) Sample(ids []int64, n int) []int64 {
	return append([]int64(nil), ids[:min(n, len(ids))]...)
}

func testOTPConfig() config.OTPConfig {
	return config.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 5, HashCost: bcrypt.MinCost}
}

func fixedCode(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}

var nopLog = zerolog.Nop()

func itoaTest(n int64) string { return strconv.FormatInt(n, 10) }
