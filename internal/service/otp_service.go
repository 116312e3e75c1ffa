package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// OTPStore persists passcodes. Resolve must run decide and apply its action
// atomically with respect to other Resolve calls for the same student.
type OTPStore interface {
	Replace(ctx context.Context, otp *model.OneTimePasscode) error
	Resolve(ctx context.Context, studentID int64, decide func(*model.OneTimePasscode) model.OTPAction) (*model.OneTimePasscode, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Notifier delivers a text message to a phone. Delivery is best effort;
// implementations report failures through their own logging.
type Notifier interface {
	Send(ctx context.Context, phone, message string)
}

// OTPService issues and verifies one-time login passcodes.
type OTPService struct {
	store    OTPStore
	notifier Notifier
	cfg      config.OTPConfig
	log      zerolog.Logger

	now     func() time.Time
	newCode func() (string, error)
}

// NewOTPService creates a new OTPService.
func NewOTPService(store OTPStore, notifier Notifier, cfg config.OTPConfig, log zerolog.Logger) *OTPService {
	return &OTPService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "otp_service").Logger(),
		now:      time.Now,
		newCode:  generateCode,
	}
}

// generateCode returns a uniformly random six-digit code in 100000–999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// Issue replaces any unverified passcode of the student with a fresh one and
// texts the code to the student's phone.
func (s *OTPService) Issue(ctx context.Context, student *model.Student) (*model.OneTimePasscode, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	now := s.now()
	otp := &model.OneTimePasscode{
		StudentID: student.ID,
		CodeHash:  string(hash),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.store.Replace(ctx, otp); err != nil {
		return nil, fmt.Errorf("store passcode: %w", err)
	}

	minutes := int(s.cfg.TTL / time.Minute)
	s.notifier.Send(ctx, student.Phone,
		fmt.Sprintf("Your OTP for exam login is %s. Valid for %d minutes.", code, minutes))

	s.log.Info().Int64("student_id", student.ID).Int64("otp_id", otp.ID).Msg("OTP issued")
	return otp, nil
}

// Verify checks code against the student's most recently issued unverified
// passcode. Expiry and the attempt ceiling are checked before the code, so a
// correct code never rescues an exhausted or expired passcode.
func (s *OTPService) Verify(ctx context.Context, studentID int64, code string) error {
	var verdict error

	otp, err := s.store.Resolve(ctx, studentID, func(otp *model.OneTimePasscode) model.OTPAction {
		switch {
		case otp.IsExpired(s.now()):
			verdict = ErrOTPExpired
			return model.OTPActionDelete
		case otp.Attempts >= s.cfg.MaxAttempts:
			verdict = ErrTooManyAttempts
			return model.OTPActionDelete
		case bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil:
			verdict = ErrOTPMismatch
			return model.OTPActionIncrementAttempts
		default:
			verdict = nil
			return model.OTPActionMarkVerified
		}
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("resolve passcode: %w", err)
	}

	if verdict != nil {
		s.log.Warn().Int64("student_id", studentID).Int("attempts", otp.Attempts).
			Str("reason", verdict.Error()).Msg("OTP rejected")
	}
	return verdict
}

// PurgeExpired deletes unverified passcodes past their expiry.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.PurgeExpired(ctx, s.now())
}
