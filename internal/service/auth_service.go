package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
)

// TokenType distinguishes the two states of a login.
type TokenType string

const (
	// TokenTypePending is held between login and OTP verification.
	TokenTypePending TokenType = "pending"
	// TokenTypeStudent is the authenticated principal.
	TokenTypeStudent TokenType = "student"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    int64     `json:"user_id"`
}

// IdentityDirectory resolves students. Lookups return repository.ErrNotFound
// when no student matches.
type IdentityDirectory interface {
	FindByPhoneAndName(ctx context.Context, phone, name string) (*model.Student, error)
	GetByID(ctx context.Context, id int64) (*model.Student, error)
}

// SessionStore keeps pending logins and active token ids. ConsumePending must
// succeed for at most one caller per jti.
type SessionStore interface {
	SavePending(ctx context.Context, jti string, studentID int64, ttl time.Duration) error
	PendingStudent(ctx context.Context, jti string) (int64, error)
	ConsumePending(ctx context.Context, jti string) (int64, error)
	DropPending(ctx context.Context, jti string) error
	SaveActive(ctx context.Context, studentID int64, jti string, ttl time.Duration) error
	ActiveJTI(ctx context.Context, studentID int64) (string, error)
	DropActive(ctx context.Context, studentID int64) error
}

// LoginResult is returned when an OTP has been sent.
type LoginResult struct {
	PendingToken string    `json:"pending_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// VerifyResult is returned once the OTP is accepted.
type VerifyResult struct {
	Token   string         `json:"token"`
	Student *model.Student `json:"student"`
}

// AuthService gates exam access behind OTP verification. A login starts with
// a pending token and is escalated to a student token exactly once.
type AuthService struct {
	cfg       *config.Config
	directory IdentityDirectory
	otp       *OTPService
	sessions  SessionStore
	log       zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, directory IdentityDirectory, otp *OTPService, sessions SessionStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:       cfg,
		directory: directory,
		otp:       otp,
		sessions:  sessions,
		log:       log.With().Str("component", "auth_service").Logger(),
	}
}

// Login resolves the student by name and phone, sends an OTP and returns a
// pending token bound to that student.
func (s *AuthService) Login(ctx context.Context, name, phone string) (*LoginResult, error) {
	student, err := s.directory.FindByPhoneAndName(ctx, NormalizePhone(phone), strings.TrimSpace(name))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}

	otp, err := s.otp.Issue(ctx, student)
	if err != nil {
		return nil, err
	}

	jti := uuid.New().String()
	token, err := s.sign(jti, TokenTypePending, student.ID, otp.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SavePending(ctx, jti, student.ID, s.cfg.OTP.TTL); err != nil {
		return nil, fmt.Errorf("store pending login: %w", err)
	}

	return &LoginResult{PendingToken: token, ExpiresAt: otp.ExpiresAt}, nil
}

// VerifyOTP checks code for the login behind pendingToken. A wrong code leaves
// the pending login usable for another try. An expired or locked-out passcode
// ends it. A missing passcode leaves it alone: a duplicate submit of a code
// that was just verified must not cancel the login that verified it.
func (s *AuthService) VerifyOTP(ctx context.Context, pendingToken, code string) (*VerifyResult, error) {
	claims, err := s.ValidateToken(pendingToken)
	if err != nil || claims.TokenType != TokenTypePending {
		return nil, ErrSessionExpired
	}

	studentID, err := s.sessions.PendingStudent(ctx, claims.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && studentID != claims.UserID) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load pending login: %w", err)
	}

	if err := s.otp.Verify(ctx, studentID, code); err != nil {
		if errors.Is(err, ErrOTPExpired) || errors.Is(err, ErrTooManyAttempts) {
			if dropErr := s.sessions.DropPending(ctx, claims.ID); dropErr != nil {
				s.log.Warn().Err(dropErr).Msg("Failed to drop pending login")
			}
		}
		return nil, err
	}

	// Single consumption: a replayed pending token finds nothing here.
	if _, err := s.sessions.ConsumePending(ctx, claims.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("consume pending login: %w", err)
	}

	student, err := s.directory.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	token, err := s.GenerateStudentToken(ctx, studentID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("student_id", studentID).Msg("Student logged in")
	return &VerifyResult{Token: token, Student: student}, nil
}

// GenerateStudentToken mints a student token and records its JTI as the only
// valid one for the student. A newer verified login replaces an older one.
func (s *AuthService) GenerateStudentToken(ctx context.Context, studentID int64) (string, error) {
	jti := uuid.New().String()
	token, err := s.sign(jti, TokenTypeStudent, studentID, time.Now().Add(s.cfg.JWTExpiry))
	if err != nil {
		return "", err
	}

	if err := s.sessions.SaveActive(ctx, studentID, jti, s.cfg.JWTExpiry); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *AuthService) sign(jti string, typ TokenType, studentID int64, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(studentID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: typ,
		UserID:    studentID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateStudentSession checks that the token's JTI matches the active session.
func (s *AuthService) ValidateStudentSession(ctx context.Context, studentID int64, jti string) error {
	stored, err := s.sessions.ActiveJTI(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errors.New("no active session")
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return errors.New("session invalidated")
	}
	return nil
}

// Logout ends the student's active session.
func (s *AuthService) Logout(ctx context.Context, studentID int64) error {
	return s.sessions.DropActive(ctx, studentID)
}

// Student returns the profile of an authenticated student.
func (s *AuthService) Student(ctx context.Context, studentID int64) (*model.Student, error) {
	student, err := s.directory.GetByID(ctx, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return student, err
}
