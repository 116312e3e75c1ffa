package model

import "time"

// OneTimePasscode is a login passcode issued to a student's phone.
// Only the bcrypt hash of the code is persisted.
type OneTimePasscode struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	CodeHash   string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsVerified bool      `json:"is_verified"`
	Attempts   int       `json:"attempts"`
}

// IsExpired reports whether the passcode is past its expiry at now.
func (o *OneTimePasscode) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// OTPAction is the persistence step applied to a passcode after a verify
// decision, inside the same transaction that read it.
type OTPAction int

const (
	OTPActionNone OTPAction = iota
	OTPActionDelete
	OTPActionIncrementAttempts
	OTPActionMarkVerified
)
