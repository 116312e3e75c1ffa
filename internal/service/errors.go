package service

import (
	"errors"
	"sort"
	"strings"
)

// Domain errors. Handlers translate these into response codes.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid name or phone number")
	ErrSessionExpired     = errors.New("login session expired")

	ErrOTPNotFound     = errors.New("otp not found")
	ErrOTPExpired      = errors.New("otp expired")
	ErrOTPMismatch     = errors.New("invalid otp")
	ErrTooManyAttempts = errors.New("too many invalid otp attempts")

	ErrNoActiveAttempt  = errors.New("no active exam attempt")
	ErrAttemptCompleted = errors.New("exam attempt already completed")
	ErrNoQuestions      = errors.New("question bank is empty")
)

// ValidationError carries per-field messages. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
