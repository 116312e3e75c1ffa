package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert loses a race on a unique constraint.
	ErrConflict = errors.New("unique constraint conflict")
	// ErrAttemptClosed is returned when writing into an attempt that is already completed.
	ErrAttemptClosed = errors.New("exam attempt is completed")
	// ErrDuplicatePhone and ErrDuplicateEmail report registration collisions.
	ErrDuplicatePhone = errors.New("student with this phone already exists")
	ErrDuplicateEmail = errors.New("student with this email already exists")
)

const pgUniqueViolation = "23505"

// uniqueViolation returns the violated constraint name if err is a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
