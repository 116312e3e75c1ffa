package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/scholarship-exam/internal/model"
)

// OTPRepository persists one-time passcodes.
type OTPRepository struct {
	pool *pgxpool.Pool
}

// NewOTPRepository creates a new OTPRepository.
func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

// Replace deletes every unverified passcode of the student and inserts otp,
// in one transaction.
func (r *OTPRepository) Replace(ctx context.Context, otp *model.OneTimePasscode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM one_time_passcodes WHERE student_id = $1 AND NOT is_verified`,
		otp.StudentID,
	); err != nil {
		return fmt.Errorf("delete pending passcodes: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO one_time_passcodes (student_id, code_hash, created_at, expires_at, is_verified, attempts)
		 VALUES ($1, $2, $3, $4, FALSE, 0)
		 RETURNING id`,
		otp.StudentID, otp.CodeHash, otp.CreatedAt, otp.ExpiresAt,
	).Scan(&otp.ID); err != nil {
		return fmt.Errorf("insert passcode: %w", err)
	}

	return tx.Commit(ctx)
}

// Resolve locks the student's most recently created unverified passcode,
// asks decide what to do with it and applies that action before committing.
// Concurrent callers for the same student are serialized on the row lock.
// Returns ErrNotFound if no unverified passcode exists.
func (r *OTPRepository) Resolve(ctx context.Context, studentID int64, decide func(*model.OneTimePasscode) model.OTPAction) (*model.OneTimePasscode, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	otp := &model.OneTimePasscode{}
	err = tx.QueryRow(ctx,
		`SELECT id, student_id, code_hash, created_at, expires_at, is_verified, attempts
		 FROM one_time_passcodes
		 WHERE student_id = $1 AND NOT is_verified
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1
		 FOR UPDATE`, studentID,
	).Scan(&otp.ID, &otp.StudentID, &otp.CodeHash, &otp.CreatedAt, &otp.ExpiresAt, &otp.IsVerified, &otp.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select passcode: %w", err)
	}

	switch decide(otp) {
	case model.OTPActionDelete:
		_, err = tx.Exec(ctx, `DELETE FROM one_time_passcodes WHERE id = $1`, otp.ID)
	case model.OTPActionIncrementAttempts:
		err = tx.QueryRow(ctx,
			`UPDATE one_time_passcodes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
			otp.ID,
		).Scan(&otp.Attempts)
	case model.OTPActionMarkVerified:
		_, err = tx.Exec(ctx, `UPDATE one_time_passcodes SET is_verified = TRUE WHERE id = $1`, otp.ID)
		otp.IsVerified = true
	}
	if err != nil {
		return nil, fmt.Errorf("apply passcode action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return otp, nil
}

// PurgeExpired deletes unverified passcodes that expired before now.
func (r *OTPRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM one_time_passcodes WHERE NOT is_verified AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
