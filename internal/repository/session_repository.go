package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/scholarship-exam/internal/config"
)

// SessionRepository keeps login state in Redis: pending logins waiting for an
// OTP and the JTI of each student's active token.
type SessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

// SavePending records a pending login for studentID under jti.
func (r *SessionRepository) SavePending(ctx context.Context, jti string, studentID int64, ttl time.Duration) error {
	return r.rdb.Set(ctx, config.CacheKey.PendingLoginKey(jti), studentID, ttl).Err()
}

// PendingStudent returns the student bound to a pending login without consuming it.
func (r *SessionRepository) PendingStudent(ctx context.Context, jti string) (int64, error) {
	val, err := r.rdb.Get(ctx, config.CacheKey.PendingLoginKey(jti)).Result()
	return parseStudentID(val, err)
}

// ConsumePending atomically reads and deletes a pending login.
// Only one caller can ever consume a given jti.
func (r *SessionRepository) ConsumePending(ctx context.Context, jti string) (int64, error) {
	val, err := r.rdb.GetDel(ctx, config.CacheKey.PendingLoginKey(jti)).Result()
	return parseStudentID(val, err)
}

// DropPending discards a pending login.
func (r *SessionRepository) DropPending(ctx context.Context, jti string) error {
	return r.rdb.Del(ctx, config.CacheKey.PendingLoginKey(jti)).Err()
}

// SaveActive stores jti as the student's only valid token id.
func (r *SessionRepository) SaveActive(ctx context.Context, studentID int64, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, config.CacheKey.StudentSessionKey(studentID), jti, ttl).Err()
}

// ActiveJTI returns the JTI of the student's active token.
func (r *SessionRepository) ActiveJTI(ctx context.Context, studentID int64) (string, error) {
	val, err := r.rdb.Get(ctx, config.CacheKey.StudentSessionKey(studentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

// DropActive removes the student's active session.
func (r *SessionRepository) DropActive(ctx context.Context, studentID int64) error {
	return r.rdb.Del(ctx, config.CacheKey.StudentSessionKey(studentID)).Err()
}

func parseStudentID(val string, err error) (int64, error) {
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}
