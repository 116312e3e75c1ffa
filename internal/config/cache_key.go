package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key holding the JTI of a student's active login.
func (r *CacheKeyStruct) StudentSessionKey(studentID int64) string {
	return fmt.Sprintf("login:%d", studentID)
}

// PendingLoginKey returns the cache key for a pending (OTP not yet verified) login.
func (r *CacheKeyStruct) PendingLoginKey(jti string) string {
	return fmt.Sprintf("login:pending:%s", jti)
}

// RateLimitKey returns the fixed-window counter key of a named limiter.
func (r *CacheKeyStruct) RateLimitKey(limiter, subject string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", limiter, subject, window)
}

var CacheKey = NewCacheKeyStruct()
