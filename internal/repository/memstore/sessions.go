package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/scholarship-exam/internal/repository"
)

type entry struct {
	value   string
	expires time.Time
}

// Sessions is an in-memory SessionStore with key expiry.
type Sessions struct {
	mu   sync.Mutex
	now  func() time.Time
	keys map[string]entry
}

// NewSessions creates an empty session store using the wall clock.
func NewSessions() *Sessions {
	return &Sessions{now: time.Now, keys: map[string]entry{}}
}

// SetClock replaces the clock used for expiry.
func (s *Sessions) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Sessions) set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = entry{value: value, expires: s.now().Add(ttl)}
}

func (s *Sessions) get(key string, del bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.keys[key]
	if !ok {
		return "", false
	}
	if !s.now().Before(e.expires) {
		delete(s.keys, key)
		return "", false
	}
	if del {
		delete(s.keys, key)
	}
	return e.value, true
}

func (s *Sessions) del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

func pendingKey(jti string) string { return "pending:" + jti }
func activeKey(id int64) string    { return "active:" + itoa(id) }

func (s *Sessions) SavePending(_ context.Context, jti string, studentID int64, ttl time.Duration) error {
	s.set(pendingKey(jti), itoa(studentID), ttl)
	return nil
}

func (s *Sessions) PendingStudent(_ context.Context, jti string) (int64, error) {
	v, ok := s.get(pendingKey(jti), false)
	if !ok {
		return 0, repository.ErrNotFound
	}
	return atoi(v), nil
}

func (s *Sessions) ConsumePending(_ context.Context, jti string) (int64, error) {
	v, ok := s.get(pendingKey(jti), true)
	if !ok {
		return 0, repository.ErrNotFound
	}
	return atoi(v), nil
}

func (s *Sessions) DropPending(_ context.Context, jti string) error {
	s.del(pendingKey(jti))
	return nil
}

func (s *Sessions) SaveActive(_ context.Context, studentID int64, jti string, ttl time.Duration) error {
	s.set(activeKey(studentID), jti, ttl)
	return nil
}

func (s *Sessions) ActiveJTI(_ context.Context, studentID int64) (string, error) {
	v, ok := s.get(activeKey(studentID), false)
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (s *Sessions) DropActive(_ context.Context, studentID int64) error {
	s.del(activeKey(studentID))
	return nil
}

// HasPending reports whether a pending login is still stored under jti.
func (s *Sessions) HasPending(jti string) bool {
	_, ok := s.get(pendingKey(jti), false)
	return ok
}
