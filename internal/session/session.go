// Package session keeps an unlocked master password in memory for a
// bounded idle period.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/google/uuid"
)

// ErrExpired is returned once a session has been idle longer than its
// timeout or has been closed.
var ErrExpired = errors.New("session expired")

// Session holds a copy of the master password. Any access after the idle
// timeout wipes the copy and fails with ErrExpired.
type Session struct {
	mu           sync.Mutex
	id           string
	secret       []byte
	timeout      time.Duration
	lastActivity time.Time
	now          func() time.Time
}

type Option func(*Session)

// WithClock overrides the session's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New starts a session for masterPassword. The caller keeps ownership of
// masterPassword; the session stores its own copy.
func New(masterPassword []byte, idleTimeout time.Duration, opts ...Option) *Session {
	secret := make([]byte, len(masterPassword))
	copy(secret, masterPassword)

	s := &Session{
		id:      uuid.NewString(),
		secret:  secret,
		timeout: idleTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActivity = s.now()
	return s
}

func (s *Session) ID() string { return s.id }

// MasterPassword returns a copy of the master password and counts as
// activity.
func (s *Session) MasterPassword() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked() {
		s.wipeLocked()
		return nil, ErrExpired
	}
	s.lastActivity = s.now()
	return append([]byte(nil), s.secret...), nil
}

// Touch records activity. It reports ErrExpired when the session already
// timed out.
func (s *Session) Touch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked() {
		s.wipeLocked()
		return ErrExpired
	}
	s.lastActivity = s.now()
	return nil
}

// Expired reports whether the session is closed or idle past its timeout.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiredLocked()
}

// Remaining returns the idle time left before expiry.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked() {
		return 0
	}
	return s.timeout - s.now().Sub(s.lastActivity)
}

// Close wipes the stored password. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
}

func (s *Session) expiredLocked() bool {
	return s.secret == nil || s.now().Sub(s.lastActivity) > s.timeout
}

func (s *Session) wipeLocked() {
	common.WipeByteArray(s.secret)
	s.secret = nil
}
