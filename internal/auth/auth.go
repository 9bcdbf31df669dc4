// Package auth keeps the signed-in user for the lifetime of a process.
package auth

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/sha3"

	"github.com/Semkufu95/confessions/internal/bus"
	"github.com/Semkufu95/confessions/internal/model"
)

// Store is the persisted side of the session.
type Store interface {
	Token(ctx context.Context) (string, error)
	User(ctx context.Context) (*model.User, error)
}

// Session mirrors the stored credentials in memory and drops them when
// bus.TopicLogout fires.
type Session struct {
	store Store
	log   *slog.Logger
	now   func() time.Time

	mu    sync.RWMutex
	token string
	user  *model.User

	unsubscribe func()
}

func NewSession(st Store, b *bus.Bus, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{store: st, log: log, now: time.Now}
	if b != nil {
		s.unsubscribe = b.Subscribe(bus.TopicLogout, s.forget)
	}
	return s
}

// Load reads the stored snapshot. A missing snapshot is not an error.
func (s *Session) Load(ctx context.Context) error {
	token, err := s.store.Token(ctx)
	if err != nil {
		return err
	}
	user, err := s.store.User(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	return nil
}

// Set records a fresh login. Persisting it is the caller's job.
func (s *Session) Set(token string, u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &u
}

// User returns the signed-in user. ok is false when signed out or the token
// has expired.
func (s *Session) User() (u model.User, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil || !s.validLocked() {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

// ExpiresAt reports the token's exp claim, if it carries one.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TokenExpiry(s.token)
}

// Fingerprint is a short, stable identifier for the current token that is
// safe to print or log.
func (s *Session) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return ""
	}
	sum := sha3.Sum256([]byte(s.token))
	return hex.EncodeToString(sum[:6])
}

func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Session) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" || s.user != nil {
		s.log.Info("session ended")
	}
	s.token = ""
	s.user = nil
}

func (s *Session) validLocked() bool {
	if s.token == "" {
		return false
	}
	exp, ok := TokenExpiry(s.token)
	return !ok || s.now().Before(exp)
}

// TokenExpiry reads the exp claim without verifying the signature; the
// backend stays the authority on validity. Opaque tokens report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
