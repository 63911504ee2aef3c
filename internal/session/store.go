// Package session keeps one cart ledger per shopper session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/korjavin/tienda/internal/cart"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

type session struct {
	mu       sync.Mutex
	ledger   *cart.Ledger
	lastSeen time.Time
}

// Store maps session ids to ledgers. Ledgers are not safe for concurrent use,
// so every access goes through With, which holds that session's lock.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore returns an empty Store. Sessions untouched for idleTTL are dropped
// the next time a session is created; zero keeps them until Delete.
func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Create starts a session with an empty ledger and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.sessions[id] = &session{ledger: cart.NewLedger(), lastSeen: now}
	return id
}

// With runs fn with the session's ledger while holding the session lock.
func (s *Store) With(id string, fn func(l *cart.Ledger) error) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// The session may have been pruned or deleted before its lock was taken.
	s.mu.Lock()
	live := s.sessions[id] == sess
	s.mu.Unlock()
	if !live {
		return ErrNotFound
	}

	sess.lastSeen = s.now()
	return fn(sess.ledger)
}

// Delete discards a session and its ledger.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) pruneLocked(now time.Time) {
	if s.idleTTL <= 0 {
		return
	}
	for id, sess := range s.sessions {
		// A busy session holds its lock; leave it for the next round.
		if !sess.mu.TryLock() {
			continue
		}
		idle := now.Sub(sess.lastSeen) > s.idleTTL
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
		}
	}
}
