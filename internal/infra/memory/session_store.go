package memory

import (
	"sync"
	"time"

	"liver-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Attempts not touched for ttl are dropped on lookup and swept on every Save;
// ttl <= 0 keeps them forever.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]*storedAttempt
}

type storedAttempt struct {
	attempt  *app.Attempt
	lastSeen time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*storedAttempt),
	}
}

func (s *SessionStore) Save(attempt *app.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.sweepLocked(now)
	s.sessions[attempt.ID()] = &storedAttempt{attempt: attempt, lastSeen: now}
}

func (s *SessionStore) Get(id string) (*app.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.clock()
	if s.expired(entry, now) {
		delete(s.sessions, id)
		return nil, false
	}
	entry.lastSeen = now
	return entry.attempt, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports how many attempts are held, including expired ones not yet swept.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(entry *storedAttempt, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastSeen) > s.ttl
}

// sweepLocked drops abandoned attempts. The caller holds s.mu.
func (s *SessionStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, entry := range s.sessions {
		if s.expired(entry, now) {
			delete(s.sessions, id)
		}
	}
}
