package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"liver-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Attempts live in a local map so the in-process broadcast keeps working;
// Redis carries a liveness key per attempt whose TTL is refreshed on every
// lookup. Once the key expires the attempt is dropped locally as well.
// An attempt saved while Redis was unreachable has no key yet; it gets one on
// the first lookup after Redis recovers.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	attempt  *app.Attempt
	marked   bool
	lastSeen time.Time
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*entry),
	}
}

func (s *SessionStore) Save(attempt *app.Attempt) {
	marked := s.mark(attempt)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.sweepLocked(now)
	s.sessions[attempt.ID()] = &entry{attempt: attempt, marked: marked, lastSeen: now}
}

func (s *SessionStore) Get(id string) (*app.Attempt, bool) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok && s.idle(e, s.clock()) {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	if s.ttl <= 0 {
		return e.attempt, true
	}

	alive, err := s.client.Expire(context.Background(), s.key(id), s.ttl).Result()
	switch {
	case err != nil:
		// Redis unavailable: trust the local copy.
		s.touch(id, false)
	case alive:
		s.touch(id, true)
	case !s.wasMarked(id):
		s.touch(id, s.mark(e.attempt))
	default:
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, false
	}
	return e.attempt, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

// Len reports how many attempts are held locally.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) mark(attempt *app.Attempt) bool {
	return s.client.Set(context.Background(), s.key(attempt.ID()), attempt.QuizID(), s.ttl).Err() == nil
}

func (s *SessionStore) wasMarked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return ok && e.marked
}

// touch refreshes the local idle clock; marked only ever flips to true.
func (s *SessionStore) touch(id string, marked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.lastSeen = s.clock()
		e.marked = e.marked || marked
	}
}

// idle reports whether an attempt outlived the ttl locally, which also covers
// attempts whose key expired in Redis without a lookup.
func (s *SessionStore) idle(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

func (s *SessionStore) sweepLocked(now time.Time) {
	for id, e := range s.sessions {
		if s.idle(e, now) {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
