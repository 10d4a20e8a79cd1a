package memory

import (
	"fmt"
	"testing"
	"time"

	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/domain"
)

func newTestAttempt(id string) *app.Attempt {
	return app.NewAttempt(id, sampleQuiz(), domain.Identity{}, app.NewSubmissionFlow(id, NewResultStore(), nil, time.Second))
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore(0)

	store.Save(newTestAttempt("s1"))
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreExpiresIdleAttempts(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	store.Save(newTestAttempt("s1"))
	now = now.Add(30 * time.Second)
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session alive")
	}
	now = now.Add(50 * time.Second)
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("lookup should have refreshed the session")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected idle session to expire")
	}
	if store.Len() != 0 {
		t.Fatalf("expired session should be dropped")
	}
}

func TestSessionStoreSweepsAbandonedAttemptsOnSave(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		store.Save(newTestAttempt(fmt.Sprintf("s%d", i)))
	}
	now = now.Add(24 * time.Hour)
	store.Save(newTestAttempt("fresh"))

	if store.Len() != 1 {
		t.Fatalf("expected abandoned attempts swept, %d left", store.Len())
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Fatalf("expected fresh attempt kept")
	}
}

func TestSessionStoreWithoutTTLKeepsAttempts(t *testing.T) {
	store := NewSessionStore(0)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	store.Save(newTestAttempt("s1"))
	now = now.Add(24 * time.Hour)
	store.Save(newTestAttempt("s2"))

	if store.Len() != 2 {
		t.Fatalf("expected both attempts kept, got %d", store.Len())
	}
}
