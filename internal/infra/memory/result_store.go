package memory

import (
	"context"
	"sort"
	"sync"

	"liver-quiz-service/internal/domain"
)

// ResultStore keeps quiz results in process. Used when no database is configured.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.QuizResult
	byKey   map[string]int64
	nextID  int64
}

func NewResultStore() *ResultStore {
	return &ResultStore{byKey: make(map[string]int64)}
}

// Create appends a result. Replaying an idempotency key returns the original id.
func (s *ResultStore) Create(ctx context.Context, result domain.QuizResult) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStoreError(domain.KindNetwork, "create", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.IdempotencyKey != "" {
		if id, ok := s.byKey[result.IdempotencyKey]; ok {
			return id, nil
		}
	}
	s.nextID++
	result.ID = s.nextID
	s.results = append(s.results, result)
	if result.IdempotencyKey != "" {
		s.byKey[result.IdempotencyKey] = result.ID
	}
	return result.ID, nil
}

func (s *ResultStore) ListByUser(_ context.Context, userID string) ([]domain.QuizResult, error) {
	out := s.filter(func(r domain.QuizResult) bool { return r.UserID == userID })
	domain.SortByRecency(out)
	return out, nil
}

func (s *ResultStore) BestByUser(_ context.Context, userID string) (*domain.QuizResult, error) {
	rows := s.filter(func(r domain.QuizResult) bool { return r.UserID == userID })
	if len(rows) == 0 {
		return nil, nil
	}
	domain.RankByPerformance(rows)
	best := rows[0]
	return &best, nil
}

func (s *ResultStore) ListAll(_ context.Context, limit int) ([]domain.QuizResult, error) {
	out := s.filter(nil)
	domain.SortByRecency(out)
	return truncate(out, limit), nil
}

func (s *ResultStore) ListTopPerformers(_ context.Context, limit int) ([]domain.RankedResult, error) {
	return domain.TopPerformers(s.filter(nil), limit), nil
}

func (s *ResultStore) ListRecentActivity(_ context.Context, limit int) ([]domain.QuizResult, error) {
	out := s.filter(nil)
	domain.SortByRecency(out)
	return truncate(out, limit), nil
}

func (s *ResultStore) AggregateGlobalStats(context.Context) (domain.GlobalStats, error) {
	return domain.AggregateGlobal(s.filter(nil)), nil
}

func (s *ResultStore) UserStats(_ context.Context, userID string) (domain.UserStats, error) {
	return domain.AggregateUser(s.filter(func(r domain.QuizResult) bool { return r.UserID == userID })), nil
}

// filter copies matching rows in insertion order (id asc).
func (s *ResultStore) filter(keep func(domain.QuizResult) bool) []domain.QuizResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizResult, 0, len(s.results))
	for _, r := range s.results {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func truncate(rows []domain.QuizResult, limit int) []domain.QuizResult {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
