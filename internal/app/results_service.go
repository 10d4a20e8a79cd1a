package app

import (
	"context"

	"golang.org/x/sync/errgroup"
	"liver-quiz-service/internal/domain"
)

// ResultStore is the full result persistence contract. Every failure is a *domain.StoreError.
type ResultStore interface {
	ResultCreator
	ListByUser(ctx context.Context, userID string) ([]domain.QuizResult, error)
	BestByUser(ctx context.Context, userID string) (*domain.QuizResult, error)
	ListAll(ctx context.Context, limit int) ([]domain.QuizResult, error)
	ListTopPerformers(ctx context.Context, limit int) ([]domain.RankedResult, error)
	ListRecentActivity(ctx context.Context, limit int) ([]domain.QuizResult, error)
	AggregateGlobalStats(ctx context.Context) (domain.GlobalStats, error)
	UserStats(ctx context.Context, userID string) (domain.UserStats, error)
}

// Section is one independently loaded region of a results view.
type Section[T any] struct {
	Data T
	Err  *domain.StoreError
}

// OK reports whether the section loaded.
func (s Section[T]) OK() bool {
	return s.Err == nil
}

// PublicResults is the combined leaderboard page.
type PublicResults struct {
	TopPerformers  Section[[]domain.RankedResult]
	RecentActivity Section[[]domain.QuizResult]
	GlobalStats    Section[domain.GlobalStats]
}

// UserHistory is a signed-in user's own results page.
type UserHistory struct {
	Results Section[[]domain.QuizResult]
	Stats   Section[domain.UserStats]
	Best    Section[*domain.QuizResult]
}

// Limits are the default page sizes for list views.
type Limits struct {
	Top    int
	Recent int
	All    int
}

// DefaultLimits matches the leaderboard and history pages.
var DefaultLimits = Limits{Top: 15, Recent: 20, All: 50}

const maxLimit = 100

// ResultsService serves the read-only result views.
type ResultsService struct {
	store    ResultStore
	limits   Limits
	observer Observer
}

func NewResultsService(store ResultStore, limits Limits, observer Observer) *ResultsService {
	if limits.Top <= 0 {
		limits.Top = DefaultLimits.Top
	}
	if limits.Recent <= 0 {
		limits.Recent = DefaultLimits.Recent
	}
	if limits.All <= 0 {
		limits.All = DefaultLimits.All
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &ResultsService{store: store, limits: limits, observer: observer}
}

// Limits returns the effective default page sizes.
func (s *ResultsService) Limits() Limits {
	return s.limits
}

// PublicResults loads the three leaderboard sections concurrently. A failing
// section carries its own error and never hides the others.
func (s *ResultsService) PublicResults(ctx context.Context, top, recent int) PublicResults {
	var out PublicResults
	var g errgroup.Group
	g.Go(func() error {
		out.TopPerformers = s.TopPerformers(ctx, top)
		return nil
	})
	g.Go(func() error {
		out.RecentActivity = s.RecentActivity(ctx, recent)
		return nil
	})
	g.Go(func() error {
		out.GlobalStats = s.GlobalStats(ctx)
		return nil
	})
	_ = g.Wait()
	return out
}

func (s *ResultsService) TopPerformers(ctx context.Context, limit int) Section[[]domain.RankedResult] {
	data, err := s.store.ListTopPerformers(ctx, clampLimit(limit, s.limits.Top))
	return section(s.observer, "list top performers", data, err)
}

func (s *ResultsService) RecentActivity(ctx context.Context, limit int) Section[[]domain.QuizResult] {
	data, err := s.store.ListRecentActivity(ctx, clampLimit(limit, s.limits.Recent))
	return section(s.observer, "list recent activity", data, err)
}

func (s *ResultsService) GlobalStats(ctx context.Context) Section[domain.GlobalStats] {
	data, err := s.store.AggregateGlobalStats(ctx)
	return section(s.observer, "aggregate global stats", data, err)
}

func (s *ResultsService) AllResults(ctx context.Context, limit int) Section[[]domain.QuizResult] {
	data, err := s.store.ListAll(ctx, clampLimit(limit, s.limits.All))
	return section(s.observer, "list all", data, err)
}

// Export returns every stored result, newest first.
func (s *ResultsService) Export(ctx context.Context) ([]domain.QuizResult, error) {
	rows, err := s.store.ListAll(ctx, 0)
	if err != nil {
		s.observer.StoreFailure("export", err)
		return nil, domain.AsStoreError("export", err)
	}
	return rows, nil
}

// History loads the caller's results, stats and best attempt. It never queries
// the store for an anonymous identity.
func (s *ResultsService) History(ctx context.Context, identity domain.Identity) (UserHistory, error) {
	if !identity.Authenticated() {
		return UserHistory{}, domain.ErrNotAuthenticated
	}
	var out UserHistory
	var g errgroup.Group
	g.Go(func() error {
		data, err := s.store.ListByUser(ctx, identity.UserID)
		out.Results = section(s.observer, "list by user", data, err)
		return nil
	})
	g.Go(func() error {
		data, err := s.store.UserStats(ctx, identity.UserID)
		out.Stats = section(s.observer, "user stats", data, err)
		return nil
	})
	g.Go(func() error {
		data, err := s.store.BestByUser(ctx, identity.UserID)
		out.Best = section(s.observer, "best by user", data, err)
		return nil
	})
	_ = g.Wait()
	return out, nil
}

// UserStats loads only the caller's aggregate stats.
func (s *ResultsService) UserStats(ctx context.Context, identity domain.Identity) (Section[domain.UserStats], error) {
	if !identity.Authenticated() {
		return Section[domain.UserStats]{}, domain.ErrNotAuthenticated
	}
	data, err := s.store.UserStats(ctx, identity.UserID)
	return section(s.observer, "user stats", data, err), nil
}

// Best loads only the caller's best attempt; Data is nil before the first one.
func (s *ResultsService) Best(ctx context.Context, identity domain.Identity) (Section[*domain.QuizResult], error) {
	if !identity.Authenticated() {
		return Section[*domain.QuizResult]{}, domain.ErrNotAuthenticated
	}
	data, err := s.store.BestByUser(ctx, identity.UserID)
	return section(s.observer, "best by user", data, err), nil
}

func section[T any](observer Observer, op string, data T, err error) Section[T] {
	if err != nil {
		observer.StoreFailure(op, err)
		var zero T
		return Section[T]{Data: zero, Err: domain.AsStoreError(op, err)}
	}
	return Section[T]{Data: data}
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
