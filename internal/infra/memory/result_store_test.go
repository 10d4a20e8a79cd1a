package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liver-quiz-service/internal/domain"
)

func seedResults(t *testing.T, store *ResultStore) {
	t.Helper()
	base := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	rows := []domain.QuizResult{
		{UserID: "u1", Correct: 9, Total: 10, Percentage: 90, CompletedAt: base},
		{UserID: "u2", Correct: 7, Total: 10, Percentage: 70, CompletedAt: base.Add(time.Hour)},
		{UserID: "u1", Correct: 6, Total: 10, Percentage: 60, CompletedAt: base.Add(2 * time.Hour)},
		{UserID: "u3", Correct: 9, Total: 10, Percentage: 90, CompletedAt: base.Add(3 * time.Hour)},
	}
	for _, r := range rows {
		_, err := store.Create(context.Background(), r)
		require.NoError(t, err)
	}
}

func TestResultStoreCreateIsIdempotent(t *testing.T) {
	store := NewResultStore()
	r := domain.QuizResult{UserID: "u1", Correct: 1, Total: 1, Percentage: 100, IdempotencyKey: "k1"}

	first, err := store.Create(context.Background(), r)
	require.NoError(t, err)
	second, err := store.Create(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	all, _ := store.ListAll(context.Background(), 0)
	assert.Len(t, all, 1)
}

func TestResultStoreTopPerformersTieBreak(t *testing.T) {
	store := NewResultStore()
	seedResults(t, store)

	top, err := store.ListTopPerformers(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "u3", top[0].UserID)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "u1", top[1].UserID)
	assert.Equal(t, 90, top[1].Percentage)
	assert.Equal(t, 3, top[2].Rank)
}

func TestResultStoreUserQueries(t *testing.T) {
	store := NewResultStore()
	seedResults(t, store)
	ctx := context.Background()

	history, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 60, history[0].Percentage)

	best, err := store.BestByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 90, best.Percentage)

	stats, err := store.UserStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAttempts)
	assert.Equal(t, 75, stats.AverageScore)

	none, err := store.BestByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
	empty, err := store.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
	noStats, err := store.UserStats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStats{}, noStats)
}

func TestResultStoreGlobalStats(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	zero, err := store.AggregateGlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.GlobalStats{}, zero)

	seedResults(t, store)
	stats, err := store.AggregateGlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalAttempts)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 78, stats.AverageScore)
	assert.Equal(t, 90, stats.BestScore)
	assert.Equal(t, 31, stats.TotalCorrectAnswers)
	assert.Equal(t, 40, stats.TotalQuestions)
	assert.InDelta(t, 1.33, stats.AverageAttemptsPerUser, 0.001)
}

func TestResultStoreRecentActivityLimit(t *testing.T) {
	store := NewResultStore()
	seedResults(t, store)

	recent, err := store.ListRecentActivity(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "u3", recent[0].UserID)
	assert.Equal(t, "u1", recent[1].UserID)
}
