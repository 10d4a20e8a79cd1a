package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/domain"
)

// scriptedCreator returns queued outcomes in order and can block until released.
type scriptedCreator struct {
	mu       sync.Mutex
	outcomes []error
	calls    []domain.QuizResult
	gate     chan struct{}
	nextID   int64
}

func (c *scriptedCreator) Create(ctx context.Context, r domain.QuizResult) (int64, error) {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, r)
	var err error
	if len(c.outcomes) > 0 {
		err = c.outcomes[0]
		c.outcomes = c.outcomes[1:]
	}
	if err != nil {
		return 0, err
	}
	c.nextID++
	return c.nextID, nil
}

func (c *scriptedCreator) Calls() []domain.QuizResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.QuizResult(nil), c.calls...)
}

type staleRecorder struct {
	app.NopObserver
	mu    sync.Mutex
	stale int
}

func (o *staleRecorder) StaleCompletion(string, uint64, error) {
	o.mu.Lock()
	o.stale++
	o.mu.Unlock()
}

func (o *staleRecorder) Stale() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stale
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not finish")
	}
}

func sampleRecord() domain.QuizResult {
	history := []domain.AnsweredQuestion{{QuestionID: 1, Correct: true}, {QuestionID: 2}, {QuestionID: 3, Correct: true}}
	return app.BuildResult(domain.Identity{UserID: "u1", Email: "ana@example.com"}, history, 3, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC), "key-1")
}

func TestBuildResult(t *testing.T) {
	r := sampleRecord()
	assert.Equal(t, "u1", r.UserID)
	assert.Equal(t, "ana@example.com", r.Email)
	assert.Equal(t, 2, r.Correct)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 67, r.Percentage)
	assert.Equal(t, "key-1", r.IdempotencyKey)
}

func TestSubmissionSucceeds(t *testing.T) {
	store := &scriptedCreator{}
	flow := app.NewSubmissionFlow("s1", store, nil, time.Second)

	wait(t, flow.Submit(context.Background(), sampleRecord()))

	state := flow.State()
	assert.Equal(t, app.SubmissionSucceeded, state.Status)
	assert.Equal(t, int64(1), state.ResultID)
	require.Len(t, store.Calls(), 1)
}

func TestSubmissionFailureThenRetryResendsSameRecord(t *testing.T) {
	netErr := domain.NewStoreError(domain.KindNetwork, "create", "connection refused", nil)
	store := &scriptedCreator{outcomes: []error{netErr, nil}}
	flow := app.NewSubmissionFlow("s1", store, nil, time.Second)

	wait(t, flow.Submit(context.Background(), sampleRecord()))
	state := flow.State()
	require.Equal(t, app.SubmissionFailed, state.Status)
	assert.Equal(t, domain.KindNetwork, state.Kind)
	assert.True(t, state.Retryable)

	done, err := flow.Retry(context.Background())
	require.NoError(t, err)
	wait(t, done)

	assert.Equal(t, app.SubmissionSucceeded, flow.State().Status)
	calls := store.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0], calls[1])
}

func TestSubmissionClassifiesUnknownErrors(t *testing.T) {
	store := &scriptedCreator{outcomes: []error{errors.New("boom")}}
	flow := app.NewSubmissionFlow("s1", store, nil, time.Second)

	wait(t, flow.Submit(context.Background(), sampleRecord()))
	state := flow.State()
	assert.Equal(t, domain.KindUnknown, state.Kind)
	assert.Equal(t, "boom", state.Message)
	assert.False(t, state.Retryable)
}

func TestRetryWithoutFailure(t *testing.T) {
	flow := app.NewSubmissionFlow("s1", &scriptedCreator{}, nil, time.Second)
	_, err := flow.Retry(context.Background())
	assert.ErrorIs(t, err, domain.ErrNothingToRetry)

	wait(t, flow.Submit(context.Background(), sampleRecord()))
	_, err = flow.Retry(context.Background())
	assert.ErrorIs(t, err, domain.ErrNothingToRetry)
}

func TestSecondSubmitIsNoop(t *testing.T) {
	store := &scriptedCreator{}
	flow := app.NewSubmissionFlow("s1", store, nil, time.Second)
	wait(t, flow.Submit(context.Background(), sampleRecord()))
	wait(t, flow.Submit(context.Background(), sampleRecord()))
	assert.Len(t, store.Calls(), 1)
}

func TestResetDropsInFlightCompletion(t *testing.T) {
	store := &scriptedCreator{gate: make(chan struct{})}
	observer := &staleRecorder{}
	flow := app.NewSubmissionFlow("s1", store, observer, time.Second)

	var notified int
	var mu sync.Mutex
	flow.OnAsyncUpdate(func(app.SubmissionState) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	done := flow.Submit(context.Background(), sampleRecord())
	assert.Equal(t, app.SubmissionSubmitting, flow.State().Status)

	flow.Reset()
	close(store.gate)
	wait(t, done)

	assert.Equal(t, app.SubmissionIdle, flow.State().Status)
	assert.Equal(t, 1, observer.Stale())
	_, ok := flow.Record()
	assert.False(t, ok)
	mu.Lock()
	assert.Zero(t, notified)
	mu.Unlock()
}

func TestSubmissionSurvivesCallerCancel(t *testing.T) {
	store := &scriptedCreator{}
	flow := app.NewSubmissionFlow("s1", store, nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wait(t, flow.Submit(ctx, sampleRecord()))
	assert.Equal(t, app.SubmissionSucceeded, flow.State().Status)
}
