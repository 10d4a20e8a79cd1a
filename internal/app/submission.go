package app

import (
	"context"
	"sync"
	"time"

	"liver-quiz-service/internal/domain"
)

// SubmissionStatus is the save-to-profile indicator shown after a completed attempt.
type SubmissionStatus string

const (
	SubmissionIdle       SubmissionStatus = "idle"
	SubmissionSubmitting SubmissionStatus = "submitting"
	SubmissionSucceeded  SubmissionStatus = "succeeded"
	SubmissionFailed     SubmissionStatus = "failed"
)

// SubmissionState is a point-in-time view of a SubmissionFlow.
type SubmissionState struct {
	Status    SubmissionStatus `json:"status"`
	ResultID  int64            `json:"resultId,omitempty"`
	Kind      domain.ErrorKind `json:"kind,omitempty"`
	Message   string           `json:"message,omitempty"`
	Retryable bool             `json:"retryable,omitempty"`
}

// ResultCreator is the write half of the result store.
type ResultCreator interface {
	Create(ctx context.Context, result domain.QuizResult) (int64, error)
}

// BuildResult assembles the record persisted for a completed attempt.
func BuildResult(identity domain.Identity, history []domain.AnsweredQuestion, total int, completedAt time.Time, key string) domain.QuizResult {
	correct := 0
	for _, a := range history {
		if a.Correct {
			correct++
		}
	}
	return domain.QuizResult{
		UserID:         identity.UserID,
		Email:          identity.Email,
		Correct:        correct,
		Total:          total,
		Percentage:     domain.Percentage(correct, total),
		CompletedAt:    completedAt,
		IdempotencyKey: key,
	}
}

// SubmissionFlow persists one attempt's result and tracks the outcome.
// Completions from before the latest Reset are discarded.
type SubmissionFlow struct {
	sessionID string
	store     ResultCreator
	observer  Observer
	clock     func() time.Time
	timeout   time.Duration

	mu         sync.Mutex
	generation uint64
	state      SubmissionState
	record     *domain.QuizResult
	listener   func(SubmissionState)
}

func NewSubmissionFlow(sessionID string, store ResultCreator, observer Observer, timeout time.Duration) *SubmissionFlow {
	if observer == nil {
		observer = NopObserver{}
	}
	return &SubmissionFlow{
		sessionID: sessionID,
		store:     store,
		observer:  observer,
		clock:     time.Now,
		timeout:   timeout,
		state:     SubmissionState{Status: SubmissionIdle},
	}
}

// OnAsyncUpdate registers a callback for completions delivered by the background write.
// It is never invoked synchronously from Submit, Retry or Reset.
func (f *SubmissionFlow) OnAsyncUpdate(fn func(SubmissionState)) {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
}

// Submit starts the write for record. The returned channel closes once the outcome
// has been applied or discarded. A second Submit in the same generation is a no-op
// unless the previous one failed.
func (f *SubmissionFlow) Submit(ctx context.Context, record domain.QuizResult) <-chan struct{} {
	f.mu.Lock()
	if f.record != nil && f.state.Status != SubmissionFailed {
		f.mu.Unlock()
		return closedChan()
	}
	f.record = &record
	f.mu.Unlock()
	return f.start(ctx, record)
}

// Retry re-sends the same built record after a failure.
func (f *SubmissionFlow) Retry(ctx context.Context) (<-chan struct{}, error) {
	f.mu.Lock()
	if f.state.Status != SubmissionFailed || f.record == nil {
		f.mu.Unlock()
		return nil, domain.ErrNothingToRetry
	}
	record := *f.record
	f.mu.Unlock()
	return f.start(ctx, record), nil
}

// Reset forgets the current record; any in-flight write becomes stale.
func (f *SubmissionFlow) Reset() {
	f.mu.Lock()
	f.generation++
	f.state = SubmissionState{Status: SubmissionIdle}
	f.record = nil
	f.mu.Unlock()
}

// State returns the current submission state.
func (f *SubmissionFlow) State() SubmissionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Record returns the built record, if any.
func (f *SubmissionFlow) Record() (domain.QuizResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record == nil {
		return domain.QuizResult{}, false
	}
	return *f.record, true
}

func (f *SubmissionFlow) start(ctx context.Context, record domain.QuizResult) <-chan struct{} {
	f.mu.Lock()
	generation := f.generation
	f.state = SubmissionState{Status: SubmissionSubmitting}
	f.mu.Unlock()

	// The write outlives the request that triggered it.
	writeCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if f.timeout > 0 {
		writeCtx, cancel = context.WithTimeout(writeCtx, f.timeout)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		started := f.clock()
		id, err := f.store.Create(writeCtx, record)
		f.complete(generation, id, err, f.clock().Sub(started))
	}()
	return done
}

func (f *SubmissionFlow) complete(generation uint64, id int64, err error, elapsed time.Duration) {
	f.mu.Lock()
	if generation != f.generation {
		f.mu.Unlock()
		f.observer.StaleCompletion(f.sessionID, generation, err)
		return
	}
	if err != nil {
		se := domain.AsStoreError("create", err)
		f.state = SubmissionState{
			Status:    SubmissionFailed,
			Kind:      se.Kind,
			Message:   se.Message,
			Retryable: se.Retryable(),
		}
	} else {
		f.state = SubmissionState{Status: SubmissionSucceeded, ResultID: id}
	}
	state := f.state
	listener := f.listener
	f.mu.Unlock()

	f.observer.SubmissionFinished(f.sessionID, generation, err, elapsed)
	if listener != nil {
		listener(state)
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
