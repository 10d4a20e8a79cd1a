package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"liver-quiz-service/internal/domain"
)

// SessionRepository abstracts where live attempts are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(attempt *Attempt)
	Get(id string) (*Attempt, bool)
	Delete(id string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizService drives quiz attempts and hands completed ones to the submission flow.
type QuizService struct {
	sessions      SessionRepository
	quizzes       QuizRepository
	results       ResultCreator
	observer      Observer
	now           func() time.Time
	newID         func() string
	submitTimeout time.Duration
}

// Option customises a QuizService.
type Option func(*QuizService)

func WithObserver(o Observer) Option {
	return func(s *QuizService) { s.observer = o }
}

// WithClock is used by tests for deterministic completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *QuizService) { s.newID = fn }
}

func WithSubmitTimeout(d time.Duration) Option {
	return func(s *QuizService) { s.submitTimeout = d }
}

func NewQuizService(sessions SessionRepository, quizzes QuizRepository, results ResultCreator, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:      sessions,
		quizzes:       quizzes,
		results:       results,
		observer:      NopObserver{},
		now:           time.Now,
		newID:         uuid.NewString,
		submitTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the quiz and opens a new attempt at its first question.
func (s *QuizService) Start(ctx context.Context, quizID string, identity domain.Identity) (Snapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Snapshot{}, err
	}
	if len(quiz.Questions) == 0 {
		return Snapshot{}, fmt.Errorf("%w: quiz %s has no questions", domain.ErrInvalidQuiz, quizID)
	}

	id := s.newID()
	attempt := NewAttempt(id, quiz, identity, NewSubmissionFlow(id, s.results, s.observer, s.submitTimeout))
	s.sessions.Save(attempt)

	attempt.mu.Lock()
	defer attempt.mu.Unlock()
	return attempt.snapshotLocked(), nil
}

// Answer locks in an option for the current question.
func (s *QuizService) Answer(_ context.Context, sessionID string, index int) (Snapshot, error) {
	return s.mutate(sessionID, func(a *Attempt) error {
		_, err := a.session.SelectAnswer(index)
		return err
	})
}

// Advance moves past the explanation. The call that completes the attempt
// starts the result submission for signed-in users.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (Snapshot, error) {
	return s.mutate(sessionID, func(a *Attempt) error {
		completed, err := a.session.Advance()
		if err != nil || !completed || !a.identity.Authenticated() {
			return err
		}
		record := BuildResult(a.identity, a.session.History(), a.session.QuestionCount(), s.now(), uuid.NewString())
		a.pending = a.flow.Submit(ctx, record)
		return nil
	})
}

// Restart discards the attempt's progress and any pending submission outcome.
func (s *QuizService) Restart(_ context.Context, sessionID string) (Snapshot, error) {
	return s.mutate(sessionID, func(a *Attempt) error {
		a.session.Restart()
		a.flow.Reset()
		a.pending = nil
		return nil
	})
}

// RetrySubmission re-sends the failed result of a completed attempt.
func (s *QuizService) RetrySubmission(ctx context.Context, sessionID string) (Snapshot, error) {
	return s.mutate(sessionID, func(a *Attempt) error {
		done, err := a.flow.Retry(ctx)
		if err != nil {
			return err
		}
		a.pending = done
		return nil
	})
}

// Snapshot returns the current view of an attempt.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	attempt, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	attempt.mu.Lock()
	defer attempt.mu.Unlock()
	return attempt.snapshotLocked(), nil
}

// WaitSubmission blocks until the in-flight submission (if any) has settled.
func (s *QuizService) WaitSubmission(ctx context.Context, sessionID string) (SubmissionState, error) {
	attempt, ok := s.sessions.Get(sessionID)
	if !ok {
		return SubmissionState{}, domain.ErrSessionNotFound
	}
	attempt.mu.Lock()
	pending := attempt.pending
	attempt.mu.Unlock()

	if pending != nil {
		select {
		case <-pending:
		case <-ctx.Done():
			return SubmissionState{}, ctx.Err()
		}
	}
	return attempt.flow.State(), nil
}

// Authorize reports ErrSessionNotFound when identity may not act on the attempt.
// Attempts started by a signed-in user belong to that user; anonymous ones to
// whoever holds the id.
func (s *QuizService) Authorize(_ context.Context, sessionID string, identity domain.Identity) error {
	attempt, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if attempt.identity.Authenticated() && attempt.identity.UserID != identity.UserID {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Subscribe returns a channel that receives a snapshot after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Snapshot, func(), error) {
	attempt, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := attempt.subscribe()
	return ch, cancel, nil
}

// End drops the attempt. A pending submission still completes in the background.
func (s *QuizService) End(_ context.Context, sessionID string) {
	attempt, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	s.sessions.Delete(sessionID)
	attempt.closeSubscribers()
}

func (s *QuizService) mutate(sessionID string, fn func(*Attempt) error) (Snapshot, error) {
	attempt, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	attempt.mu.Lock()
	defer attempt.mu.Unlock()
	if err := fn(attempt); err != nil {
		return attempt.snapshotLocked(), err
	}
	return attempt.broadcastLocked(), nil
}

// Attempt is one live quiz session plus its submission flow and subscribers.
type Attempt struct {
	id          string
	identity    domain.Identity
	mu          sync.Mutex
	session     *Session
	flow        *SubmissionFlow
	pending     <-chan struct{}
	subscribers map[chan Snapshot]struct{}
}

// NewAttempt is exported for infrastructure layers that need to seed sessions.
func NewAttempt(id string, quiz domain.Quiz, identity domain.Identity, flow *SubmissionFlow) *Attempt {
	a := &Attempt{
		id:          id,
		identity:    identity,
		session:     NewSession(quiz),
		flow:        flow,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	flow.OnAsyncUpdate(func(SubmissionState) {
		a.mu.Lock()
		a.broadcastLocked()
		a.mu.Unlock()
	})
	return a
}

// ID returns the attempt id.
func (a *Attempt) ID() string {
	return a.id
}

// QuizID returns the id of the quiz being attempted.
func (a *Attempt) QuizID() string {
	return a.session.Quiz().ID
}

func (a *Attempt) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	// ch is fresh and buffered, so this cannot block.
	ch <- a.snapshotLocked()
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) closeSubscribers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

func (a *Attempt) broadcastLocked() Snapshot {
	snap := a.snapshotLocked()
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: replace its oldest queued snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (a *Attempt) snapshotLocked() Snapshot {
	s := a.session
	snap := Snapshot{
		SessionID:     a.id,
		QuizID:        s.Quiz().ID,
		QuizTitle:     s.Quiz().Title,
		State:         s.State(),
		Score:         s.Score(),
		Total:         s.QuestionCount(),
		Percentage:    s.Percentage(),
		History:       s.History(),
		Liver:         s.LiverModel(),
		Submission:    a.flow.State(),
		Authenticated: a.identity.Authenticated(),
	}
	if q, ok := s.CurrentQuestion(); ok {
		snap.Question = &QuestionView{
			ID:      q.ID,
			Number:  s.State().Position + 1,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
	}
	if last, ok := s.LastAnswer(); ok {
		explanation, _ := s.Explanation()
		q, _ := s.CurrentQuestion()
		snap.Feedback = &Feedback{
			Correct:       last.Correct,
			SelectedIndex: last.SelectedIndex,
			CorrectIndex:  q.CorrectIndex,
			Explanation:   explanation,
		}
	}
	if s.Completed() {
		snap.Tier = domain.FeedbackFor(snap.Percentage)
	}
	return snap
}

// Snapshot is the client-facing view of an attempt.
type Snapshot struct {
	SessionID     string                    `json:"sessionId"`
	QuizID        string                    `json:"quizId"`
	QuizTitle     string                    `json:"quizTitle,omitempty"`
	State         State                     `json:"state"`
	Question      *QuestionView             `json:"question,omitempty"`
	Feedback      *Feedback                 `json:"feedback,omitempty"`
	Score         int                       `json:"score"`
	Total         int                       `json:"total"`
	Percentage    int                       `json:"percentage"`
	History       []domain.AnsweredQuestion `json:"history"`
	Liver         domain.LiverModel         `json:"liver"`
	Tier          domain.FeedbackTier       `json:"tier,omitempty"`
	Message       string                    `json:"message,omitempty"`
	Submission    SubmissionState           `json:"submission"`
	Authenticated bool                      `json:"authenticated"`
}

// QuestionView is a question without its answer. Number is 1-based.
type QuestionView struct {
	ID      int      `json:"id"`
	Number  int      `json:"number"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// Feedback is shown between answering and advancing.
type Feedback struct {
	Correct       bool   `json:"correct"`
	SelectedIndex int    `json:"selectedIndex"`
	CorrectIndex  int    `json:"correctIndex"`
	Explanation   string `json:"explanation"`
}
