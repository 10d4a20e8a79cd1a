package app

import (
	"fmt"

	"liver-quiz-service/internal/domain"
)

// Phase is the coarse state of a quiz session.
type Phase string

const (
	PhaseAwaitingAnswer     Phase = "awaiting_answer"
	PhaseShowingExplanation Phase = "showing_explanation"
	PhaseCompleted          Phase = "completed"
)

// State is the full machine state. Position is meaningful in the first two phases,
// Selected only while showing an explanation.
type State struct {
	Phase    Phase `json:"phase"`
	Position int   `json:"position"`
	Selected int   `json:"selected"`
}

// Session is the in-memory state of one attempt. It performs no I/O and is not
// safe for concurrent use; QuizService serialises access per attempt.
type Session struct {
	quiz    domain.Quiz
	state   State
	history []domain.AnsweredQuestion
}

// NewSession starts an attempt at AwaitingAnswer(0).
func NewSession(quiz domain.Quiz) *Session {
	return &Session{
		quiz:  quiz,
		state: State{Phase: PhaseAwaitingAnswer, Selected: -1},
	}
}

// SelectAnswer locks in the answer for the current question.
func (s *Session) SelectAnswer(index int) (domain.AnsweredQuestion, error) {
	if s.state.Phase != PhaseAwaitingAnswer || s.state.Position >= len(s.quiz.Questions) {
		return domain.AnsweredQuestion{}, fmt.Errorf("select answer in %s: %w", s.state.Phase, domain.ErrWrongState)
	}
	question := s.quiz.Questions[s.state.Position]
	if index < 0 || index >= len(question.Options) {
		return domain.AnsweredQuestion{}, fmt.Errorf("select answer %d of %d: %w", index, len(question.Options), domain.ErrInvalidOption)
	}

	answered := domain.AnsweredQuestion{
		QuestionID:    question.ID,
		SelectedIndex: index,
		Correct:       index == question.CorrectIndex,
		Prompt:        question.Prompt,
	}
	s.history = append(s.history, answered)
	s.state.Phase = PhaseShowingExplanation
	s.state.Selected = index
	return answered, nil
}

// Advance leaves the explanation. It reports true when this call completed the attempt.
func (s *Session) Advance() (bool, error) {
	if s.state.Phase != PhaseShowingExplanation {
		return false, fmt.Errorf("advance in %s: %w", s.state.Phase, domain.ErrWrongState)
	}
	if s.state.Position+1 < len(s.quiz.Questions) {
		s.state = State{Phase: PhaseAwaitingAnswer, Position: s.state.Position + 1, Selected: -1}
		return false, nil
	}
	s.state = State{Phase: PhaseCompleted, Position: s.state.Position, Selected: -1}
	return true, nil
}

// Restart discards all history and returns to the initial state.
func (s *Session) Restart() {
	*s = *NewSession(s.quiz)
}

// CurrentQuestion returns the question at the current position; false once completed.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	if s.state.Phase == PhaseCompleted || s.state.Position >= len(s.quiz.Questions) {
		return domain.Question{}, false
	}
	return s.quiz.Questions[s.state.Position], true
}

// State returns the current machine state.
func (s *Session) State() State {
	return s.state
}

// Completed reports whether every question has been answered and advanced past.
func (s *Session) Completed() bool {
	return s.state.Phase == PhaseCompleted
}

// Score counts correct answers so far.
func (s *Session) Score() int {
	score := 0
	for _, a := range s.history {
		if a.Correct {
			score++
		}
	}
	return score
}

// Percentage is the score relative to the full question count.
func (s *Session) Percentage() int {
	return domain.Percentage(s.Score(), s.QuestionCount())
}

// History returns a copy of the answers in question order.
func (s *Session) History() []domain.AnsweredQuestion {
	if s.history == nil {
		return nil
	}
	return append([]domain.AnsweredQuestion(nil), s.history...)
}

// QuestionCount is the total number of questions in the attempt.
func (s *Session) QuestionCount() int {
	return len(s.quiz.Questions)
}

// Quiz returns the content this session runs over.
func (s *Session) Quiz() domain.Quiz {
	return s.quiz
}

// LastAnswer returns the answer being explained; false outside ShowingExplanation.
func (s *Session) LastAnswer() (domain.AnsweredQuestion, bool) {
	if s.state.Phase != PhaseShowingExplanation || len(s.history) == 0 {
		return domain.AnsweredQuestion{}, false
	}
	return s.history[len(s.history)-1], true
}

// Explanation is only available while the answer to the current question is shown.
func (s *Session) Explanation() (string, bool) {
	if s.state.Phase != PhaseShowingExplanation {
		return "", false
	}
	return s.quiz.Questions[s.state.Position].Explanation, true
}

// LiverModel returns the renderer parameters for the current score.
func (s *Session) LiverModel() domain.LiverModel {
	return domain.NewLiverModel(s.Score(), s.QuestionCount())
}
