package domain

import "time"

// Question is an immutable multiple-choice question with exactly one correct option.
type Question struct {
	ID           int      `json:"id" yaml:"id"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correct_index"`
	Explanation  string   `json:"explanation" yaml:"explanation"`
}

// Quiz is the fixed, ordered question list for one quiz.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// AnsweredQuestion records the user's choice for one question. It never changes once created.
type AnsweredQuestion struct {
	QuestionID    int    `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
	Correct       bool   `json:"correct"`
	Prompt        string `json:"prompt"`
}

// QuizResult is the persisted, append-only outcome of one completed attempt.
type QuizResult struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	Email          string    `json:"email,omitempty"`
	Correct        int       `json:"correct"`
	Total          int       `json:"total"`
	Percentage     int       `json:"percentage"`
	CompletedAt    time.Time `json:"completedAt"`
	IdempotencyKey string    `json:"-"`
}

// RankedResult is a leaderboard row; Rank is 1-based.
type RankedResult struct {
	QuizResult
	Rank int `json:"rank"`
}

// GlobalStats summarises every persisted result.
type GlobalStats struct {
	TotalAttempts          int     `json:"totalAttempts"`
	TotalUsers             int     `json:"totalUsers"`
	AverageScore           int     `json:"averageScore"`
	BestScore              int     `json:"bestScore"`
	TotalCorrectAnswers    int     `json:"totalCorrectAnswers"`
	TotalQuestions         int     `json:"totalQuestions"`
	AverageAttemptsPerUser float64 `json:"averageAttemptsPerUser"`
}

// UserStats summarises the results of a single user.
type UserStats struct {
	TotalAttempts       int `json:"totalAttempts"`
	AverageScore        int `json:"averageScore"`
	BestScore           int `json:"bestScore"`
	TotalCorrectAnswers int `json:"totalCorrectAnswers"`
	TotalQuestions      int `json:"totalQuestions"`
}

// Identity is the caller as reported by the authentication provider.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// LiverModel holds the parameters handed to the 3D liver renderer.
type LiverModel struct {
	Opacity  float64 `json:"opacity"`
	Scale    float64 `json:"scale"`
	Revealed bool    `json:"revealed"`
	Progress float64 `json:"progress"`
}
