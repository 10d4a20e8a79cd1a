// Package content holds the built-in liver-health question bank.
package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"liver-quiz-service/internal/domain"
)

// DefaultQuizID identifies the embedded quiz.
const DefaultQuizID = "liver-health"

//go:embed questions.yaml
var questionsYAML []byte

// Load decodes and validates the embedded quiz.
func Load() (domain.Quiz, error) {
	return Parse(questionsYAML)
}

// Parse decodes a YAML quiz document and validates it.
func Parse(raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := yaml.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz: %w", err)
	}
	if err := Validate(quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Validate checks the structural rules every quiz must satisfy.
func Validate(quiz domain.Quiz) error {
	if quiz.ID == "" {
		return fmt.Errorf("%w: missing id", domain.ErrInvalidQuiz)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: quiz %s has no questions", domain.ErrInvalidQuiz, quiz.ID)
	}
	seen := make(map[int]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", domain.ErrInvalidQuiz, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Prompt == "" {
			return fmt.Errorf("%w: question %d has no prompt", domain.ErrInvalidQuiz, q.ID)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct index %d outside %d options", domain.ErrInvalidQuiz, q.ID, q.CorrectIndex, len(q.Options))
		}
	}
	return nil
}

// Quizzes returns every built-in quiz keyed by id.
func Quizzes() (map[string]domain.Quiz, error) {
	quiz, err := Load()
	if err != nil {
		return nil, err
	}
	return map[string]domain.Quiz{quiz.ID: quiz}, nil
}
