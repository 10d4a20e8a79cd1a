package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/i18n"
)

const maxSubmissionWait = 15 * time.Second

type startRequest struct {
	QuizID string `json:"quizId"`
}

type answerRequest struct {
	Index *int `json:"index" binding:"required"`
}

type quizView struct {
	ID        string             `json:"id"`
	Title     string             `json:"title,omitempty"`
	Questions []app.QuestionView `json:"questions"`
}

func (s *Server) getQuiz(c *gin.Context) {
	quiz, err := s.quizzes.GetQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		respondError(c, err)
		return
	}
	view := quizView{ID: quiz.ID, Title: quiz.Title, Questions: make([]app.QuestionView, 0, len(quiz.Questions))}
	for i, q := range quiz.Questions {
		view.Questions = append(view.Questions, app.QuestionView{ID: q.ID, Number: i + 1, Prompt: q.Prompt, Options: q.Options})
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) startSession(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Detail: err.Error()})
			return
		}
	}
	if req.QuizID == "" {
		req.QuizID = s.defaultQuizID
	}
	snap, err := s.quiz.Start(c.Request.Context(), req.QuizID, identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, localize(snap, localeFrom(c)))
}

func (s *Server) getSession(c *gin.Context) {
	s.respondSnapshot(c, http.StatusOK)(s.quiz.Snapshot(c.Request.Context(), c.Param("id")))
}

func (s *Server) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "index is required", Detail: err.Error()})
		return
	}
	s.respondSnapshot(c, http.StatusOK)(s.quiz.Answer(c.Request.Context(), c.Param("id"), *req.Index))
}

func (s *Server) advance(c *gin.Context) {
	s.respondSnapshot(c, http.StatusOK)(s.quiz.Advance(c.Request.Context(), c.Param("id")))
}

func (s *Server) restart(c *gin.Context) {
	s.respondSnapshot(c, http.StatusOK)(s.quiz.Restart(c.Request.Context(), c.Param("id")))
}

func (s *Server) retrySubmission(c *gin.Context) {
	s.respondSnapshot(c, http.StatusAccepted)(s.quiz.RetrySubmission(c.Request.Context(), c.Param("id")))
}

// submission returns the save status; ?wait=true blocks until an in-flight
// write settles.
func (s *Server) submission(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("wait") != "true" {
		snap, err := s.quiz.Snapshot(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap.Submission)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, maxSubmissionWait)
	defer cancel()
	state, err := s.quiz.WaitSubmission(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) endSession(c *gin.Context) {
	s.quiz.End(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// ownsSession hides attempts that belong to another signed-in user.
func (s *Server) ownsSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.quiz.Authorize(c.Request.Context(), c.Param("id"), identityFrom(c)); err != nil {
			respondError(c, err)
			return
		}
		c.Next()
	}
}

// respondSnapshot writes the localized snapshot. Rejected transitions still
// carry the unchanged snapshot next to the error.
func (s *Server) respondSnapshot(c *gin.Context, status int) func(app.Snapshot, error) {
	return func(snap app.Snapshot, err error) {
		locale := localeFrom(c)
		if err != nil {
			body := gin.H{"error": errorPayload(locale, err)}
			if snap.SessionID != "" {
				body["session"] = localize(snap, locale)
			}
			c.JSON(statusFor(err), body)
			return
		}
		c.JSON(status, localize(snap, locale))
	}
}

func localize(snap app.Snapshot, locale string) app.Snapshot {
	if snap.Tier != "" {
		snap.Message = i18n.ScoreMessage(locale, snap.Tier)
	}
	if snap.Submission.Status == app.SubmissionFailed {
		snap.Submission.Message = localizedFailure(locale, snap.Submission)
	}
	return snap
}

func localizedFailure(locale string, state app.SubmissionState) string {
	msg := i18n.ErrorMessage(locale, state.Kind)
	if state.Message == "" {
		return msg
	}
	return msg + " (" + state.Message + ")"
}
