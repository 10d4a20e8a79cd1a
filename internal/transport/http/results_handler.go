package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/domain"
	"liver-quiz-service/internal/export"
	"liver-quiz-service/internal/i18n"
)

// resultView is a stored result decorated for display. Email is only set on
// the caller's own results.
type resultView struct {
	ID          int64            `json:"id"`
	DisplayName string           `json:"displayName"`
	Email       string           `json:"email,omitempty"`
	Correct     int              `json:"correct"`
	Total       int              `json:"total"`
	Percentage  int              `json:"percentage"`
	Band        domain.ScoreBand `json:"band"`
	CompletedAt time.Time        `json:"completedAt"`
	TimeAgo     string           `json:"timeAgo"`
	Rank        int              `json:"rank,omitempty"`
	Medal       string           `json:"medal,omitempty"`
}

type sectionBody[T any] struct {
	Data  T          `json:"data"`
	Error *errorBody `json:"error"`
	Empty string     `json:"empty,omitempty"`
}

type viewContext struct {
	locale    string
	now       time.Time
	withEmail bool
}

func (s *Server) viewContext(c *gin.Context, withEmail bool) viewContext {
	return viewContext{locale: localeFrom(c), now: s.now(), withEmail: withEmail}
}

func (v viewContext) result(r domain.QuizResult) resultView {
	view := resultView{
		ID:          r.ID,
		DisplayName: i18n.DisplayName(v.locale, r.Email),
		Correct:     r.Correct,
		Total:       r.Total,
		Percentage:  r.Percentage,
		Band:        domain.BandFor(r.Percentage),
		CompletedAt: r.CompletedAt,
		TimeAgo:     i18n.TimeAgo(v.locale, r.CompletedAt, v.now),
	}
	if v.withEmail {
		view.Email = r.Email
	}
	return view
}

func (v viewContext) results(rows []domain.QuizResult) []resultView {
	out := make([]resultView, 0, len(rows))
	for _, r := range rows {
		out = append(out, v.result(r))
	}
	return out
}

func (v viewContext) ranked(rows []domain.RankedResult) []resultView {
	out := make([]resultView, 0, len(rows))
	for _, r := range rows {
		view := v.result(r.QuizResult)
		view.Rank = r.Rank
		view.Medal = domain.Medal(r.Rank)
		out = append(out, view)
	}
	return out
}

func toSection[T, V any](locale string, sec app.Section[T], render func(T) V, emptyKey string, isEmpty func(T) bool) sectionBody[V] {
	var body sectionBody[V]
	if !sec.OK() {
		payload := storeErrorPayload(locale, sec.Err)
		body.Error = &payload
		return body
	}
	body.Data = render(sec.Data)
	if emptyKey != "" && isEmpty(sec.Data) {
		body.Empty = i18n.T(locale, emptyKey)
	}
	return body
}

func topSection(v viewContext, sec app.Section[[]domain.RankedResult]) sectionBody[[]resultView] {
	return toSection(v.locale, sec, v.ranked, "results.empty", func(rows []domain.RankedResult) bool { return len(rows) == 0 })
}

func listSection(v viewContext, sec app.Section[[]domain.QuizResult], emptyKey string) sectionBody[[]resultView] {
	return toSection(v.locale, sec, v.results, emptyKey, func(rows []domain.QuizResult) bool { return len(rows) == 0 })
}

func statsSection[T any](locale string, sec app.Section[T]) sectionBody[T] {
	return toSection(locale, sec, func(t T) T { return t }, "", nil)
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}

// publicResults serves the leaderboard page; each section fails on its own.
func (s *Server) publicResults(c *gin.Context) {
	v := s.viewContext(c, false)
	page := s.results.PublicResults(c.Request.Context(), queryLimit(c), 0)
	c.JSON(http.StatusOK, gin.H{
		"topPerformers":  topSection(v, page.TopPerformers),
		"recentActivity": listSection(v, page.RecentActivity, "results.empty"),
		"globalStats":    statsSection(v.locale, page.GlobalStats),
	})
}

func (s *Server) topPerformers(c *gin.Context) {
	v := s.viewContext(c, false)
	respondSection(c, topSection(v, s.results.TopPerformers(c.Request.Context(), queryLimit(c))))
}

func (s *Server) recentActivity(c *gin.Context) {
	v := s.viewContext(c, false)
	respondSection(c, listSection(v, s.results.RecentActivity(c.Request.Context(), queryLimit(c)), "results.empty"))
}

func (s *Server) globalStats(c *gin.Context) {
	respondSection(c, statsSection(localeFrom(c), s.results.GlobalStats(c.Request.Context())))
}

func (s *Server) allResults(c *gin.Context) {
	v := s.viewContext(c, false)
	respondSection(c, listSection(v, s.results.AllResults(c.Request.Context(), queryLimit(c)), "results.empty"))
}

func (s *Server) exportResults(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rows, err := s.results.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, rows, localeFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(format, s.now())+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) history(c *gin.Context) {
	page, err := s.results.History(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	v := s.viewContext(c, true)
	c.JSON(http.StatusOK, gin.H{
		"results": listSection(v, page.Results, "history.empty"),
		"stats":   statsSection(v.locale, page.Stats),
		"best":    bestSection(v, page.Best),
	})
}

func (s *Server) userStats(c *gin.Context) {
	sec, err := s.results.UserStats(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSection(c, statsSection(localeFrom(c), sec))
}

func (s *Server) userBest(c *gin.Context) {
	sec, err := s.results.Best(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSection(c, bestSection(s.viewContext(c, true), sec))
}

func bestSection(v viewContext, sec app.Section[*domain.QuizResult]) sectionBody[*resultView] {
	return toSection(v.locale, sec, func(r *domain.QuizResult) *resultView {
		if r == nil {
			return nil
		}
		view := v.result(*r)
		return &view
	}, "history.empty", func(r *domain.QuizResult) bool { return r == nil })
}

// respondSection answers 200 with the data, or the store kind's status with
// the section's error.
func respondSection[T any](c *gin.Context, body sectionBody[T]) {
	if body.Error != nil {
		c.JSON(storeStatus(domain.ErrorKind(body.Error.Kind)), body)
		return
	}
	c.JSON(http.StatusOK, body)
}
