package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/content"
	"liver-quiz-service/internal/i18n"
)

const localeKey = "quiz.locale"

// ProbeFunc reports whether the result store is reachable and correctly shaped.
type ProbeFunc func(ctx context.Context) error

// Deps is everything the router needs.
type Deps struct {
	Quiz          *app.QuizService
	Results       *app.ResultsService
	Quizzes       app.QuizRepository
	Auth          *Authenticator
	Probe         ProbeFunc
	DefaultQuizID string
	Locale        string
	CORSOrigins   []string
	Now           func() time.Time
}

// Server holds the handlers behind the gin router.
type Server struct {
	quiz          *app.QuizService
	results       *app.ResultsService
	quizzes       app.QuizRepository
	auth          *Authenticator
	probe         ProbeFunc
	defaultQuizID string
	locale        string
	corsOrigins   []string
	now           func() time.Time
	ws            *WSHandler
}

func NewServer(deps Deps) *Server {
	s := &Server{
		quiz:          deps.Quiz,
		results:       deps.Results,
		quizzes:       deps.Quizzes,
		auth:          deps.Auth,
		probe:         deps.Probe,
		defaultQuizID: deps.DefaultQuizID,
		locale:        deps.Locale,
		corsOrigins:   deps.CORSOrigins,
		now:           deps.Now,
	}
	if s.auth == nil {
		s.auth = NewAuthenticator("", "")
	}
	if s.defaultQuizID == "" {
		s.defaultQuizID = content.DefaultQuizID
	}
	if s.locale == "" {
		s.locale = i18n.Default
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.ws = NewWSHandler(s.quiz)
	return s
}

// Router builds the gin engine with CORS, locale and identity middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(s.corsOrigins)))
	router.Use(s.localeMiddleware(), s.auth.Middleware())

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/readyz", s.ready)

	api := router.Group("/api")
	{
		api.GET("/quizzes/:quizId", s.getQuiz)

		sessions := api.Group("/sessions")
		sessions.POST("", s.startSession)
		owned := sessions.Group("/:id", s.ownsSession())
		owned.GET("", s.getSession)
		owned.POST("/answers", s.answer)
		owned.POST("/advance", s.advance)
		owned.POST("/restart", s.restart)
		owned.GET("/submission", s.submission)
		owned.POST("/submission/retry", s.retrySubmission)
		owned.DELETE("", s.endSession)

		results := api.Group("/results")
		results.GET("/public", s.publicResults)
		results.GET("/top", s.topPerformers)
		results.GET("/recent", s.recentActivity)
		results.GET("/stats", s.globalStats)
		results.GET("/all", s.allResults)
		results.GET("/export", requireAuth(), s.exportResults)

		me := api.Group("/me", requireAuth())
		me.GET("/history", s.history)
		me.GET("/stats", s.userStats)
		me.GET("/best", s.userBest)
	}

	router.GET("/ws/sessions/:id", s.ownsSession(), func(c *gin.Context) {
		s.ws.Serve(c.Writer, c.Request, c.Param("id"), localeFrom(c))
	})
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) localeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(localeKey, i18n.Negotiate(c.Query("lang"), c.GetHeader("Accept-Language"), s.locale))
		c.Next()
	}
}

func localeFrom(c *gin.Context) string {
	if v, ok := c.Get(localeKey); ok {
		if locale, ok := v.(string); ok {
			return locale
		}
	}
	return i18n.Default
}

func (s *Server) ready(c *gin.Context) {
	if s.probe == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := s.probe(ctx); err != nil {
		c.JSON(statusFor(err), errorPayload(localeFrom(c), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
