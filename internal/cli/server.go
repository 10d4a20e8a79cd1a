package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/config"
	"liver-quiz-service/internal/infra/memory"
	"liver-quiz-service/internal/infra/postgres"
	infraredis "liver-quiz-service/internal/infra/redis"
	transport "liver-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewServer(deps).Router(),
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Printf("starting quiz service on :%s (quiz source %s, locale %s)", finalPort, cfg.Quiz.Source, cfg.Locale)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildDeps creates the process-wide stores and clients once and hands them to
// the router. Without Postgres results live in memory; without Redis sessions
// do too and nothing is cached.
func buildDeps(ctx context.Context, cfg config.Config) (transport.Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	observer := app.NewLogObserver(nil)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("redis ping failed, sessions stay local until it recovers: %v", err)
		}
	}

	loader, closeLoader, err := quizLoader(ctx, cfg)
	if err != nil {
		cleanup()
		return transport.Deps{}, nil, err
	}
	closers = append(closers, closeLoader)
	quizzes := memory.NewQuizRepository(loader, config.Duration(cfg.Quiz.TTL, 10*time.Minute))

	var results app.ResultStore = memory.NewResultStore()
	var probe transport.ProbeFunc
	if cfg.Postgres.URL != "" {
		pgStore := postgres.NewResultStore(postgres.OpenDB(cfg.Postgres.URL, cfg.Postgres.Timeout))
		closers = append(closers, func() { _ = pgStore.Close() })
		results = pgStore
		probe = func(ctx context.Context) error {
			_, err := pgStore.Probe(ctx)
			return err
		}
	} else {
		log.Printf("no postgres url configured, results are kept in memory")
	}
	if redisClient != nil {
		results = infraredis.NewCachedResultStore(redisClient, results, config.Duration(cfg.Results.StatsTTL, 30*time.Second))
	}

	sessionTTL := config.Duration(cfg.Quiz.SessionTTL, 30*time.Minute)
	var sessions app.SessionRepository = memory.NewSessionStore(sessionTTL)
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, sessionTTL))
	}

	quizService := app.NewQuizService(sessions, quizzes, results,
		app.WithObserver(observer),
		app.WithSubmitTimeout(config.Duration(cfg.Quiz.SubmitTimeout, 10*time.Second)),
	)
	resultsService := app.NewResultsService(results, app.Limits{
		Top:    cfg.Results.TopLimit,
		Recent: cfg.Results.RecentLimit,
		All:    cfg.Results.AllLimit,
	}, observer)

	if cfg.Auth.JWTSecret == "" {
		log.Printf("no jwt secret configured, every caller is anonymous and no results are saved")
	}

	return transport.Deps{
		Quiz:          quizService,
		Results:       resultsService,
		Quizzes:       quizzes,
		Auth:          transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Probe:         probe,
		DefaultQuizID: cfg.Quiz.ID,
		Locale:        cfg.Locale,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}, cleanup, nil
}

func quizLoader(ctx context.Context, cfg config.Config) (memory.QuizLoader, func(), error) {
	if cfg.Quiz.Source != config.SourcePostgres {
		loader, err := memory.NewEmbeddedQuizLoader()
		if err != nil {
			return nil, nil, fmt.Errorf("load embedded quiz: %w", err)
		}
		return loader, func() {}, nil
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return postgres.NewQuizLoader(pool), pool.Close, nil
}
