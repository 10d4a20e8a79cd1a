package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/domain"
	"liver-quiz-service/internal/infra/memory"
	"liver-quiz-service/internal/infra/postgres"
	pgmigrations "liver-quiz-service/internal/infra/postgres/migrations"
	infraredis "liver-quiz-service/internal/infra/redis"
)

func TestCompletedAttemptIsPersistedEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.OpenDB(pgURL, 5*time.Second)
	migrateUp(t, ctx, db)
	store := postgres.NewResultStore(db)
	defer store.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	loader := postgres.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	results := infraredis.NewCachedResultStore(redisClient, store, time.Minute)
	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		memory.NewQuizRepository(loader, 5*time.Minute),
		results,
	)

	identity := domain.Identity{UserID: "3f1c2a4e-0000-4000-8000-000000000001", Email: "ana@example.com"}
	snap, err := service.Start(ctx, "liver-mini", identity)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, pick := range []int{1, 0} {
		if _, err := service.Answer(ctx, snap.SessionID, pick); err != nil {
			t.Fatalf("answer: %v", err)
		}
		if _, err := service.Advance(ctx, snap.SessionID); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	state, err := service.WaitSubmission(ctx, snap.SessionID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if state.Status != app.SubmissionSucceeded || state.ResultID == 0 {
		t.Fatalf("expected saved result, got %+v", state)
	}

	rows, err := store.ListByUser(ctx, identity.UserID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(rows) != 1 || rows[0].Correct != 2 || rows[0].Percentage != 100 || rows[0].Email != identity.Email {
		t.Fatalf("unexpected stored rows %+v", rows)
	}

	stats, err := results.AggregateGlobalStats(ctx)
	if err != nil {
		t.Fatalf("global stats: %v", err)
	}
	if stats.TotalAttempts != 1 || stats.TotalUsers != 1 || stats.BestScore != 100 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	// Replaying the same idempotency key must not create a second row.
	replay := rows[0]
	replay.IdempotencyKey = "replay-key"
	first, err := store.Create(ctx, replay)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := store.Create(ctx, replay)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first != second {
		t.Fatalf("replay returned a new id: %d != %d", first, second)
	}

	report, err := store.Probe(ctx)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if report.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", report.Rows)
	}
}

func TestResultOrderingAndEmptyAggregates(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.OpenDB(pgURL, 5*time.Second)
	migrateUp(t, ctx, db)
	store := postgres.NewResultStore(db)
	defer store.Close()

	global, err := store.AggregateGlobalStats(ctx)
	if err != nil {
		t.Fatalf("global stats on empty table: %v", err)
	}
	if global != (domain.GlobalStats{}) {
		t.Fatalf("expected zero global stats, got %+v", global)
	}
	user, err := store.UserStats(ctx, "nobody")
	if err != nil {
		t.Fatalf("user stats for unknown user: %v", err)
	}
	if user != (domain.UserStats{}) {
		t.Fatalf("expected zero user stats, got %+v", user)
	}

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]int64, 0, 3)
	for i, pct := range []int{90, 70, 90} {
		id, err := store.Create(ctx, domain.QuizResult{
			UserID:         fmt.Sprintf("user-%d", i+1),
			Email:          fmt.Sprintf("user%d@example.com", i+1),
			Correct:        pct / 10,
			Total:          10,
			Percentage:     pct,
			CompletedAt:    base.Add(time.Duration(i) * time.Hour),
			IdempotencyKey: fmt.Sprintf("ordering-%d", i+1),
		})
		if err != nil {
			t.Fatalf("create %d: %v", i+1, err)
		}
		ids = append(ids, id)
	}

	top, err := store.ListTopPerformers(ctx, 10)
	if err != nil {
		t.Fatalf("top performers: %v", err)
	}
	wantTop := []int64{ids[2], ids[0], ids[1]}
	if len(top) != len(wantTop) {
		t.Fatalf("expected %d ranked rows, got %d", len(wantTop), len(top))
	}
	for i, row := range top {
		if row.ID != wantTop[i] || row.Rank != i+1 {
			t.Fatalf("rank %d: expected id %d, got id %d rank %d", i+1, wantTop[i], row.ID, row.Rank)
		}
	}

	recent, err := store.ListRecentActivity(ctx, 10)
	if err != nil {
		t.Fatalf("recent activity: %v", err)
	}
	wantRecent := []int64{ids[2], ids[1], ids[0]}
	if len(recent) != len(wantRecent) {
		t.Fatalf("expected %d recent rows, got %d", len(wantRecent), len(recent))
	}
	for i, row := range recent {
		if row.ID != wantRecent[i] {
			t.Fatalf("recent %d: expected id %d, got %d", i, wantRecent[i], row.ID)
		}
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].CompletedAt.After(recent[i-1].CompletedAt) {
			t.Fatalf("recent activity is not newest first: %v before %v", recent[i-1].CompletedAt, recent[i].CompletedAt)
		}
	}

	limited, err := store.ListTopPerformers(ctx, 1)
	if err != nil {
		t.Fatalf("top performers limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != ids[2] {
		t.Fatalf("expected the most recent 90 on top, got %+v", limited)
	}
}

func TestSchemaFaultsAreClassified(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.OpenDB(pgURL, 5*time.Second)
	migrateUp(t, ctx, db)
	store := postgres.NewResultStore(db)
	defer store.Close()

	if _, err := db.ExecContext(ctx, `ALTER TABLE quiz_results DROP COLUMN calificacion`); err != nil {
		t.Fatalf("drop column: %v", err)
	}
	_, err := store.Probe(ctx)
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected schema error from probe, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "calificacion (percentage)") {
		t.Fatalf("probe should name the missing column, got %v", err)
	}

	if _, err := db.ExecContext(ctx, `DROP TABLE quiz_results`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	_, err = store.Create(ctx, domain.QuizResult{UserID: "u1", Correct: 1, Total: 1, Percentage: 100, CompletedAt: time.Now()})
	var storeErr *domain.StoreError
	if !errors.As(err, &storeErr) || storeErr.Kind != domain.KindSchema {
		t.Fatalf("expected schema store error, got %v", err)
	}
}

func migrateUp(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "liver-mini",
		Title: "Hígado en dos preguntas",
		Questions: []domain.Question{
			{ID: 1, Prompt: "¿Qué órgano filtra las toxinas de la sangre?", Options: []string{"Riñón", "Hígado", "Bazo"}, CorrectIndex: 1, Explanation: "El hígado metaboliza y elimina toxinas."},
			{ID: 2, Prompt: "¿Puede el hígado regenerarse?", Options: []string{"Sí", "No"}, CorrectIndex: 0, Explanation: "Puede regenerarse a partir de una porción sana."},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
