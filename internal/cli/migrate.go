package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"
	"liver-quiz-service/internal/config"
	"liver-quiz-service/internal/content"
	"liver-quiz-service/internal/infra/postgres"
	pgmigrations "liver-quiz-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the quiz_results and quizzes tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			if seed {
				return seedQuizzes(cmd.Context(), cfg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "also upsert the built-in question bank into the quizzes table")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.OpenDB(cfg.Postgres.URL, cfg.Postgres.Timeout)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("database is up to date")
		return nil
	}
	log.Printf("migrated to %s", group)
	return nil
}

func seedQuizzes(ctx context.Context, cfg config.Config) error {
	quizzes, err := content.Quizzes()
	if err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	loader := postgres.NewQuizLoader(pool)
	for id, quiz := range quizzes {
		if err := loader.SaveQuiz(ctx, quiz); err != nil {
			return fmt.Errorf("seed quiz %s: %w", id, err)
		}
		log.Printf("seeded quiz %s (%d questions)", id, len(quiz.Questions))
	}
	return nil
}
