package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"liver-quiz-service/internal/config"
	"liver-quiz-service/internal/domain"
	"liver-quiz-service/internal/infra/postgres"
)

// NewCheckDBCmd verifies the result table is reachable and correctly shaped.
func NewCheckDBCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Probe the result store and print setup guidance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured (set DATABASE_URL)")
			}
			store := postgres.NewResultStore(postgres.OpenDB(cfg.Postgres.URL, cfg.Postgres.Timeout))
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			report, err := store.Probe(ctx)
			out := cmd.OutOrStdout()
			if err != nil {
				printGuidance(out, err)
				return err
			}
			fmt.Fprintf(out, "ok: %d rows, columns: %s\n", report.Rows, strings.Join(report.Columns, ", "))
			return nil
		},
	}
}

func printGuidance(w io.Writer, err error) {
	switch {
	case errors.Is(err, domain.ErrNetwork):
		fmt.Fprintln(w, "cannot reach the database: check DATABASE_URL, network access and that the project is not paused")
	case errors.Is(err, domain.ErrPermissionDenied):
		fmt.Fprintln(w, "permission denied: add row-level security policies that allow select and insert on quiz_results")
	case errors.Is(err, domain.ErrSchema):
		fmt.Fprintln(w, "schema mismatch: run `liver-quiz migrate` or create the missing quiz_results columns")
	default:
		fmt.Fprintln(w, "unexpected error talking to the database")
	}
	fmt.Fprintf(w, "detail: %v\n", err)
}
