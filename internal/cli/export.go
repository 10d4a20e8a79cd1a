package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"liver-quiz-service/internal/app"
	"liver-quiz-service/internal/config"
	"liver-quiz-service/internal/export"
	"liver-quiz-service/internal/infra/postgres"
)

// NewExportCmd writes every stored result to a CSV or XLSX file.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		format string
		output string
		locale string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all quiz results to CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured (set DATABASE_URL)")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if output == "" {
				output = export.Filename(f, time.Now())
			}
			if locale == "" {
				locale = cfg.Locale
			}

			store := postgres.NewResultStore(postgres.OpenDB(cfg.Postgres.URL, cfg.Postgres.Timeout))
			defer store.Close()
			rows, err := app.NewResultsService(store, app.Limits{}, app.NewLogObserver(nil)).Export(cmd.Context())
			if err != nil {
				return err
			}

			file, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := export.Write(file, f, rows, locale); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			log.Printf("exported %d results to %s", len(rows), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default quiz_results_<date>.<format>)")
	cmd.Flags().StringVar(&locale, "locale", "", "header language (es or en)")
	return cmd
}
