package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"liver-quiz-service/internal/domain"
)

// OpenDB opens a bun handle over pgdriver.
func OpenDB(dsn string, timeout time.Duration) *bun.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if timeout > 0 {
		opts = append(opts, pgdriver.WithTimeout(timeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	return bun.NewDB(sqldb, pgdialect.New())
}

// ResultStore persists quiz results in the hosted quiz_results table.
type ResultStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db, now: time.Now}
}

// Create inserts a result. A replayed idempotency key yields the id of the first insert.
func (s *ResultStore) Create(ctx context.Context, result domain.QuizResult) (int64, error) {
	row := toRow(result)
	row.ID = 0
	if row.Fecha.IsZero() {
		row.Fecha = s.now().UTC()
	}

	q := s.db.NewInsert().Model(&row).Returning("?", bun.Ident(colID))
	if row.ClaveIdempotencia != "" {
		q = q.On("CONFLICT (?) DO NOTHING", bun.Ident(colIdempotency))
	}
	if _, err := q.Exec(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, classify("create", err)
	}
	if row.ID != 0 {
		return row.ID, nil
	}
	if row.ClaveIdempotencia == "" {
		return 0, domain.NewStoreError(domain.KindUnknown, "create", "insert returned no id", nil)
	}

	var id int64
	err := s.db.NewSelect().
		Model((*resultRow)(nil)).
		Column(colID).
		Where("? = ?", bun.Ident(colIdempotency), row.ClaveIdempotencia).
		Limit(1).
		Scan(ctx, &id)
	if err != nil {
		return 0, classify("create", err)
	}
	return id, nil
}

func (s *ResultStore) ListByUser(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("? = ?", bun.Ident(colUserID), userID).
		OrderExpr("? DESC", bun.Ident(colCompletedAt)).
		Scan(ctx)
	if err != nil {
		return nil, classify("list by user", err)
	}
	return rowsToDomain(rows), nil
}

func (s *ResultStore) BestByUser(ctx context.Context, userID string) (*domain.QuizResult, error) {
	var row resultRow
	err := s.db.NewSelect().
		Model(&row).
		Where("? = ?", bun.Ident(colUserID), userID).
		OrderExpr("? DESC, ? DESC", bun.Ident(colPercentage), bun.Ident(colCompletedAt)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("best by user", err)
	}
	best := row.toDomain()
	return &best, nil
}

func (s *ResultStore) ListAll(ctx context.Context, limit int) ([]domain.QuizResult, error) {
	rows, err := s.recent(ctx, limit)
	if err != nil {
		return nil, classify("list all", err)
	}
	return rows, nil
}

func (s *ResultStore) ListRecentActivity(ctx context.Context, limit int) ([]domain.QuizResult, error) {
	rows, err := s.recent(ctx, limit)
	if err != nil {
		return nil, classify("list recent activity", err)
	}
	return rows, nil
}

func (s *ResultStore) ListTopPerformers(ctx context.Context, limit int) ([]domain.RankedResult, error) {
	var rows []resultRow
	q := s.db.NewSelect().
		Model(&rows).
		OrderExpr("? DESC, ? DESC", bun.Ident(colPercentage), bun.Ident(colCompletedAt))
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list top performers", err)
	}
	return domain.AssignRanks(rowsToDomain(rows)), nil
}

func (s *ResultStore) AggregateGlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	var rows []resultRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return domain.GlobalStats{}, classify("aggregate global stats", err)
	}
	return domain.AggregateGlobal(rowsToDomain(rows)), nil
}

func (s *ResultStore) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("? = ?", bun.Ident(colUserID), userID).
		Scan(ctx)
	if err != nil {
		return domain.UserStats{}, classify("user stats", err)
	}
	return domain.AggregateUser(rowsToDomain(rows)), nil
}

func (s *ResultStore) recent(ctx context.Context, limit int) ([]domain.QuizResult, error) {
	var rows []resultRow
	q := s.db.NewSelect().
		Model(&rows).
		OrderExpr("? DESC, ? DESC", bun.Ident(colCompletedAt), bun.Ident(colID))
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rowsToDomain(rows), nil
}

// ProbeReport describes a successful connectivity and schema check.
type ProbeReport struct {
	Rows    int
	Columns []string
}

// Probe checks that the table is reachable and has every mapped column.
func (s *ResultStore) Probe(ctx context.Context) (ProbeReport, error) {
	count, err := s.db.NewSelect().Model((*resultRow)(nil)).Count(ctx)
	if err != nil {
		return ProbeReport{}, classify("probe", err)
	}

	var present []string
	err = s.db.NewSelect().
		TableExpr("information_schema.columns").
		Column("column_name").
		Where("table_name = ?", tableResults).
		Where("table_schema = current_schema()").
		Scan(ctx, &present)
	if err != nil {
		return ProbeReport{}, classify("probe", err)
	}

	missing := missingColumns(present)
	if len(missing) > 0 {
		return ProbeReport{}, domain.NewStoreError(domain.KindSchema, "probe",
			fmt.Sprintf("table %s is missing columns: %s", tableResults, describeColumns(missing)), nil)
	}
	sort.Strings(present)
	return ProbeReport{Rows: count, Columns: present}, nil
}

func missingColumns(present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, c := range present {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range MappedColumns() {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// describeColumns renders columns with the field each one backs, e.g. "calificacion (percentage)".
func describeColumns(columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		if field, ok := fieldFor(c); ok {
			parts = append(parts, fmt.Sprintf("%s (%s)", c, field))
			continue
		}
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}

// Close releases the underlying pool.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
