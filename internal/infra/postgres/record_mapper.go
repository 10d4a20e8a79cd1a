package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"liver-quiz-service/internal/domain"
)

// The hosted table predates this service and uses Spanish column names.
// This file is the only place that knows them.
const (
	tableResults = "quiz_results"

	colID          = "id"
	colUserID      = "usuario_id"
	colEmail       = "email"
	colTotal       = "preguntas"
	colCorrect     = "correctas"
	colPercentage  = "calificacion"
	colCompletedAt = "fecha"
	colIdempotency = "clave_idempotencia"
)

type fieldColumn struct {
	field  string
	column string
}

// resultFields pairs QuizResult JSON field names with native columns.
var resultFields = []fieldColumn{
	{"id", colID},
	{"userId", colUserID},
	{"email", colEmail},
	{"total", colTotal},
	{"correct", colCorrect},
	{"percentage", colPercentage},
	{"completedAt", colCompletedAt},
	{"idempotencyKey", colIdempotency},
}

// fieldFor returns the domain field stored in a native column.
func fieldFor(column string) (string, bool) {
	for _, fc := range resultFields {
		if fc.column == column {
			return fc.field, true
		}
	}
	return "", false
}

// MappedColumns lists every native column the adapter reads or writes.
func MappedColumns() []string {
	cols := make([]string, 0, len(resultFields))
	for _, fc := range resultFields {
		cols = append(cols, fc.column)
	}
	return cols
}

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results"`

	ID                int64     `bun:"id,pk,autoincrement"`
	UsuarioID         string    `bun:"usuario_id,notnull"`
	Email             string    `bun:"email,nullzero"`
	Preguntas         int       `bun:"preguntas,notnull"`
	Correctas         int       `bun:"correctas,notnull"`
	Calificacion      int       `bun:"calificacion,notnull"`
	Fecha             time.Time `bun:"fecha,nullzero,notnull,default:current_timestamp"`
	ClaveIdempotencia string    `bun:"clave_idempotencia,nullzero"`
}

func toRow(r domain.QuizResult) resultRow {
	return resultRow{
		ID:                r.ID,
		UsuarioID:         r.UserID,
		Email:             r.Email,
		Preguntas:         r.Total,
		Correctas:         r.Correct,
		Calificacion:      r.Percentage,
		Fecha:             r.CompletedAt,
		ClaveIdempotencia: r.IdempotencyKey,
	}
}

func (row resultRow) toDomain() domain.QuizResult {
	return domain.QuizResult{
		ID:             row.ID,
		UserID:         row.UsuarioID,
		Email:          row.Email,
		Correct:        row.Correctas,
		Total:          row.Preguntas,
		Percentage:     row.Calificacion,
		CompletedAt:    row.Fecha.UTC(),
		IdempotencyKey: row.ClaveIdempotencia,
	}
}

func rowsToDomain(rows []resultRow) []domain.QuizResult {
	out := make([]domain.QuizResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
