// Package export renders stored quiz results as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"liver-quiz-service/internal/domain"
	"liver-quiz-service/internal/i18n"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "csv" (also the empty default) and "xlsx".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns a dated attachment name.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("quiz_results_%s.%s", now.Format("2006-01-02"), f)
}

var headers = map[string][]string{
	i18n.Spanish: {"ID", "Usuario", "Email", "Correctas", "Preguntas", "Calificación (%)", "Fecha"},
	i18n.English: {"ID", "User", "Email", "Correct", "Questions", "Score (%)", "Completed at"},
}

var sheetNames = map[string]string{
	i18n.Spanish: "Resultados",
	i18n.English: "Results",
}

func headerFor(locale string) []string {
	if h, ok := headers[locale]; ok {
		return h
	}
	return headers[i18n.Default]
}

// Write renders results in the given format.
func Write(w io.Writer, f Format, results []domain.QuizResult, locale string) error {
	if f == XLSX {
		return WriteXLSX(w, results, locale)
	}
	return WriteCSV(w, results, locale)
}

// WriteCSV writes a UTF-8 CSV with a BOM so spreadsheet apps detect the encoding.
func WriteCSV(w io.Writer, results []domain.QuizResult, locale string) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(headerFor(locale)); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			sanitizeForExcel(i18n.DisplayName(locale, r.Email)),
			sanitizeForExcel(r.Email),
			strconv.Itoa(r.Correct),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Percentage),
			r.CompletedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook through excelize's stream writer.
func WriteXLSX(w io.Writer, results []domain.QuizResult, locale string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet, ok := sheetNames[locale]
	if !ok {
		sheet = sheetNames[i18n.Default]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := headerFor(locale)
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.ID,
			sanitizeForExcel(i18n.DisplayName(locale, r.Email)),
			sanitizeForExcel(r.Email),
			r.Correct,
			r.Total,
			r.Percentage,
			r.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

// sanitizeForExcel neutralises cells that a spreadsheet would evaluate as a formula.
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
