// Package xlsx renders verification history as a spreadsheet.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docverify/internal/core/domain"
)

const (
	resultsSheet    = "Verifications"
	mismatchesSheet = "Mismatches"
	failuresSheet   = "Failures"
)

type Exporter struct {
	logger *slog.Logger
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// Export writes one row per result, plus detail sheets for mismatches and document failures.
func (e *Exporter) Export(ctx context.Context, results []domain.VerificationResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}
	for _, name := range []string{mismatchesSheet, failuresSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("xlsx new sheet %s: %w", name, err)
		}
	}
	activeIndex, _ := f.GetSheetIndex(resultsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, resultsSheet, 1, []any{
		"Verification ID", "Cycle ID", "Subject ID", "Timestamp", "Verified", "Risk Score",
		"Field Mismatch Risk", "Document Quality Risk", "Consistency Risk",
		"Mismatches", "Ambiguities", "Failures", "Notes",
	})
	writeRow(f, mismatchesSheet, 1, []any{"Verification ID", "Field", "Severity", "Left Source", "Left Value", "Right Source", "Right Value"})
	writeRow(f, failuresSheet, 1, []any{"Verification ID", "Document", "Kind", "Message"})

	mismatchRow, failureRow := 2, 2
	for i, r := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		writeRow(f, resultsSheet, i+2, []any{
			r.ID,
			r.CycleID,
			r.SubjectID,
			r.Timestamp.UTC().Format(time.RFC3339),
			yesNo(r.Verified),
			r.RiskScore,
			r.FieldMismatchRisk,
			r.DocumentQualityRisk,
			r.ConsistencyRisk,
			len(r.Mismatches),
			len(r.Ambiguities),
			len(r.Failures),
			r.Notes,
		})
		for _, m := range r.Mismatches {
			writeRow(f, mismatchesSheet, mismatchRow, []any{
				r.ID, string(m.Field), strings.ToUpper(string(m.Severity)),
				m.SourceLeft.String(), m.ValueLeft, m.SourceRight.String(), m.ValueRight,
			})
			mismatchRow++
		}
		for _, fl := range r.Failures {
			writeRow(f, failuresSheet, failureRow, []any{r.ID, fl.Document.String(), string(fl.Kind), fl.Message})
			failureRow++
		}
	}

	_ = f.SetColWidth(resultsSheet, "A", "C", 38)
	_ = f.SetColWidth(resultsSheet, "D", "D", 22)
	_ = f.SetColWidth(resultsSheet, "E", "L", 14)
	_ = f.SetColWidth(resultsSheet, "M", "M", 72)
	_ = f.SetColWidth(mismatchesSheet, "A", "A", 38)
	_ = f.SetColWidth(mismatchesSheet, "B", "G", 24)
	_ = f.SetColWidth(failuresSheet, "A", "A", 38)
	_ = f.SetColWidth(failuresSheet, "B", "C", 22)
	_ = f.SetColWidth(failuresSheet, "D", "D", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"rows", len(results),
		"mismatch_rows", mismatchRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
