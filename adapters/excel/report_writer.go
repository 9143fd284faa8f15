// Package excel materializes the derived analysis tables as a workbook
// artifact: one sheet of aggregate cells, one of hypothesis results, and a
// summary sheet pinning run and corpus identity. Narrative report writing
// stays external; this adapter only exports the tables.
package excel

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"feastbench/domain/analysis"
	"feastbench/internal"
	"feastbench/ports"
)

const (
	sheetSummary    = "Summary"
	sheetCells      = "Cells"
	sheetHypotheses = "Hypotheses"
)

// ReportWriter writes analysis reports as xlsx workbooks
type ReportWriter struct {
	logger *internal.Logger
}

// NewReportWriter creates a workbook report writer
func NewReportWriter(logger *internal.Logger) *ReportWriter {
	return &ReportWriter{logger: logger.With("ReportWriter")}
}

// Write renders the report tables into a workbook at path
func (w *ReportWriter) Write(_ context.Context, report *analysis.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummary(f, report); err != nil {
		return err
	}
	if err := w.writeCells(f, report.Cells); err != nil {
		return err
	}
	if err := w.writeHypotheses(f, report.Results); err != nil {
		return err
	}

	// Drop the default sheet so Summary is first.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report workbook: %w", err)
	}
	w.logger.Info("wrote report workbook %s: %d cells, %d hypotheses", path, len(report.Cells), len(report.Results))
	return nil
}

func (w *ReportWriter) writeSummary(f *excelize.File, report *analysis.Report) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Run ID", report.RunID.String()},
		{"Corpus Hash", report.CorpusHash.String()},
		{"Aggregate Cells", len(report.Cells)},
		{"Hypothesis Results", len(report.Results)},
		{"Created At", report.CreatedAt.Time().Format(time.RFC3339)},
	}
	if report.Spread.Cells > 0 {
		rows = append(rows,
			[]interface{}{"Powered Cells", report.Spread.Cells},
			[]interface{}{"Rate Mean", report.Spread.Mean},
			[]interface{}{"Rate Median", report.Spread.Median},
			[]interface{}{"Rate Std Dev", report.Spread.StdDev},
			[]interface{}{"Rate Min", report.Spread.Min},
			[]interface{}{"Rate Max", report.Spread.Max},
		)
	}
	return writeRows(f, sheetSummary, rows)
}

func (w *ReportWriter) writeCells(f *excelize.File, cells []analysis.AggregateCell) error {
	if _, err := f.NewSheet(sheetCells); err != nil {
		return fmt.Errorf("failed to create cells sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Cell", "N", "Successes", "Rate", "Wilson Lower", "Wilson Upper", "Refusals", "Malformed", "Underpowered", "Reason"},
	}
	for _, c := range cells {
		rows = append(rows, []interface{}{
			c.Key.String(), c.N, c.Successes, c.Rate, c.Wilson.Lower, c.Wilson.Upper,
			c.Refusals, c.Malformed, c.Underpowered, c.ReasonCode,
		})
	}
	return writeRows(f, sheetCells, rows)
}

func (w *ReportWriter) writeHypotheses(f *excelize.File, results []analysis.HypothesisResult) error {
	if _, err := f.NewSheet(sheetHypotheses); err != nil {
		return fmt.Errorf("failed to create hypotheses sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Test ID", "Family Hash", "Mode", "Statistic", "P Value", "P Adjusted", "Effect Size", "N", "Underpowered", "Detail"},
	}
	for _, r := range results {
		rows = append(rows, []interface{}{
			r.TestID, r.FamilyHash.String(), string(r.Mode), r.Statistic, r.PValue, r.PAdjusted,
			r.EffectSize, r.N, r.Underpowered, r.Detail,
		})
	}
	return writeRows(f, sheetHypotheses, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

var _ ports.ReportWriter = (*ReportWriter)(nil)
