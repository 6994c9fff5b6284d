package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"github.com/yashrajoria/catalog-import/models"
	"github.com/yashrajoria/catalog-import/repository"
)

const historySheet = "Import History"

var historyColumns = []string{
	"Import Date", "Type", "Method", "Processed", "Imported", "Failed", "Skipped", "Seconds", "Errors",
}

// ReportService renders import history for download.
type ReportService struct {
	stats repository.ImportStatisticRepository
	limit int
}

func NewReportService(stats repository.ImportStatisticRepository) *ReportService {
	return &ReportService{stats: stats, limit: 500}
}

// HistoryWorkbook returns an XLSX workbook with one row per import run, newest first.
func (r *ReportService) HistoryWorkbook(ctx context.Context, storeID uuid.UUID) ([]byte, error) {
	rows, err := r.stats.ListHistory(ctx, storeID, r.limit)
	if err != nil {
		return nil, fmt.Errorf("list import history: %w", err)
	}
	return renderHistory(rows)
}

func renderHistory(rows []models.ImportStatistic) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range historyColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(historySheet, cell, h); err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(historySheet, cell, cell, headerStyle)
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(historySheet, col, col, 16)
	}
	_ = f.SetColWidth(historySheet, "A", "A", 22)
	_ = f.SetColWidth(historySheet, "I", "I", 60)

	for i, s := range rows {
		var errs string
		if s.ErrorDetails != nil {
			errs = *s.ErrorDetails
		}
		values := []any{
			s.ImportDate.UTC().Format("2006-01-02 15:04:05"),
			s.ImportType,
			s.ImportMethod,
			s.TotalProcessed,
			s.SuccessfulImports,
			s.FailedImports,
			s.SkippedImports,
			s.ProcessingTimeSeconds,
			errs,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(historySheet, cell, &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
