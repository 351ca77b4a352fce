// Package export writes validated-record result sets as XLSX workbooks for
// download from the dashboard.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"docconsole/internal/core/domain"
)

const sheetName = "Validated Records"

var header = []string{"Filename", "Relative Path", "Date Created", "Process Start", "Process End", "Duration Seconds"}

// ValidatedWorkbook renders records into a single-sheet workbook. Missing
// timestamps leave their cells empty rather than writing a zero time.
func ValidatedWorkbook(modelName string, records []domain.ValidatedRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, rec := range records {
		row := i + 2
		values := []any{
			rec.Filename,
			rec.RelativePath,
			rec.DateCreated.UTC().Format(time.RFC3339),
			formatTime(rec.ProcessStartTime),
			formatTime(rec.ProcessEndTime),
			durationSeconds(rec),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook for %s: %w", modelName, err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// durationSeconds mirrors the latency aggregates: both timestamps present
// and start not after end, otherwise blank.
func durationSeconds(rec domain.ValidatedRecord) any {
	if rec.ProcessStartTime == nil || rec.ProcessEndTime == nil {
		return ""
	}
	if rec.ProcessStartTime.After(*rec.ProcessEndTime) {
		return ""
	}
	return int64(rec.ProcessEndTime.Sub(*rec.ProcessStartTime).Seconds())
}
