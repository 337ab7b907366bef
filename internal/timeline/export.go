package timeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/fleetline/internal/domain"
	"github.com/rpattn/fleetline/pkg/validation"
)

// ExportFormat selects the export file format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
)

// ExportResult carries a rendered export ready to stream to a caller.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

var exportHeaders = []string{"Date", "Time", "Type", "Title", "Description", "User"}

// ExportTimeline renders the filtered timeline in the requested format. PDF
// is not supported and fails loudly with NOT_IMPLEMENTED rather than
// producing an empty file.
func (s *Service) ExportTimeline(ctx context.Context, workOrderID string, format ExportFormat, filters *domain.TimelineFilters) (*ExportResult, error) {
	if err := validation.WorkOrderID(workOrderID); err != nil {
		return nil, err
	}
	if err := validation.TimelineFilters(filters, s.now()); err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV, FormatXLSX:
	case FormatPDF:
		return nil, &Error{Code: CodeNotImplemented, Message: "PDF export is not implemented"}
	default:
		return nil, &validation.Error{Field: "format", Message: fmt.Sprintf("unsupported export format %q", format)}
	}

	activities, err := s.activities.ListByWorkOrder(ctx, workOrderID, filters)
	if err != nil {
		return nil, &Error{Code: CodeExport, Message: "load activities for export", Err: err}
	}

	filename := fmt.Sprintf("work-order-%s-timeline-%s.%s", workOrderID, s.now().Format("2006-01-02"), format)

	switch format {
	case FormatXLSX:
		data, err := renderXLSX(activities)
		if err != nil {
			return nil, &Error{Code: CodeExport, Message: "generate xlsx", Err: err}
		}
		return &ExportResult{
			Data:        data,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Filename:    filename,
		}, nil
	default:
		data, err := renderCSV(activities)
		if err != nil {
			return nil, &Error{Code: CodeCSVGeneration, Message: "generate csv", Err: err}
		}
		return &ExportResult{
			Data:        data,
			ContentType: "text/csv",
			Filename:    filename,
		}, nil
	}
}

func renderCSV(activities []domain.Activity) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, activity := range activities {
		if err := writer.Write(exportRow(activity)); err != nil {
			return nil, fmt.Errorf("write row for %s: %w", activity.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(activities []domain.Activity) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Timeline"
	f.SetSheetName(f.GetSheetName(0), sheet)

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, activity := range activities {
		row := exportRow(activity)
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell for row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("write row for %s: %w", activity.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// exportRow formats one activity. A zero creation timestamp yields defensive
// placeholders so one malformed row never aborts the whole export.
func exportRow(activity domain.Activity) []string {
	date, clock := "Invalid Date", "Invalid Time"
	if !activity.CreatedAt.IsZero() {
		date = activity.CreatedAt.Format("2006-01-02")
		clock = activity.CreatedAt.Format("15:04:05")
	}
	return []string{
		date,
		clock,
		string(activity.ActivityType),
		activity.Title,
		activity.Description,
		activity.UserName,
	}
}
