package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alphaani/marks-management-api/internal/models"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
	"github.com/alphaani/marks-management-api/pkg/export"
)

type exportMarkStore interface {
	List(ctx context.Context, filter models.MarkFilter) ([]models.Mark, error)
}

type exportCorrectionStore interface {
	List(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionRequest, error)
}

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders mark sheets and correction histories as CSV or PDF
// downloads.
type ExportService struct {
	marks       exportMarkStore
	corrections exportCorrectionStore
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(marks exportMarkStore, corrections exportCorrectionStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		marks:       marks,
		corrections: corrections,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// MarkSheet renders the marks matching the filter.
func (s *ExportService) MarkSheet(ctx context.Context, filter models.MarkFilter, format ExportFormat) (*ExportFile, error) {
	marks, err := s.marks.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Subject", "Exam", "Score", "Recorded At"},
	}
	for _, mark := range marks {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":     mark.StudentID,
			"Subject":     mark.SubjectID,
			"Exam":        mark.ExamID,
			"Score":       strconv.Itoa(mark.Score),
			"Recorded At": mark.RecordedAt.Format(time.RFC3339),
		})
	}
	return s.render(dataset, "mark-sheet", "Mark Sheet", format)
}

// CorrectionHistory renders the correction requests matching the filter.
func (s *ExportService) CorrectionHistory(ctx context.Context, filter models.CorrectionFilter, format ExportFormat) (*ExportFile, error) {
	requests, err := s.corrections.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load corrections for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Subject", "Exam", "Original", "Proposed", "Status", "Requested At"},
	}
	for _, request := range requests {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":      request.StudentID,
			"Subject":      request.SubjectID,
			"Exam":         request.ExamID,
			"Original":     strconv.Itoa(request.OriginalScore),
			"Proposed":     strconv.Itoa(request.ProposedScore),
			"Status":       string(request.Status),
			"Requested At": request.RequestedAt.Format(time.RFC3339),
		})
	}
	return s.render(dataset, "correction-history", "Correction History", format)
}

func (s *ExportService) render(dataset export.Dataset, baseName, title string, format ExportFormat) (*ExportFile, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			FileName:    fmt.Sprintf("%s-%s.csv", baseName, stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			FileName:    fmt.Sprintf("%s-%s.pdf", baseName, stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
