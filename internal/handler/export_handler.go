package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alphaani/marks-management-api/internal/models"
	"github.com/alphaani/marks-management-api/internal/service"
	"github.com/alphaani/marks-management-api/pkg/response"
)

type exportService interface {
	MarkSheet(ctx context.Context, filter models.MarkFilter, format service.ExportFormat) (*service.ExportFile, error)
	CorrectionHistory(ctx context.Context, filter models.CorrectionFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler exposes CSV/PDF download endpoints.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// MarkSheet godoc
// @Summary Download a mark sheet
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf, defaults to csv"
// @Param studentId query string false "Student ID"
// @Param subjectId query string false "Subject ID"
// @Param examId query string false "Exam ID"
// @Success 200 {file} binary
// @Router /exports/marks [get]
func (h *ExportHandler) MarkSheet(c *gin.Context) {
	filter := models.MarkFilter{
		StudentID: strings.TrimSpace(c.Query("studentId")),
		SubjectID: strings.TrimSpace(c.Query("subjectId")),
		ExamID:    strings.TrimSpace(c.Query("examId")),
	}
	file, err := h.service.MarkSheet(c.Request.Context(), filter, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeDownload(c, file)
}

// CorrectionHistory godoc
// @Summary Download correction history
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf, defaults to csv"
// @Param studentId query string false "Student ID"
// @Success 200 {file} binary
// @Router /exports/corrections [get]
func (h *ExportHandler) CorrectionHistory(c *gin.Context) {
	filter := models.CorrectionFilter{
		StudentID: strings.TrimSpace(c.Query("studentId")),
	}
	file, err := h.service.CorrectionHistory(c.Request.Context(), filter, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeDownload(c, file)
}

func exportFormat(c *gin.Context) service.ExportFormat {
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if format == "" {
		return service.FormatCSV
	}
	return service.ExportFormat(format)
}

func writeDownload(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(200, file.ContentType, file.Data)
}
