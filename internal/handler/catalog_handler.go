package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alphaani/marks-management-api/internal/dto"
	"github.com/alphaani/marks-management-api/internal/models"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
	"github.com/alphaani/marks-management-api/pkg/response"
)

type catalogService interface {
	ListClasses(ctx context.Context) ([]models.Class, error)
	SaveClass(ctx context.Context, id string, req dto.SaveClassRequest) (*models.Class, error)
	DeleteClass(ctx context.Context, id string) error
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	SaveSubject(ctx context.Context, id string, req dto.SaveSubjectRequest) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id string) error
	ListExams(ctx context.Context) ([]models.Exam, error)
	SaveExam(ctx context.Context, id string, req dto.SaveExamRequest) (*models.Exam, error)
	DeleteExam(ctx context.Context, id string) error
}

// CatalogHandler exposes class, subject and exam management endpoints.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListClasses godoc
// @Summary List classes
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *CatalogHandler) ListClasses(c *gin.Context) {
	classes, err := h.service.ListClasses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// CreateClass godoc
// @Summary Create a class
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.SaveClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *CatalogHandler) CreateClass(c *gin.Context) {
	var req dto.SaveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class payload"))
		return
	}
	class, err := h.service.SaveClass(c.Request.Context(), "", req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// UpdateClass godoc
// @Summary Update a class
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.SaveClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *CatalogHandler) UpdateClass(c *gin.Context) {
	var req dto.SaveClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid class payload"))
		return
	}
	class, err := h.service.SaveClass(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// DeleteClass godoc
// @Summary Delete a class
// @Tags Catalog
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/{id} [delete]
func (h *CatalogHandler) DeleteClass(c *gin.Context) {
	if err := h.service.DeleteClass(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.service.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// CreateSubject godoc
// @Summary Create a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.SaveSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var req dto.SaveSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject payload"))
		return
	}
	subject, err := h.service.SaveSubject(c.Request.Context(), "", req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// UpdateSubject godoc
// @Summary Update a subject
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.SaveSubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *CatalogHandler) UpdateSubject(c *gin.Context) {
	var req dto.SaveSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject payload"))
		return
	}
	subject, err := h.service.SaveSubject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// DeleteSubject godoc
// @Summary Delete a subject
// @Tags Catalog
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *CatalogHandler) DeleteSubject(c *gin.Context) {
	if err := h.service.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListExams godoc
// @Summary List exams
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *CatalogHandler) ListExams(c *gin.Context) {
	exams, err := h.service.ListExams(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// CreateExam godoc
// @Summary Create an exam
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.SaveExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *CatalogHandler) CreateExam(c *gin.Context) {
	var req dto.SaveExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid exam payload"))
		return
	}
	exam, err := h.service.SaveExam(c.Request.Context(), "", req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// UpdateExam godoc
// @Summary Update an exam
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.SaveExamRequest true "Exam payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [put]
func (h *CatalogHandler) UpdateExam(c *gin.Context) {
	var req dto.SaveExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid exam payload"))
		return
	}
	exam, err := h.service.SaveExam(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// DeleteExam godoc
// @Summary Delete an exam
// @Tags Catalog
// @Param id path string true "Exam ID"
// @Success 204
// @Router /exams/{id} [delete]
func (h *CatalogHandler) DeleteExam(c *gin.Context) {
	if err := h.service.DeleteExam(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
