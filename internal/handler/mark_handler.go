package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alphaani/marks-management-api/internal/dto"
	"github.com/alphaani/marks-management-api/internal/models"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
	"github.com/alphaani/marks-management-api/pkg/response"
)

type markService interface {
	Upsert(ctx context.Context, req dto.UpsertMarkRequest, actor *models.JWTClaims) (*models.Mark, error)
	List(ctx context.Context, query dto.MarkQuery, actor *models.JWTClaims) ([]models.Mark, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Mark, error)
}

// MarkHandler exposes REST endpoints for mark entry and reads.
type MarkHandler struct {
	service markService
}

// NewMarkHandler constructs the handler.
func NewMarkHandler(svc markService) *MarkHandler {
	return &MarkHandler{service: svc}
}

// Upsert godoc
// @Summary Record or update a mark
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body dto.UpsertMarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Router /marks [put]
func (h *MarkHandler) Upsert(c *gin.Context) {
	var req dto.UpsertMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mark payload"))
		return
	}
	mark, err := h.service.Upsert(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// List godoc
// @Summary List marks
// @Tags Marks
// @Produce json
// @Param studentId query string false "Student ID"
// @Param subjectId query string false "Subject ID"
// @Param examId query string false "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /marks [get]
func (h *MarkHandler) List(c *gin.Context) {
	query := dto.MarkQuery{
		StudentID: strings.TrimSpace(c.Query("studentId")),
		SubjectID: strings.TrimSpace(c.Query("subjectId")),
		ExamID:    strings.TrimSpace(c.Query("examId")),
	}
	marks, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// Get godoc
// @Summary Get one mark
// @Tags Marks
// @Produce json
// @Param id path string true "Mark ID"
// @Success 200 {object} response.Envelope
// @Router /marks/{id} [get]
func (h *MarkHandler) Get(c *gin.Context) {
	mark, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}
