package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alphaani/marks-management-api/internal/dto"
	"github.com/alphaani/marks-management-api/internal/models"
	"github.com/alphaani/marks-management-api/internal/service"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
	"github.com/alphaani/marks-management-api/pkg/response"
)

type correctionService interface {
	Submit(ctx context.Context, req dto.SubmitCorrectionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	TeacherApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	TeacherReject(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	AdminApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, *models.Mark, error)
	AdminOverrideApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, *models.Mark, error)
	AdminReject(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error)
	PendingForTeacher(ctx context.Context, actor *models.JWTClaims) ([]models.CorrectionRequest, error)
	PendingForAdmin(ctx context.Context, actor *models.JWTClaims) ([]models.CorrectionRequest, error)
	HistoryForStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.CorrectionRequest, error)
	Statistics(ctx context.Context, actor *models.JWTClaims) (*models.CorrectionStatistics, error)
}

// CorrectionHandler exposes REST endpoints for the correction workflow.
type CorrectionHandler struct {
	service correctionService
	metrics *service.MetricsService
}

// NewCorrectionHandler constructs the handler.
func NewCorrectionHandler(svc correctionService, metrics *service.MetricsService) *CorrectionHandler {
	return &CorrectionHandler{service: svc, metrics: metrics}
}

// Submit godoc
// @Summary Submit a mark correction request
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.SubmitCorrectionRequest true "Correction payload"
// @Success 201 {object} response.Envelope
// @Router /corrections [post]
func (h *CorrectionHandler) Submit(c *gin.Context) {
	var req dto.SubmitCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid correction payload"))
		return
	}
	request, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSubmission()
	response.Created(c, request)
}

// Get godoc
// @Summary Get one correction request
// @Tags Corrections
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id} [get]
func (h *CorrectionHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// TeacherApprove godoc
// @Summary Approve a pending request as the reviewing teacher
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/teacher-approve [post]
func (h *CorrectionHandler) TeacherApprove(c *gin.Context) {
	req, ok := h.bindDecision(c)
	if !ok {
		return
	}
	request, err := h.service.TeacherApprove(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordDecision("teacher", "approved")
	response.JSON(c, http.StatusOK, request, nil)
}

// TeacherReject godoc
// @Summary Reject a pending request as the reviewing teacher
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Rejection comment"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/teacher-reject [post]
func (h *CorrectionHandler) TeacherReject(c *gin.Context) {
	req, ok := h.bindDecision(c)
	if !ok {
		return
	}
	request, err := h.service.TeacherReject(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordDecision("teacher", "rejected")
	response.JSON(c, http.StatusOK, request, nil)
}

// AdminApprove godoc
// @Summary Finalise a teacher-approved request and write the corrected mark
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/admin-approve [post]
func (h *CorrectionHandler) AdminApprove(c *gin.Context) {
	h.adminApprove(c, h.service.AdminApprove)
}

// AdminOverrideApprove godoc
// @Summary Approve a request that is still awaiting teacher review
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/admin-override-approve [post]
func (h *CorrectionHandler) AdminOverrideApprove(c *gin.Context) {
	h.adminApprove(c, h.service.AdminOverrideApprove)
}

func (h *CorrectionHandler) adminApprove(c *gin.Context, approve func(context.Context, string, dto.DecisionRequest, *models.JWTClaims) (*models.CorrectionRequest, *models.Mark, error)) {
	req, ok := h.bindDecision(c)
	if !ok {
		return
	}
	request, mark, err := approve(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrMarkWriteFailed.Code {
			h.metrics.RecordMarkWrite("failed")
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordDecision("admin", "approved")
	h.metrics.RecordMarkWrite("ok")
	response.JSON(c, http.StatusOK, gin.H{"request": request, "mark": mark}, nil)
}

// AdminReject godoc
// @Summary Reject a request as admin
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Rejection comment"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/admin-reject [post]
func (h *CorrectionHandler) AdminReject(c *gin.Context) {
	req, ok := h.bindDecision(c)
	if !ok {
		return
	}
	request, err := h.service.AdminReject(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordDecision("admin", "rejected")
	response.JSON(c, http.StatusOK, request, nil)
}

// PendingForTeacher godoc
// @Summary List the acting teacher's review queue
// @Tags Corrections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /corrections/pending/teacher [get]
func (h *CorrectionHandler) PendingForTeacher(c *gin.Context) {
	requests, err := h.service.PendingForTeacher(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// PendingForAdmin godoc
// @Summary List requests awaiting the final admin decision
// @Tags Corrections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /corrections/pending/admin [get]
func (h *CorrectionHandler) PendingForAdmin(c *gin.Context) {
	requests, err := h.service.PendingForAdmin(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// History godoc
// @Summary List a student's correction history
// @Tags Corrections
// @Produce json
// @Param studentId query string false "Student ID, defaults to the acting student"
// @Success 200 {object} response.Envelope
// @Router /corrections/history [get]
func (h *CorrectionHandler) History(c *gin.Context) {
	studentID := strings.TrimSpace(c.Query("studentId"))
	requests, err := h.service.HistoryForStudent(c.Request.Context(), studentID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Statistics godoc
// @Summary Aggregate correction counts by status
// @Tags Corrections
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /corrections/statistics [get]
func (h *CorrectionHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// bindDecision tolerates an empty body since approval comments are optional.
func (h *CorrectionHandler) bindDecision(c *gin.Context) (dto.DecisionRequest, bool) {
	var req dto.DecisionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
			return req, false
		}
	}
	return req, true
}
