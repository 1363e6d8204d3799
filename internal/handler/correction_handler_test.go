package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/alphaani/marks-management-api/internal/dto"
	internalmiddleware "github.com/alphaani/marks-management-api/internal/middleware"
	"github.com/alphaani/marks-management-api/internal/models"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
)

type correctionServiceMock struct {
	submitErr  error
	approveErr error
	request    models.CorrectionRequest
}

func (m *correctionServiceMock) Submit(ctx context.Context, req dto.SubmitCorrectionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	request := m.request
	request.ProposedScore = req.ProposedScore
	return &request, nil
}

func (m *correctionServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	request := m.request
	request.ID = id
	return &request, nil
}

func (m *correctionServiceMock) TeacherApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	request := m.request
	request.Status = models.CorrectionTeacherApproved
	return &request, nil
}

func (m *correctionServiceMock) TeacherReject(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	request := m.request
	request.Status = models.CorrectionRejected
	return &request, nil
}

func (m *correctionServiceMock) AdminApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, *models.Mark, error) {
	if m.approveErr != nil {
		return nil, nil, m.approveErr
	}
	request := m.request
	request.Status = models.CorrectionApproved
	return &request, &models.Mark{ID: "mark-1", Score: request.ProposedScore}, nil
}

func (m *correctionServiceMock) AdminOverrideApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, *models.Mark, error) {
	return m.AdminApprove(ctx, id, req, actor)
}

func (m *correctionServiceMock) AdminReject(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	request := m.request
	request.Status = models.CorrectionRejected
	return &request, nil
}

func (m *correctionServiceMock) PendingForTeacher(ctx context.Context, actor *models.JWTClaims) ([]models.CorrectionRequest, error) {
	return []models.CorrectionRequest{m.request}, nil
}

func (m *correctionServiceMock) PendingForAdmin(ctx context.Context, actor *models.JWTClaims) ([]models.CorrectionRequest, error) {
	return []models.CorrectionRequest{m.request}, nil
}

func (m *correctionServiceMock) HistoryForStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.CorrectionRequest, error) {
	return []models.CorrectionRequest{m.request}, nil
}

func (m *correctionServiceMock) Statistics(ctx context.Context, actor *models.JWTClaims) (*models.CorrectionStatistics, error) {
	return &models.CorrectionStatistics{Pending: 1, Total: 1}, nil
}

func buildCorrectionRouter(mock *correctionServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "test-user",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	h := NewCorrectionHandler(mock, nil)
	corrections := router.Group("/corrections")
	corrections.POST("", internalmiddleware.RequireRoles(models.RoleStudent), h.Submit)
	corrections.GET("/history", h.History)
	corrections.GET("/statistics", h.Statistics)
	corrections.GET("/pending/teacher", internalmiddleware.RequireRoles(models.RoleTeacher), h.PendingForTeacher)
	corrections.GET("/pending/admin", internalmiddleware.RequireRoles(models.RoleAdmin), h.PendingForAdmin)
	corrections.GET("/:id", h.Get)
	corrections.POST("/:id/teacher-approve", internalmiddleware.RequireRoles(models.RoleTeacher), h.TeacherApprove)
	corrections.POST("/:id/teacher-reject", internalmiddleware.RequireRoles(models.RoleTeacher), h.TeacherReject)
	corrections.POST("/:id/admin-approve", internalmiddleware.RequireRoles(models.RoleAdmin), h.AdminApprove)
	corrections.POST("/:id/admin-reject", internalmiddleware.RequireRoles(models.RoleAdmin), h.AdminReject)
	return router
}

func performCorrectionRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCorrectionRoutes(t *testing.T) {
	mock := &correctionServiceMock{request: models.CorrectionRequest{
		ID:            "req-1",
		StudentID:     "student-1",
		Status:        models.CorrectionPending,
		OriginalScore: 78,
		ProposedScore: 95,
	}}
	router := buildCorrectionRouter(mock)

	t.Run("submit success", func(t *testing.T) {
		body := bytes.NewBufferString(`{"subjectId":"math","examId":"midterm","proposedScore":95,"reason":"misgraded"}`)
		req, _ := http.NewRequest(http.MethodPost, "/corrections", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"proposed_score":95`)
	})

	t.Run("submit requires authentication", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("submit forbidden for teachers", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("submit rejects malformed payload", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(`{"proposedScore":"high"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("teacher approve without body", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/corrections/req-1/teacher-approve", nil)
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"teacher_approved"`)
	})

	t.Run("admin approve returns request and mark", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/corrections/req-1/admin-approve", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"mark"`)
		require.Contains(t, resp.Body.String(), `"status":"approved"`)
	})

	t.Run("admin approve surfaces mark write failure", func(t *testing.T) {
		mock.approveErr = appErrors.ErrMarkWriteFailed
		defer func() { mock.approveErr = nil }()
		req, _ := http.NewRequest(http.MethodPost, "/corrections/req-1/admin-approve", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusBadGateway, resp.Code)
		require.Contains(t, resp.Body.String(), "MARK_WRITE_FAILED")
	})

	t.Run("admin approve surfaces invalid transition", func(t *testing.T) {
		mock.approveErr = appErrors.ErrInvalidTransition
		defer func() { mock.approveErr = nil }()
		req, _ := http.NewRequest(http.MethodPost, "/corrections/req-1/admin-approve", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("pending queues are role gated", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/corrections/pending/admin", nil)
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)

		req, _ = http.NewRequest(http.MethodGet, "/corrections/pending/teacher", nil)
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp = performCorrectionRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("statistics", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/corrections/statistics", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performCorrectionRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"total":1`)
	})
}
