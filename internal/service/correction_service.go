package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/alphaani/marks-management-api/internal/dto"
	"github.com/alphaani/marks-management-api/internal/models"
	"github.com/alphaani/marks-management-api/internal/repository"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
)

const correctionStatsCachePattern = "corrections:stats:*"

type correctionStore interface {
	Create(ctx context.Context, request *models.CorrectionRequest) error
	GetByID(ctx context.Context, id string) (*models.CorrectionRequest, error)
	List(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionRequest, error)
	ListPendingForTeacher(ctx context.Context, teacherUserID string) ([]models.CorrectionRequest, error)
	UpdateTeacherDecision(ctx context.Context, params repository.DecisionParams) error
	UpdateAdminReject(ctx context.Context, params repository.DecisionParams) error
	ApproveAndResolve(ctx context.Context, params repository.ApproveParams) (*models.Mark, error)
	CountByStatus(ctx context.Context, filter models.CorrectionFilter) (map[models.CorrectionStatus]int, error)
}

type correctionMarkStore interface {
	GetByID(ctx context.Context, id string) (*models.Mark, error)
	GetByTriple(ctx context.Context, studentID, subjectID, examID string) (*models.Mark, error)
}

type correctionStudentStore interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	FindByUser(ctx context.Context, userID string) (*models.Student, error)
}

type teacherResolver interface {
	FindTeacherUserForClassSubject(ctx context.Context, classID, subjectID string) (string, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CorrectionService drives the mark correction workflow: a student disputes a
// mark, the assigned teacher reviews the dispute, and an admin makes the
// final call. Admin approval writes the corrected score to the mark store in
// the same transaction as the status change.
type CorrectionService struct {
	repo      correctionStore
	marks     correctionMarkStore
	students  correctionStudentStore
	teachers  teacherResolver
	cache     statsCache
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger

	statsTTL        time.Duration
	overrideEnabled bool
}

// CorrectionServiceOption configures the service.
type CorrectionServiceOption func(*CorrectionService)

// WithStatsCache enables cached statistics with the given TTL.
func WithStatsCache(cache statsCache, ttl time.Duration) CorrectionServiceOption {
	return func(s *CorrectionService) {
		s.cache = cache
		if ttl > 0 {
			s.statsTTL = ttl
		}
	}
}

// WithAdminOverride exposes the direct pending-to-approved escalation.
func WithAdminOverride(enabled bool) CorrectionServiceOption {
	return func(s *CorrectionService) {
		s.overrideEnabled = enabled
	}
}

// NewCorrectionService constructs the service with defaults.
func NewCorrectionService(
	repo correctionStore,
	marks correctionMarkStore,
	students correctionStudentStore,
	teachers teacherResolver,
	audit auditLogger,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...CorrectionServiceOption,
) *CorrectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CorrectionService{
		repo:      repo,
		marks:     marks,
		students:  students,
		teachers:  teachers,
		audit:     audit,
		validator: validate,
		logger:    logger,
		statsTTL:  5 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit files a new correction request on behalf of the authenticated
// student. The reviewing teacher is resolved from the student's class and the
// disputed subject; without an assignment the submission is refused. When no
// mark exists for the triple the request is still accepted and approval will
// create the mark.
func (s *CorrectionService) Submit(ctx context.Context, req dto.SubmitCorrectionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	student, err := s.students.FindByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	teacherUserID, err := s.teachers.FindTeacherUserForClassSubject(ctx, student.ClassID, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoTeacherAssigned
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
	}

	request := &models.CorrectionRequest{
		StudentID:     student.ID,
		SubjectID:     req.SubjectID,
		ExamID:        req.ExamID,
		TeacherID:     teacherUserID,
		ProposedScore: req.ProposedScore,
		Status:        models.CorrectionPending,
		Reason:        strings.TrimSpace(req.Reason),
		RequestedAt:   time.Now().UTC(),
	}

	mark, err := s.marks.GetByTriple(ctx, student.ID, req.SubjectID, req.ExamID)
	switch {
	case err == nil:
		if mark.Score == req.ProposedScore {
			return nil, appErrors.Clone(appErrors.ErrValidation, "proposed score equals the recorded score")
		}
		request.MarkID = &mark.ID
		request.OriginalScore = mark.Score
	case errors.Is(err, sql.ErrNoRows):
		// no mark yet, approval will create one
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create correction request")
	}
	s.invalidateStats(ctx)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionCorrectionSubmit,
		Resource:   "correction_request",
		ResourceID: &request.ID,
		NewValues:  marshalAudit(request),
	})
	return request, nil
}

// Get loads one request enforcing actor scope: students see their own,
// teachers see requests in their review queue, admins see everything.
func (s *CorrectionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
		return request, nil
	case models.RoleTeacher:
		ok, err := s.teacherOwnsRequest(ctx, request, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, appErrors.ErrForbidden
		}
		return request, nil
	case models.RoleStudent:
		student, err := s.students.FindByUser(ctx, actor.UserID)
		if err != nil || student.ID != request.StudentID {
			return nil, appErrors.ErrForbidden
		}
		return request, nil
	default:
		return nil, appErrors.ErrForbidden
	}
}

// TeacherApprove advances a pending request to teacher_approved. Only the
// resolved teacher, or the teacher who recorded the disputed mark, may act.
func (s *CorrectionService) TeacherApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	return s.teacherDecide(ctx, id, req, actor, models.CorrectionTeacherApproved, false)
}

// TeacherReject moves a pending request to rejected. A comment explaining the
// decision is required.
func (s *CorrectionService) TeacherReject(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	return s.teacherDecide(ctx, id, req, actor, models.CorrectionRejected, true)
}

func (s *CorrectionService) teacherDecide(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims, target models.CorrectionStatus, requireComment bool) (*models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleTeacher {
		return nil, appErrors.ErrForbidden
	}
	if requireComment && strings.TrimSpace(req.Comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment is required when rejecting")
	}

	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.teacherOwnsRequest(ctx, request, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.ErrForbidden
	}
	if request.Status != models.CorrectionPending {
		return nil, appErrors.ErrInvalidTransition
	}

	now := time.Now().UTC()
	comment := optionalComment(req.Comment)
	err = s.repo.UpdateTeacherDecision(ctx, repository.DecisionParams{
		ID:        request.ID,
		Status:    target,
		DecidedAt: now,
		Comment:   comment,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidTransition
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record teacher decision")
	}

	request.Status = target
	request.TeacherDecisionAt = &now
	request.TeacherComment = comment
	s.invalidateStats(ctx)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionTeacherReview,
		Resource:   "correction_request",
		ResourceID: &request.ID,
		NewValues:  marshalAudit(request),
	})
	return request, nil
}

// AdminApprove finalises a teacher-approved request and writes the corrected
// mark atomically. On a storage failure while writing the mark the request
// keeps its previous status and the call may be retried.
func (s *CorrectionService) AdminApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, *models.Mark, error) {
	return s.adminApprove(ctx, id, req, actor, false)
}

// AdminOverrideApprove approves a request that is still awaiting teacher
// review, skipping the teacher step. It is only available when the override
// is enabled in configuration.
func (s *CorrectionService) AdminOverrideApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, *models.Mark, error) {
	if !s.overrideEnabled {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "admin override is disabled")
	}
	return s.adminApprove(ctx, id, req, actor, true)
}

func (s *CorrectionService) adminApprove(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims, fromPending bool) (*models.CorrectionRequest, *models.Mark, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, nil, appErrors.ErrForbidden
	}

	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	allowed := request.Status == models.CorrectionTeacherApproved || (fromPending && request.Status == models.CorrectionPending)
	if !allowed {
		return nil, nil, appErrors.ErrInvalidTransition
	}

	now := time.Now().UTC()
	comment := optionalComment(req.Comment)
	mark, err := s.repo.ApproveAndResolve(ctx, repository.ApproveParams{
		Request:     request,
		DecidedAt:   now,
		Comment:     comment,
		FromPending: fromPending,
	})
	if err != nil {
		var writeErr *repository.MarkWriteError
		switch {
		case errors.As(err, &writeErr):
			s.logger.Error("mark write failed during approval",
				zap.String("request_id", request.ID), zap.Error(writeErr.Err))
			return nil, nil, appErrors.Wrap(writeErr.Err, appErrors.ErrMarkWriteFailed.Code, appErrors.ErrMarkWriteFailed.Status, appErrors.ErrMarkWriteFailed.Message)
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil, appErrors.ErrInvalidTransition
		default:
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve correction")
		}
	}

	request.Status = models.CorrectionApproved
	request.AdminDecisionAt = &now
	request.AdminComment = comment
	if request.MarkID == nil && mark != nil {
		request.MarkID = &mark.ID
	}
	s.invalidateStats(ctx)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionAdminReview,
		Resource:   "correction_request",
		ResourceID: &request.ID,
		NewValues:  marshalAudit(request),
	})
	return request, mark, nil
}

// AdminReject rejects a request from either reviewable state. A comment is
// required.
func (s *CorrectionService) AdminReject(ctx context.Context, id string, req dto.DecisionRequest, actor *models.JWTClaims) (*models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if strings.TrimSpace(req.Comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment is required when rejecting")
	}

	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return nil, appErrors.ErrInvalidTransition
	}

	now := time.Now().UTC()
	comment := optionalComment(req.Comment)
	err = s.repo.UpdateAdminReject(ctx, repository.DecisionParams{
		ID:        request.ID,
		Status:    models.CorrectionRejected,
		DecidedAt: now,
		Comment:   comment,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidTransition
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record admin rejection")
	}

	request.Status = models.CorrectionRejected
	request.AdminDecisionAt = &now
	request.AdminComment = comment
	s.invalidateStats(ctx)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionAdminReview,
		Resource:   "correction_request",
		ResourceID: &request.ID,
		NewValues:  marshalAudit(request),
	})
	return request, nil
}

// PendingForTeacher returns the acting teacher's review queue: pending
// requests targeting them plus pending requests on marks they recorded.
func (s *CorrectionService) PendingForTeacher(ctx context.Context, actor *models.JWTClaims) ([]models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleTeacher {
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.ListPendingForTeacher(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return requests, nil
}

// PendingForAdmin returns every request still open for an admin decision,
// oldest first. Pending requests are included because AdminReject is legal
// before the teacher has reviewed.
func (s *CorrectionService) PendingForAdmin(ctx context.Context, actor *models.JWTClaims) ([]models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	statuses := []models.CorrectionStatus{models.CorrectionPending, models.CorrectionTeacherApproved}
	requests, err := s.repo.List(ctx, models.CorrectionFilter{Statuses: statuses})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return requests, nil
}

// HistoryForStudent returns all requests a student has filed, regardless of
// status. Students may only read their own history; admins may read any.
func (s *CorrectionService) HistoryForStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.CorrectionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
		if studentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
		}
	case models.RoleStudent:
		student, err := s.students.FindByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record for this account")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if studentID == "" {
			studentID = student.ID
		} else if studentID != student.ID {
			return nil, appErrors.ErrForbidden
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	requests, err := s.repo.List(ctx, models.CorrectionFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list correction history")
	}
	return requests, nil
}

// Statistics aggregates request counts by status, scoped to the actor:
// admins see the global picture, teachers their own queue, students their own
// requests. Results are served from cache when Redis is configured.
func (s *CorrectionService) Statistics(ctx context.Context, actor *models.JWTClaims) (*models.CorrectionStatistics, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	filter := models.CorrectionFilter{}
	cacheKey := "corrections:stats:global"
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		filter.TeacherID = actor.UserID
		cacheKey = "corrections:stats:teacher:" + actor.UserID
	case models.RoleStudent:
		student, err := s.students.FindByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record for this account")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		filter.StudentID = student.ID
		cacheKey = "corrections:stats:student:" + student.ID
	default:
		return nil, appErrors.ErrForbidden
	}

	if s.cache != nil {
		var cached models.CorrectionStatistics
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	counts, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate statistics")
	}
	stats := &models.CorrectionStatistics{
		Pending:         counts[models.CorrectionPending],
		TeacherApproved: counts[models.CorrectionTeacherApproved],
		Approved:        counts[models.CorrectionApproved],
		Rejected:        counts[models.CorrectionRejected],
		GeneratedAt:     time.Now().UTC(),
	}
	stats.Total = stats.Pending + stats.TeacherApproved + stats.Approved + stats.Rejected

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.statsTTL); err != nil {
			s.logger.Warn("failed to cache statistics", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *CorrectionService) loadRequest(ctx context.Context, id string) (*models.CorrectionRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id is required")
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "correction request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load correction request")
	}
	return request, nil
}

// teacherOwnsRequest reports whether the teacher is either the resolved
// reviewer or the recorder of the disputed mark.
func (s *CorrectionService) teacherOwnsRequest(ctx context.Context, request *models.CorrectionRequest, teacherUserID string) (bool, error) {
	if request.TeacherID == teacherUserID {
		return true, nil
	}
	if request.MarkID == nil || *request.MarkID == "" {
		return false, nil
	}
	mark, err := s.marks.GetByID(ctx, *request.MarkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}
	return mark.RecordedBy != nil && *mark.RecordedBy == teacherUserID, nil
}

func (s *CorrectionService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, correctionStatsCachePattern); err != nil {
		s.logger.Warn("failed to invalidate statistics cache", zap.Error(err))
	}
}

func (s *CorrectionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = "correction-service"
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func marshalAudit(value interface{}) []byte {
	raw, err := json.Marshal(value)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

func optionalComment(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
