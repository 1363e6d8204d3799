package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/alphaani/marks-management-api/internal/dto"
	"github.com/alphaani/marks-management-api/internal/models"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
)

type markStore interface {
	GetByID(ctx context.Context, id string) (*models.Mark, error)
	GetByTriple(ctx context.Context, studentID, subjectID, examID string) (*models.Mark, error)
	List(ctx context.Context, filter models.MarkFilter) ([]models.Mark, error)
	Upsert(ctx context.Context, mark *models.Mark) error
}

type markStudentStore interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	FindByUser(ctx context.Context, userID string) (*models.Student, error)
}

// MarkService handles teacher mark entry and role-scoped mark reads. A
// teacher may only record marks for class/subject pairs they are assigned
// to; approved corrections write the store through their own path.
type MarkService struct {
	repo      markStore
	students  markStudentStore
	teachers  teacherResolver
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs the service.
func NewMarkService(repo markStore, students markStudentStore, teachers teacherResolver, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{repo: repo, students: students, teachers: teachers, audit: audit, validator: validate, logger: logger}
}

// Upsert records or updates the mark for one (student, subject, exam) triple.
// Admins may always write; teachers only for pairs within their assignments.
func (s *MarkService) Upsert(ctx context.Context, req dto.UpsertMarkRequest, actor *models.JWTClaims) (*models.Mark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if actor.Role == models.RoleTeacher {
		assignedUser, err := s.teachers.FindTeacherUserForClassSubject(ctx, student.ClassID, req.SubjectID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
		}
		if err != nil || assignedUser != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not assigned to this class and subject")
		}
	}

	now := time.Now().UTC()
	mark := &models.Mark{
		StudentID:  req.StudentID,
		SubjectID:  req.SubjectID,
		ExamID:     req.ExamID,
		Score:      req.Score,
		RecordedBy: &actor.UserID,
		RecordedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Upsert(ctx, mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save mark")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionMarkEntry,
		Resource:   "mark",
		ResourceID: &mark.ID,
		NewValues:  marshalAudit(mark),
	})
	return mark, nil
}

// List returns marks scoped to the actor: students only see their own,
// teachers and admins see whatever the filter selects.
func (s *MarkService) List(ctx context.Context, query dto.MarkQuery, actor *models.JWTClaims) ([]models.Mark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.MarkFilter{
		StudentID: query.StudentID,
		SubjectID: query.SubjectID,
		ExamID:    query.ExamID,
	}
	if actor.Role == models.RoleStudent {
		student, err := s.students.FindByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record for this account")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		filter.StudentID = student.ID
	}
	marks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, nil
}

// Get loads a single mark enforcing student self-scope.
func (s *MarkService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Mark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	mark, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}
	if actor.Role == models.RoleStudent {
		student, err := s.students.FindByUser(ctx, actor.UserID)
		if err != nil || student.ID != mark.StudentID {
			return nil, appErrors.ErrForbidden
		}
	}
	return mark, nil
}

func (s *MarkService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = "mark-service"
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
