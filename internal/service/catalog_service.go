package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/alphaani/marks-management-api/internal/dto"
	"github.com/alphaani/marks-management-api/internal/models"
	appErrors "github.com/alphaani/marks-management-api/pkg/errors"
)

type catalogStore interface {
	ListClasses(ctx context.Context) ([]models.Class, error)
	GetClass(ctx context.Context, id string) (*models.Class, error)
	SaveClass(ctx context.Context, class *models.Class) error
	DeleteClass(ctx context.Context, id string) error
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	SaveSubject(ctx context.Context, subject *models.Subject) error
	DeleteSubject(ctx context.Context, id string) error
	ListExams(ctx context.Context) ([]models.Exam, error)
	GetExam(ctx context.Context, id string) (*models.Exam, error)
	SaveExam(ctx context.Context, exam *models.Exam) error
	DeleteExam(ctx context.Context, id string) error
}

// CatalogService manages the classes, subjects and exams marks are recorded
// against. Write access is restricted to admins at the routing layer.
type CatalogService struct {
	repo      catalogStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(repo catalogStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, validator: validate, logger: logger}
}

// ListClasses returns all classes.
func (s *CatalogService) ListClasses(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// SaveClass creates or updates a class. An empty id means create.
func (s *CatalogService) SaveClass(ctx context.Context, id string, req dto.SaveClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{ID: id, Name: req.Name, Status: entityStatus(req.Status)}
	if id != "" {
		existing, err := s.repo.GetClass(ctx, id)
		if err != nil {
			return nil, mapCatalogErr(err, "class not found", "failed to load class")
		}
		class.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.SaveClass(ctx, class); err != nil {
		return nil, mapCatalogErr(err, "class not found", "failed to save class")
	}
	return class, nil
}

// DeleteClass removes a class.
func (s *CatalogService) DeleteClass(ctx context.Context, id string) error {
	if err := s.repo.DeleteClass(ctx, id); err != nil {
		return mapCatalogErr(err, "class not found", "failed to delete class")
	}
	return nil
}

// ListSubjects returns all subjects.
func (s *CatalogService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// SaveSubject creates or updates a subject.
func (s *CatalogService) SaveSubject(ctx context.Context, id string, req dto.SaveSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{ID: id, Name: req.Name, Code: req.Code, Status: entityStatus(req.Status)}
	if id != "" {
		existing, err := s.repo.GetSubject(ctx, id)
		if err != nil {
			return nil, mapCatalogErr(err, "subject not found", "failed to load subject")
		}
		subject.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.SaveSubject(ctx, subject); err != nil {
		return nil, mapCatalogErr(err, "subject not found", "failed to save subject")
	}
	return subject, nil
}

// DeleteSubject removes a subject.
func (s *CatalogService) DeleteSubject(ctx context.Context, id string) error {
	if err := s.repo.DeleteSubject(ctx, id); err != nil {
		return mapCatalogErr(err, "subject not found", "failed to delete subject")
	}
	return nil
}

// ListExams returns all exams.
func (s *CatalogService) ListExams(ctx context.Context) ([]models.Exam, error) {
	exams, err := s.repo.ListExams(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// SaveExam creates or updates an exam.
func (s *CatalogService) SaveExam(ctx context.Context, id string, req dto.SaveExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	exam := &models.Exam{ID: id, Name: req.Name, Type: req.Type, Date: req.Date, Status: entityStatus(req.Status)}
	if id != "" {
		existing, err := s.repo.GetExam(ctx, id)
		if err != nil {
			return nil, mapCatalogErr(err, "exam not found", "failed to load exam")
		}
		exam.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.SaveExam(ctx, exam); err != nil {
		return nil, mapCatalogErr(err, "exam not found", "failed to save exam")
	}
	return exam, nil
}

// DeleteExam removes an exam.
func (s *CatalogService) DeleteExam(ctx context.Context, id string) error {
	if err := s.repo.DeleteExam(ctx, id); err != nil {
		return mapCatalogErr(err, "exam not found", "failed to delete exam")
	}
	return nil
}

func entityStatus(value string) models.EntityStatus {
	if value == "" {
		return models.StatusActive
	}
	return models.EntityStatus(value)
}

func mapCatalogErr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
