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

type employeeStore interface {
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	Delete(ctx context.Context, id string) error
}

// EmployeeService manages staff records and their class/subject assignments.
// Assignments are what route a correction request to its reviewing teacher.
type EmployeeService struct {
	repo      employeeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService constructs the service.
func NewEmployeeService(repo employeeStore, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// List returns employees matching the filter.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	employees, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	return employees, nil
}

// Get returns one employee with assignments.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return employee, nil
}

// Create registers a new employee with their assignments.
func (s *EmployeeService) Create(ctx context.Context, req dto.SaveEmployeeRequest) (*models.Employee, error) {
	employee, err := s.buildEmployee(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}
	return employee, nil
}

// Update replaces an employee and rewrites the assignment set.
func (s *EmployeeService) Update(ctx context.Context, id string, req dto.SaveEmployeeRequest) (*models.Employee, error) {
	employee, err := s.buildEmployee(req)
	if err != nil {
		return nil, err
	}
	employee.ID = id
	if err := s.repo.Update(ctx, employee); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}
	return employee, nil
}

// Delete removes an employee and their assignments.
func (s *EmployeeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete employee")
	}
	return nil
}

func (s *EmployeeService) buildEmployee(req dto.SaveEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	employee := &models.Employee{
		UserID:        req.UserID,
		FullName:      req.FullName,
		EmployeeType:  req.EmployeeType,
		Salary:        req.Salary,
		DateOfJoining: req.DateOfJoining,
	}
	seen := make(map[string]struct{}, len(req.Assignments))
	for _, a := range req.Assignments {
		key := a.ClassID + "/" + a.SubjectID
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate class/subject assignment")
		}
		seen[key] = struct{}{}
		employee.Assignments = append(employee.Assignments, models.EmployeeAssignment{
			ClassID:   a.ClassID,
			SubjectID: a.SubjectID,
		})
	}
	return employee, nil
}
