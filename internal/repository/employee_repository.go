package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alphaani/marks-management-api/internal/models"
)

const employeeColumns = `id, user_id, full_name, employee_type, salary, date_of_joining, created_at, updated_at`

// EmployeeRepository persists employees and their class/subject assignments.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByID fetches an employee with their assignments.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	query := fmt.Sprintf("SELECT %s FROM employees WHERE id = $1", employeeColumns)
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		return nil, err
	}
	assignments, err := r.ListAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	employee.Assignments = assignments
	return &employee, nil
}

// List returns employees matching the filter ordered by name.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString("SELECT ")
	builder.WriteString(employeeColumns)
	builder.WriteString(" FROM employees")

	conditions := make([]string, 0, 2)
	if filter.EmployeeType != "" {
		args = append(args, filter.EmployeeType)
		conditions = append(conditions, fmt.Sprintf("employee_type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("full_name ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY full_name ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// Create inserts an employee and their assignments in one transaction.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin employee tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO employees (id, user_id, full_name, employee_type, salary, date_of_joining, created_at, updated_at)
	VALUES (:id, :user_id, :full_name, :employee_type, :salary, :date_of_joining, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	if err := r.insertAssignments(ctx, tx, employee); err != nil {
		return err
	}
	return tx.Commit()
}

// Update replaces the employee fields and rewrites the assignment set.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin employee tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE employees
	SET user_id = :user_id, full_name = :full_name, employee_type = :employee_type,
	    salary = :salary, date_of_joining = :date_of_joining, updated_at = :updated_at
	WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, query, employee)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check employee update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM employee_assignments WHERE employee_id = $1`, employee.ID); err != nil {
		return fmt.Errorf("clear employee assignments: %w", err)
	}
	if err := r.insertAssignments(ctx, tx, employee); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes an employee and their assignments.
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check employee delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAssignments returns the class/subject pairs assigned to an employee.
func (r *EmployeeRepository) ListAssignments(ctx context.Context, employeeID string) ([]models.EmployeeAssignment, error) {
	const query = `SELECT id, employee_id, class_id, subject_id, created_at
	FROM employee_assignments WHERE employee_id = $1 ORDER BY created_at ASC`
	var assignments []models.EmployeeAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, employeeID); err != nil {
		return nil, fmt.Errorf("list employee assignments: %w", err)
	}
	return assignments, nil
}

// FindTeacherUserForClassSubject resolves the user id of the teacher assigned
// to teach the subject in the class. sql.ErrNoRows means no assignment or an
// assignment without a linked user account.
func (r *EmployeeRepository) FindTeacherUserForClassSubject(ctx context.Context, classID, subjectID string) (string, error) {
	const query = `
SELECT e.user_id
FROM employee_assignments ea
JOIN employees e ON e.id = ea.employee_id
WHERE ea.class_id = $1 AND ea.subject_id = $2 AND e.user_id IS NOT NULL
ORDER BY ea.created_at ASC
LIMIT 1`
	var userID string
	if err := r.db.GetContext(ctx, &userID, query, classID, subjectID); err != nil {
		return "", err
	}
	return userID, nil
}

func (r *EmployeeRepository) insertAssignments(ctx context.Context, tx *sqlx.Tx, employee *models.Employee) error {
	const query = `INSERT INTO employee_assignments (id, employee_id, class_id, subject_id, created_at)
	VALUES (:id, :employee_id, :class_id, :subject_id, :created_at)`
	for i := range employee.Assignments {
		assignment := &employee.Assignments[i]
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		assignment.EmployeeID = employee.ID
		if assignment.CreatedAt.IsZero() {
			assignment.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, assignment); err != nil {
			return fmt.Errorf("create employee assignment: %w", err)
		}
	}
	return nil
}
