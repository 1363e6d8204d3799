package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alphaani/marks-management-api/internal/models"
)

// CatalogRepository persists the reference entities marks hang off: classes,
// subjects, and exams.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListClasses returns all classes ordered by name.
func (r *CatalogRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes,
		`SELECT id, name, status, created_at, updated_at FROM classes ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// GetClass fetches a class by identifier.
func (r *CatalogRepository) GetClass(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	if err := r.db.GetContext(ctx, &class,
		`SELECT id, name, status, created_at, updated_at FROM classes WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// SaveClass inserts or updates a class.
func (r *CatalogRepository) SaveClass(ctx context.Context, class *models.Class) error {
	now := time.Now().UTC()
	class.UpdatedAt = now
	if class.ID == "" {
		class.ID = uuid.NewString()
		class.CreatedAt = now
		const query = `INSERT INTO classes (id, name, status, created_at, updated_at)
		VALUES (:id, :name, :status, :created_at, :updated_at)`
		if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
			return fmt.Errorf("create class: %w", err)
		}
		return nil
	}
	const query = `UPDATE classes SET name = :name, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, class)
	return checkRows(result, err, "update class")
}

// DeleteClass removes a class row.
func (r *CatalogRepository) DeleteClass(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	return checkRows(result, err, "delete class")
}

// ListSubjects returns all subjects ordered by code.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects,
		`SELECT id, name, code, status, created_at, updated_at FROM subjects ORDER BY code ASC`); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// GetSubject fetches a subject by identifier.
func (r *CatalogRepository) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject,
		`SELECT id, name, code, status, created_at, updated_at FROM subjects WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// SaveSubject inserts or updates a subject.
func (r *CatalogRepository) SaveSubject(ctx context.Context, subject *models.Subject) error {
	now := time.Now().UTC()
	subject.UpdatedAt = now
	if subject.ID == "" {
		subject.ID = uuid.NewString()
		subject.CreatedAt = now
		const query = `INSERT INTO subjects (id, name, code, status, created_at, updated_at)
		VALUES (:id, :name, :code, :status, :created_at, :updated_at)`
		if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
			return fmt.Errorf("create subject: %w", err)
		}
		return nil
	}
	const query = `UPDATE subjects SET name = :name, code = :code, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, subject)
	return checkRows(result, err, "update subject")
}

// DeleteSubject removes a subject row.
func (r *CatalogRepository) DeleteSubject(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	return checkRows(result, err, "delete subject")
}

// ListExams returns all exams, most recent first.
func (r *CatalogRepository) ListExams(ctx context.Context) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams,
		`SELECT id, name, type, date, status, created_at, updated_at FROM exams ORDER BY date DESC`); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// GetExam fetches an exam by identifier.
func (r *CatalogRepository) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam,
		`SELECT id, name, type, date, status, created_at, updated_at FROM exams WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// SaveExam inserts or updates an exam.
func (r *CatalogRepository) SaveExam(ctx context.Context, exam *models.Exam) error {
	now := time.Now().UTC()
	exam.UpdatedAt = now
	if exam.ID == "" {
		exam.ID = uuid.NewString()
		exam.CreatedAt = now
		const query = `INSERT INTO exams (id, name, type, date, status, created_at, updated_at)
		VALUES (:id, :name, :type, :date, :status, :created_at, :updated_at)`
		if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
			return fmt.Errorf("create exam: %w", err)
		}
		return nil
	}
	const query = `UPDATE exams SET name = :name, type = :type, date = :date, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, exam)
	return checkRows(result, err, "update exam")
}

// DeleteExam removes an exam row.
func (r *CatalogRepository) DeleteExam(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return checkRows(result, err, "delete exam")
}

func checkRows(result sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
