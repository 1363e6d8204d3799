package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alphaani/marks-management-api/internal/models"
)

const markColumns = `id, student_id, subject_id, exam_id, score, recorded_by, recorded_at, created_at, updated_at`

// MarkRepository handles mark persistence for direct teacher entry. Approved
// corrections write marks through the correction repository's transaction.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// GetByID fetches a mark by identifier.
func (r *MarkRepository) GetByID(ctx context.Context, id string) (*models.Mark, error) {
	query := fmt.Sprintf("SELECT %s FROM marks WHERE id = $1", markColumns)
	var mark models.Mark
	if err := r.db.GetContext(ctx, &mark, query, id); err != nil {
		return nil, err
	}
	return &mark, nil
}

// GetByTriple fetches the mark for one (student, subject, exam) triple.
func (r *MarkRepository) GetByTriple(ctx context.Context, studentID, subjectID, examID string) (*models.Mark, error) {
	query := fmt.Sprintf("SELECT %s FROM marks WHERE student_id = $1 AND subject_id = $2 AND exam_id = $3", markColumns)
	var mark models.Mark
	if err := r.db.GetContext(ctx, &mark, query, studentID, subjectID, examID); err != nil {
		return nil, err
	}
	return &mark, nil
}

// List returns marks matching the filter, most recently recorded first.
func (r *MarkRepository) List(ctx context.Context, filter models.MarkFilter) ([]models.Mark, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString("SELECT ")
	builder.WriteString(markColumns)
	builder.WriteString(" FROM marks")

	conditions := make([]string, 0, 4)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.ExamID != "" {
		args = append(args, filter.ExamID)
		conditions = append(conditions, fmt.Sprintf("exam_id = $%d", len(args)))
	}
	if filter.RecordedBy != "" {
		args = append(args, filter.RecordedBy)
		conditions = append(conditions, fmt.Sprintf("recorded_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY recorded_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// Upsert inserts or updates the mark for a triple, attributing it to the
// recording teacher.
func (r *MarkRepository) Upsert(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.RecordedAt = now
	mark.UpdatedAt = now
	const query = `INSERT INTO marks (id, student_id, subject_id, exam_id, score, recorded_by, recorded_at, created_at, updated_at)
	VALUES (:id, :student_id, :subject_id, :exam_id, :score, :recorded_by, :recorded_at, :created_at, :updated_at)
	ON CONFLICT (student_id, subject_id, exam_id)
	DO UPDATE SET score = EXCLUDED.score, recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert mark: %w", err)
	}
	return nil
}
