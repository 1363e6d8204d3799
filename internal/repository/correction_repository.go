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

const correctionColumns = `id, mark_id, student_id, subject_id, exam_id, teacher_id,
       original_score, proposed_score, status, reason, requested_at,
       teacher_decision_at, teacher_comment, admin_decision_at, admin_comment`

// CorrectionRepository persists correction workflow data. Every status
// transition is a compare-and-set on the current status so that concurrent
// decisions on the same request cannot both win.
type CorrectionRepository struct {
	db *sqlx.DB
}

// NewCorrectionRepository constructs the repository.
func NewCorrectionRepository(db *sqlx.DB) *CorrectionRepository {
	return &CorrectionRepository{db: db}
}

// Create inserts a new correction request row.
func (r *CorrectionRepository) Create(ctx context.Context, request *models.CorrectionRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.CorrectionPending
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO correction_requests
	(id, mark_id, student_id, subject_id, exam_id, teacher_id, original_score, proposed_score, status, reason, requested_at,
	 teacher_decision_at, teacher_comment, admin_decision_at, admin_comment)
	VALUES (:id, :mark_id, :student_id, :subject_id, :exam_id, :teacher_id, :original_score, :proposed_score, :status, :reason, :requested_at,
	 :teacher_decision_at, :teacher_comment, :admin_decision_at, :admin_comment)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create correction request: %w", err)
	}
	return nil
}

// GetByID fetches a correction request by identifier.
func (r *CorrectionRepository) GetByID(ctx context.Context, id string) (*models.CorrectionRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM correction_requests WHERE id = $1", correctionColumns)
	var request models.CorrectionRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns correction requests matching the filter, oldest first.
func (r *CorrectionRepository) List(ctx context.Context, filter models.CorrectionFilter) ([]models.CorrectionRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString("SELECT ")
	builder.WriteString(correctionColumns)
	builder.WriteString(" FROM correction_requests")

	conditions := make([]string, 0, 4)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
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
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.CorrectionRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list correction requests: %w", err)
	}
	return requests, nil
}

// ListPendingForTeacher returns pending requests targeted at the teacher or
// attached to a mark the teacher recorded.
func (r *CorrectionRepository) ListPendingForTeacher(ctx context.Context, teacherUserID string) ([]models.CorrectionRequest, error) {
	const query = `
SELECT cr.id, cr.mark_id, cr.student_id, cr.subject_id, cr.exam_id, cr.teacher_id,
       cr.original_score, cr.proposed_score, cr.status, cr.reason, cr.requested_at,
       cr.teacher_decision_at, cr.teacher_comment, cr.admin_decision_at, cr.admin_comment
FROM correction_requests cr
LEFT JOIN marks m ON m.id = cr.mark_id
WHERE cr.status = $1 AND (cr.teacher_id = $2 OR m.recorded_by = $2)
ORDER BY cr.requested_at ASC`
	var requests []models.CorrectionRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.CorrectionPending, teacherUserID); err != nil {
		return nil, fmt.Errorf("list pending for teacher: %w", err)
	}
	return requests, nil
}

// DecisionParams groups the mutable columns of a review decision.
type DecisionParams struct {
	ID        string
	Status    models.CorrectionStatus
	DecidedAt time.Time
	Comment   *string
}

// UpdateTeacherDecision applies a teacher decision. The update only matches
// rows still pending; sql.ErrNoRows signals a lost race or an illegal state.
func (r *CorrectionRepository) UpdateTeacherDecision(ctx context.Context, params DecisionParams) error {
	const query = `UPDATE correction_requests
	SET status = :status, teacher_decision_at = :decided_at, teacher_comment = :comment
	WHERE id = :id AND status = 'pending'`
	return r.execDecision(ctx, query, params)
}

// UpdateAdminReject rejects a request from either reviewable state.
func (r *CorrectionRepository) UpdateAdminReject(ctx context.Context, params DecisionParams) error {
	const query = `UPDATE correction_requests
	SET status = :status, admin_decision_at = :decided_at, admin_comment = :comment
	WHERE id = :id AND status IN ('pending', 'teacher_approved')`
	return r.execDecision(ctx, query, params)
}

func (r *CorrectionRepository) execDecision(ctx context.Context, query string, params DecisionParams) error {
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         params.ID,
		"status":     params.Status,
		"decided_at": params.DecidedAt,
		"comment":    params.Comment,
	})
	if err != nil {
		return fmt.Errorf("update correction decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check correction decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApproveParams drives the final approval and mark resolution.
type ApproveParams struct {
	Request   *models.CorrectionRequest
	DecidedAt time.Time
	Comment   *string
	// FromPending additionally accepts requests still awaiting teacher
	// review; reserved for the explicit admin override path.
	FromPending bool
}

// MarkWriteError wraps storage failures while writing the corrected mark so
// the caller can distinguish them from a lost status race.
type MarkWriteError struct {
	Err error
}

func (e *MarkWriteError) Error() string { return fmt.Sprintf("mark write: %v", e.Err) }

func (e *MarkWriteError) Unwrap() error { return e.Err }

// ApproveAndResolve commits the approval transition and the mark write as one
// transaction. Either both land or neither does: a lost status race returns
// sql.ErrNoRows, a mark storage failure returns *MarkWriteError, and in both
// cases the request row is left unchanged.
func (r *CorrectionRepository) ApproveAndResolve(ctx context.Context, params ApproveParams) (*models.Mark, error) {
	request := params.Request
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approval tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	allowed := "('teacher_approved')"
	if params.FromPending {
		allowed = "('pending', 'teacher_approved')"
	}
	query := fmt.Sprintf(`UPDATE correction_requests
	SET status = $1, admin_decision_at = $2, admin_comment = $3
	WHERE id = $4 AND status IN %s`, allowed)
	result, err := tx.ExecContext(ctx, query, models.CorrectionApproved, params.DecidedAt, params.Comment, request.ID)
	if err != nil {
		return nil, fmt.Errorf("approve correction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check approval rows: %w", err)
	}
	if rows == 0 {
		return nil, sql.ErrNoRows
	}

	mark, err := r.resolveMark(ctx, tx, request, params.DecidedAt)
	if err != nil {
		return nil, &MarkWriteError{Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &MarkWriteError{Err: err}
	}
	return mark, nil
}

// resolveMark updates the disputed mark, or creates one when the request was
// filed against a missing triple. An existing mark keeps its original
// recorder; a created mark is attributed to the request's teacher.
func (r *CorrectionRepository) resolveMark(ctx context.Context, tx *sqlx.Tx, request *models.CorrectionRequest, now time.Time) (*models.Mark, error) {
	var mark models.Mark
	if request.MarkID != nil && *request.MarkID != "" {
		const query = `UPDATE marks
		SET score = $1, recorded_at = $2, updated_at = $2
		WHERE id = $3
		RETURNING id, student_id, subject_id, exam_id, score, recorded_by, recorded_at, created_at, updated_at`
		if err := tx.QueryRowxContext(ctx, query, request.ProposedScore, now, *request.MarkID).StructScan(&mark); err != nil {
			return nil, fmt.Errorf("update mark %s: %w", *request.MarkID, err)
		}
		return &mark, nil
	}

	const query = `INSERT INTO marks (id, student_id, subject_id, exam_id, score, recorded_by, recorded_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
	ON CONFLICT (student_id, subject_id, exam_id)
	DO UPDATE SET score = EXCLUDED.score, recorded_at = EXCLUDED.recorded_at, updated_at = EXCLUDED.updated_at
	RETURNING id, student_id, subject_id, exam_id, score, recorded_by, recorded_at, created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, query,
		uuid.NewString(), request.StudentID, request.SubjectID, request.ExamID,
		request.ProposedScore, request.TeacherID, now,
	).StructScan(&mark); err != nil {
		return nil, fmt.Errorf("create mark for request %s: %w", request.ID, err)
	}
	return &mark, nil
}

// CountByStatus aggregates request counts grouped by status, optionally
// scoped to one student or teacher.
func (r *CorrectionRepository) CountByStatus(ctx context.Context, filter models.CorrectionFilter) (map[models.CorrectionStatus]int, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString("SELECT status, COUNT(*) AS count FROM correction_requests")

	conditions := make([]string, 0, 2)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" GROUP BY status")

	rows, err := r.db.QueryxContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("count corrections by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.CorrectionStatus]int, 4)
	for rows.Next() {
		var (
			status models.CorrectionStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan correction count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
