package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/alphaani/marks-management-api/internal/models"
)

func newCorrectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func correctionRows(id string, status models.CorrectionStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "mark_id", "student_id", "subject_id", "exam_id", "teacher_id",
		"original_score", "proposed_score", "status", "reason", "requested_at",
		"teacher_decision_at", "teacher_comment", "admin_decision_at", "admin_comment",
	}).AddRow(id, "mark-1", "student-1", "math", "midterm", "user-teacher-1",
		78, 95, string(status), "second question misgraded", time.Now(),
		nil, nil, nil, nil)
}

func TestCorrectionRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO correction_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	markID := "mark-1"
	request := &models.CorrectionRequest{
		MarkID:        &markID,
		StudentID:     "student-1",
		SubjectID:     "math",
		ExamID:        "midterm",
		TeacherID:     "user-teacher-1",
		OriginalScore: 78,
		ProposedScore: 95,
		Reason:        "second question misgraded",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.CorrectionPending, request.Status)
	require.False(t, request.RequestedAt.IsZero())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, mark_id, student_id")).
		WithArgs(request.ID).
		WillReturnRows(correctionRows(request.ID, models.CorrectionPending))

	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, request.ID, found.ID)
	require.Equal(t, 78, found.OriginalScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryTeacherDecisionLostRace(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE correction_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTeacherDecision(context.Background(), DecisionParams{
		ID:        "req-1",
		Status:    models.CorrectionTeacherApproved,
		DecidedAt: time.Now(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryTeacherDecisionApplies(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE correction_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	comment := "checked against the paper"
	err := repo.UpdateTeacherDecision(context.Background(), DecisionParams{
		ID:        "req-1",
		Status:    models.CorrectionTeacherApproved,
		DecidedAt: time.Now(),
		Comment:   &comment,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryApproveAndResolveUpdatesMark(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	now := time.Now()
	markID := "mark-1"
	request := &models.CorrectionRequest{
		ID:            "req-1",
		MarkID:        &markID,
		StudentID:     "student-1",
		SubjectID:     "math",
		ExamID:        "midterm",
		TeacherID:     "user-teacher-1",
		ProposedScore: 95,
		Status:        models.CorrectionTeacherApproved,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE correction_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	markRows := sqlmock.NewRows([]string{
		"id", "student_id", "subject_id", "exam_id", "score",
		"recorded_by", "recorded_at", "created_at", "updated_at",
	}).AddRow("mark-1", "student-1", "math", "midterm", 95, "user-teacher-1", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE marks")).
		WithArgs(95, sqlmock.AnyArg(), "mark-1").
		WillReturnRows(markRows)
	mock.ExpectCommit()

	mark, err := repo.ApproveAndResolve(context.Background(), ApproveParams{
		Request:   request,
		DecidedAt: now,
	})
	require.NoError(t, err)
	require.Equal(t, 95, mark.Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryApproveAndResolveCreatesMissingMark(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	now := time.Now()
	request := &models.CorrectionRequest{
		ID:            "req-1",
		StudentID:     "student-1",
		SubjectID:     "math",
		ExamID:        "final",
		TeacherID:     "user-teacher-1",
		ProposedScore: 88,
		Status:        models.CorrectionTeacherApproved,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE correction_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	markRows := sqlmock.NewRows([]string{
		"id", "student_id", "subject_id", "exam_id", "score",
		"recorded_by", "recorded_at", "created_at", "updated_at",
	}).AddRow("mark-new", "student-1", "math", "final", 88, "user-teacher-1", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO marks")).
		WillReturnRows(markRows)
	mock.ExpectCommit()

	mark, err := repo.ApproveAndResolve(context.Background(), ApproveParams{
		Request:   request,
		DecidedAt: now,
	})
	require.NoError(t, err)
	require.Equal(t, "mark-new", mark.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryApproveAndResolveLostRace(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	request := &models.CorrectionRequest{ID: "req-1", Status: models.CorrectionRejected}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE correction_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ApproveAndResolve(context.Background(), ApproveParams{
		Request:   request,
		DecidedAt: time.Now(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryApproveAndResolveMarkWriteFailure(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	markID := "mark-1"
	request := &models.CorrectionRequest{
		ID:            "req-1",
		MarkID:        &markID,
		ProposedScore: 95,
		Status:        models.CorrectionTeacherApproved,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE correction_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE marks")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.ApproveAndResolve(context.Background(), ApproveParams{
		Request:   request,
		DecidedAt: time.Now(),
	})
	var writeErr *MarkWriteError
	require.ErrorAs(t, err, &writeErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryListPendingForTeacher(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM correction_requests cr")).
		WithArgs(string(models.CorrectionPending), "user-teacher-1").
		WillReturnRows(correctionRows("req-1", models.CorrectionPending))

	requests, err := repo.ListPendingForTeacher(context.Background(), "user-teacher-1")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, "req-1", requests[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCorrectionRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newCorrectionRepoMock(t)
	defer cleanup()

	repo := NewCorrectionRepository(db)
	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("pending", 3).
		AddRow("approved", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*)")).
		WithArgs("student-1").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), models.CorrectionFilter{StudentID: "student-1"})
	require.NoError(t, err)
	require.Equal(t, 3, counts[models.CorrectionPending])
	require.Equal(t, 2, counts[models.CorrectionApproved])
	require.NoError(t, mock.ExpectationsWereMet())
}
