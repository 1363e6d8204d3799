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

func newMarkRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func markMockRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "student_id", "subject_id", "exam_id", "score",
		"recorded_by", "recorded_at", "created_at", "updated_at",
	}).AddRow("mark-1", "student-1", "math", "midterm", 78, "user-teacher-1", now, now, now)
}

func TestMarkRepositoryGetByTriple(t *testing.T) {
	db, mock, cleanup := newMarkRepoMock(t)
	defer cleanup()

	repo := NewMarkRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM marks WHERE student_id = $1 AND subject_id = $2 AND exam_id = $3")).
		WithArgs("student-1", "math", "midterm").
		WillReturnRows(markMockRows())

	mark, err := repo.GetByTriple(context.Background(), "student-1", "math", "midterm")
	require.NoError(t, err)
	require.Equal(t, 78, mark.Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryGetByTripleMissing(t *testing.T) {
	db, mock, cleanup := newMarkRepoMock(t)
	defer cleanup()

	repo := NewMarkRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM marks WHERE student_id")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByTriple(context.Background(), "student-1", "math", "final")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryUpsertAssignsID(t *testing.T) {
	db, mock, cleanup := newMarkRepoMock(t)
	defer cleanup()

	repo := NewMarkRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO marks")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	recordedBy := "user-teacher-1"
	mark := &models.Mark{
		StudentID:  "student-1",
		SubjectID:  "math",
		ExamID:     "midterm",
		Score:      78,
		RecordedBy: &recordedBy,
	}
	require.NoError(t, repo.Upsert(context.Background(), mark))
	require.NotEmpty(t, mark.ID)
	require.False(t, mark.RecordedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMarkRepoMock(t)
	defer cleanup()

	repo := NewMarkRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM marks WHERE student_id = $1 AND subject_id = $2")).
		WithArgs("student-1", "math").
		WillReturnRows(markMockRows())

	marks, err := repo.List(context.Background(), models.MarkFilter{StudentID: "student-1", SubjectID: "math"})
	require.NoError(t, err)
	require.Len(t, marks, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
