package models

import "time"

// Mark is the authoritative recorded score for one (student, subject, exam)
// triple. It is written by teacher mark entry and by approved corrections,
// nothing else.
type Mark struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	ExamID     string    `db:"exam_id" json:"exam_id"`
	Score      int       `db:"score" json:"score"`
	RecordedBy *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// MarkFilter constrains mark listing queries.
type MarkFilter struct {
	StudentID  string
	SubjectID  string
	ExamID     string
	RecordedBy string
	Limit      int
	Offset     int
}

// MaxScore bounds proposed and recorded scores at the validation boundary;
// storage itself does not enforce it.
const MaxScore = 100
