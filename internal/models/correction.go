package models

import "time"

// CorrectionStatus captures the workflow state of a correction request.
type CorrectionStatus string

const (
	CorrectionPending         CorrectionStatus = "pending"
	CorrectionTeacherApproved CorrectionStatus = "teacher_approved"
	CorrectionApproved        CorrectionStatus = "approved"
	CorrectionRejected        CorrectionStatus = "rejected"
)

// Terminal reports whether no further transition is legal from the status.
func (s CorrectionStatus) Terminal() bool {
	return s == CorrectionApproved || s == CorrectionRejected
}

// CorrectionRequest is a student-initiated proposal to change a mark, subject
// to a teacher decision followed by an admin decision. MarkID is empty when
// no mark existed for the triple at submission time; approval then creates
// the mark. The teacher field is the user id resolved from the class/subject
// assignment when the request was submitted.
type CorrectionRequest struct {
	ID                string           `db:"id" json:"id"`
	MarkID            *string          `db:"mark_id" json:"mark_id,omitempty"`
	StudentID         string           `db:"student_id" json:"student_id"`
	SubjectID         string           `db:"subject_id" json:"subject_id"`
	ExamID            string           `db:"exam_id" json:"exam_id"`
	TeacherID         string           `db:"teacher_id" json:"teacher_id"`
	OriginalScore     int              `db:"original_score" json:"original_score"`
	ProposedScore     int              `db:"proposed_score" json:"proposed_score"`
	Status            CorrectionStatus `db:"status" json:"status"`
	Reason            string           `db:"reason" json:"reason"`
	RequestedAt       time.Time        `db:"requested_at" json:"requested_at"`
	TeacherDecisionAt *time.Time       `db:"teacher_decision_at" json:"teacher_decision_at,omitempty"`
	TeacherComment    *string          `db:"teacher_comment" json:"teacher_comment,omitempty"`
	AdminDecisionAt   *time.Time       `db:"admin_decision_at" json:"admin_decision_at,omitempty"`
	AdminComment      *string          `db:"admin_comment" json:"admin_comment,omitempty"`
}

// CorrectionFilter constrains listing queries.
type CorrectionFilter struct {
	Statuses  []CorrectionStatus
	StudentID string
	SubjectID string
	ExamID    string
	TeacherID string
	Limit     int
	Offset    int
}

// CorrectionStatistics aggregates request counts by status. Total always
// equals the sum of the per-status counters.
type CorrectionStatistics struct {
	Pending         int       `json:"pending"`
	TeacherApproved int       `json:"teacher_approved"`
	Approved        int       `json:"approved"`
	Rejected        int       `json:"rejected"`
	Total           int       `json:"total"`
	GeneratedAt     time.Time `json:"generated_at"`
}
