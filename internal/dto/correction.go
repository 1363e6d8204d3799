package dto

import "github.com/alphaani/marks-management-api/internal/models"

// SubmitCorrectionRequest is the student payload disputing a mark for one
// (subject, exam) pair. The student and the reviewing teacher are resolved
// server-side from the authenticated actor and the class/subject assignment.
type SubmitCorrectionRequest struct {
	SubjectID     string `json:"subjectId" validate:"required"`
	ExamID        string `json:"examId" validate:"required"`
	ProposedScore int    `json:"proposedScore" validate:"min=0,max=100"`
	Reason        string `json:"reason" validate:"required"`
}

// DecisionRequest carries an optional or required reviewer comment depending
// on the operation: rejections demand one, approvals may omit it.
type DecisionRequest struct {
	Comment string `json:"comment"`
}

// CorrectionQuery mirrors supported listing filters.
type CorrectionQuery struct {
	Statuses  []models.CorrectionStatus
	StudentID string
	SubjectID string
	ExamID    string
}
