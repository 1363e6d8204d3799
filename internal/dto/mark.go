package dto

// UpsertMarkRequest is the teacher payload recording or updating a mark.
type UpsertMarkRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	ExamID    string `json:"examId" validate:"required"`
	Score     int    `json:"score" validate:"min=0,max=100"`
}

// MarkQuery mirrors supported mark listing filters.
type MarkQuery struct {
	StudentID string
	SubjectID string
	ExamID    string
}
