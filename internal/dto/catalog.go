package dto

import "time"

// SaveClassRequest creates or updates a class.
type SaveClassRequest struct {
	Name   string `json:"name" validate:"required"`
	Status string `json:"status"`
}

// SaveSubjectRequest creates or updates a subject.
type SaveSubjectRequest struct {
	Name   string `json:"name" validate:"required"`
	Code   string `json:"code" validate:"required"`
	Status string `json:"status"`
}

// SaveExamRequest creates or updates an exam.
type SaveExamRequest struct {
	Name   string    `json:"name" validate:"required"`
	Type   string    `json:"type" validate:"required"`
	Date   time.Time `json:"date" validate:"required"`
	Status string    `json:"status"`
}

// SaveStudentRequest creates or updates a student record.
type SaveStudentRequest struct {
	UserID       string     `json:"userId" validate:"required"`
	FullName     string     `json:"fullName" validate:"required"`
	ClassID      string     `json:"classId" validate:"required"`
	AcademicYear string     `json:"academicYear"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
}

// SaveEmployeeRequest creates or updates an employee record.
type SaveEmployeeRequest struct {
	UserID        *string             `json:"userId"`
	FullName      string              `json:"fullName" validate:"required"`
	EmployeeType  string              `json:"employeeType" validate:"required"`
	Salary        *float64            `json:"salary"`
	DateOfJoining *time.Time          `json:"dateOfJoining"`
	Assignments   []AssignmentRequest `json:"assignments"`
}

// AssignmentRequest binds a class/subject pair to an employee.
type AssignmentRequest struct {
	ClassID   string `json:"classId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
}
