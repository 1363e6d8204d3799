package models

import "time"

// Employee represents a staff member; teachers carry a linked user account
// and class/subject assignments.
type Employee struct {
	ID            string     `db:"id" json:"id"`
	UserID        *string    `db:"user_id" json:"user_id,omitempty"`
	FullName      string     `db:"full_name" json:"full_name"`
	EmployeeType  string     `db:"employee_type" json:"employee_type"`
	Salary        *float64   `db:"salary" json:"salary,omitempty"`
	DateOfJoining *time.Time `db:"date_of_joining" json:"date_of_joining,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	Assignments []EmployeeAssignment `json:"assignments,omitempty"`
}

// EmployeeAssignment binds an employee to one class/subject pair. The pair is
// the submission-time source for resolving which teacher reviews a correction.
type EmployeeAssignment struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EmployeeFilter constrains employee listing queries.
type EmployeeFilter struct {
	EmployeeType string
	Search       string
	Limit        int
	Offset       int
}
