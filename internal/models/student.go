package models

import "time"

// Student links a user account to a class enrolment.
type Student struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	FullName     string     `db:"full_name" json:"full_name"`
	ClassID      string     `db:"class_id" json:"class_id"`
	AcademicYear string     `db:"academic_year" json:"academic_year,omitempty"`
	DateOfBirth  *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter constrains student listing queries.
type StudentFilter struct {
	ClassID string
	Search  string
	Limit   int
	Offset  int
}
