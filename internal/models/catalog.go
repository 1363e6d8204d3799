package models

import "time"

// EntityStatus marks catalog rows as usable or retired.
type EntityStatus string

const (
	StatusActive   EntityStatus = "active"
	StatusInactive EntityStatus = "inactive"
)

// Class represents a school class such as "10A".
type Class struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Status    EntityStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Subject represents a taught subject with a unique code.
type Subject struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Code      string       `db:"code" json:"code"`
	Status    EntityStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Exam represents an examination event marks are recorded against.
type Exam struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Type      string       `db:"type" json:"type"`
	Date      time.Time    `db:"date" json:"date"`
	Status    EntityStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
