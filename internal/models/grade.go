package models

import "time"

// Grade is one score for a student, at most one per (class, student, type).
// StudentName is denormalized at write time; renaming a student does not
// rewrite historic grade rows.
type Grade struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	Score       float64   `db:"score" json:"score"`
	Comment     string    `db:"comment" json:"comment,omitempty"`
	Type        string    `db:"type" json:"type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GradeInput upserts a grade for a student.
type GradeInput struct {
	StudentID string  `json:"student_id" validate:"required"`
	Score     float64 `json:"score" validate:"min=0,max=10"`
	Comment   string  `json:"comment" validate:"max=500"`
	Type      string  `json:"type" validate:"required,max=60"`
}
