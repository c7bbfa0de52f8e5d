package models

import (
	"time"

	"github.com/lib/pq"
)

// Report is an AI-generated progress note for one student.
// StudentName is denormalized at write time, like grades.
type Report struct {
	ID          string         `db:"id" json:"id"`
	ClassID     string         `db:"class_id" json:"class_id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	StudentName string         `db:"student_name" json:"student_name"`
	TeacherNote string         `db:"teacher_note" json:"teacher_note"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	Tone        string         `db:"tone" json:"tone"`
	Content     string         `db:"content" json:"content"`
	TokensUsed  int            `db:"tokens_used" json:"tokens_used"`
	SentAt      *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ReportInput asks the generator for a new report.
type ReportInput struct {
	StudentID   string   `json:"student_id" validate:"required"`
	TeacherNote string   `json:"teacher_note" validate:"required,max=2000"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=40"`
	Tone        string   `json:"tone" validate:"omitempty,oneof=friendly formal encouraging"`
}

// ReportSections is the parsed structure of generated report text.
type ReportSections struct {
	Strengths       string `json:"strengths"`
	AreasToImprove  string `json:"areas_to_improve"`
	Recommendations string `json:"recommendations"`
}
