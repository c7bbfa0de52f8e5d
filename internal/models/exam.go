package models

import "time"

// Exam is an upcoming test announced to a class.
type Exam struct {
	ID        string     `db:"id" json:"id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	Title     string     `db:"title" json:"title"`
	Subject   string     `db:"subject" json:"subject,omitempty"`
	ExamDate  *time.Time `db:"exam_date" json:"exam_date,omitempty"`
	Note      string     `db:"note" json:"note,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// ExamInput creates or updates an exam announcement.
type ExamInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Subject  string `json:"subject" validate:"max=120"`
	ExamDate string `json:"exam_date" validate:"omitempty,datetime=2006-01-02"`
	Note     string `json:"note" validate:"max=2000"`
}
