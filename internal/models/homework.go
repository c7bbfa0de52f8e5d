package models

import "time"

// Homework is an assignment posted to a class.
type Homework struct {
	ID        string     `db:"id" json:"id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content,omitempty"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// HomeworkInput creates or updates an assignment.
type HomeworkInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=4000"`
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}
