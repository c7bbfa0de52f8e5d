package models

import "time"

// Student belongs to exactly one class and may be linked to a parent.
type Student struct {
	ID             string    `db:"id" json:"id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	Name           string    `db:"name" json:"name"`
	ParentUserID   *string   `db:"parent_user_id" json:"parent_user_id,omitempty"`
	ConnectionCode string    `db:"connection_code" json:"connection_code"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentInput creates or renames a student.
type StudentInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

// StudentBatchInput creates many students in one write.
type StudentBatchInput struct {
	Names []string `json:"names" validate:"required,min=1,max=100,dive,required,max=120"`
}

// ConnectRequest links a parent identity to a student by code.
type ConnectRequest struct {
	ConnectionCode string `json:"connection_code" validate:"required"`
}
