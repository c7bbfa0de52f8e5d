package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Schedule is one recurring class session.
type Schedule struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

// ScheduleList stores schedules as a JSONB column.
type ScheduleList []Schedule

// Value implements driver.Valuer.
func (s ScheduleList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *ScheduleList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported schedule scan type %T", src)
	}
}

// Class is owned by exactly one teacher.
type Class struct {
	ID          string       `db:"id" json:"id"`
	OwnerUserID string       `db:"owner_user_id" json:"owner_user_id"`
	Name        string       `db:"name" json:"name"`
	Schedules   ScheduleList `db:"schedules" json:"schedules"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// ClassInput is the create/update payload.
type ClassInput struct {
	Name      string     `json:"name" validate:"required,max=120"`
	Schedules []Schedule `json:"schedules" validate:"dive"`
}
