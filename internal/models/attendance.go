package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttendanceStatus is the per-student mark inside a daily record.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceData maps student id to status, stored as JSONB.
type AttendanceData map[string]AttendanceStatus

// Value implements driver.Valuer.
func (d AttendanceData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *AttendanceData) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported attendance scan type %T", src)
	}
}

// Counts tallies present and absent marks in the record.
func (d AttendanceData) Counts() (present, absent int) {
	for _, status := range d {
		switch status {
		case AttendancePresent:
			present++
		case AttendanceAbsent:
			absent++
		}
	}
	return present, absent
}

// AttendanceRecord holds one class's roll call for one day.
type AttendanceRecord struct {
	ID        string         `db:"id" json:"id"`
	ClassID   string         `db:"class_id" json:"class_id"`
	Date      time.Time      `db:"date" json:"date"`
	Data      AttendanceData `db:"data" json:"data"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// AttendanceInput upserts a class's record for a day.
type AttendanceInput struct {
	Date string                      `json:"date" validate:"required,datetime=2006-01-02"`
	Data map[string]AttendanceStatus `json:"data" validate:"required"`
}
