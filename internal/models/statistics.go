package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OverallScope is the class_id stored when statistics span every owned class.
const OverallScope = "overall"

// TrendDay is one day of the attendance trend, oldest first.
type TrendDay struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Rate    int    `json:"rate"`
}

// TrendDays stores the trend as a JSONB column.
type TrendDays []TrendDay

// Value implements driver.Valuer.
func (t TrendDays) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *TrendDays) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported trend scan type %T", src)
	}
}

// GradeDistribution partitions every grade into exactly one bucket.
type GradeDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Average   int `json:"average"`
	Poor      int `json:"poor"`
}

// Total returns the number of grades counted across buckets.
func (d GradeDistribution) Total() int {
	return d.Excellent + d.Good + d.Average + d.Poor
}

// Value implements driver.Valuer.
func (d GradeDistribution) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *GradeDistribution) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = GradeDistribution{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported distribution scan type %T", src)
	}
}

// Stats is the aggregation output for one (teacher, scope) pair.
type Stats struct {
	TotalStudents     int               `json:"total_students"`
	AttendanceRate    int               `json:"attendance_rate"`
	AverageGrade      float64           `json:"average_grade"`
	AttendanceTrend   TrendDays         `json:"attendance_trend"`
	GradeDistribution GradeDistribution `json:"grade_distribution"`
}

// StatisticsEntry is the persisted daily cache row. Field names match the
// deployed document schema and must stay stable.
type StatisticsEntry struct {
	ID                string            `db:"id" json:"-"`
	CacheKey          string            `db:"cache_key" json:"-"`
	TeacherID         string            `db:"teacher_id" json:"teacher_id"`
	ClassID           string            `db:"class_id" json:"class_id"`
	Date              time.Time         `db:"date" json:"date"`
	TotalStudents     int               `db:"total_students" json:"total_students"`
	AttendanceRate    int               `db:"attendance_rate" json:"attendance_rate"`
	AverageGrade      float64           `db:"average_grade" json:"average_grade"`
	AttendanceTrend   TrendDays         `db:"attendance_trend" json:"attendance_trend"`
	GradeDistribution GradeDistribution `db:"grade_distribution" json:"grade_distribution"`
	CalculatedAt      time.Time         `db:"calculated_at" json:"calculated_at"`
	ExpiresAt         time.Time         `db:"expires_at" json:"expires_at"`
}

// Stats extracts the aggregate payload from a cache row.
func (e *StatisticsEntry) Stats() Stats {
	return Stats{
		TotalStudents:     e.TotalStudents,
		AttendanceRate:    e.AttendanceRate,
		AverageGrade:      e.AverageGrade,
		AttendanceTrend:   e.AttendanceTrend,
		GradeDistribution: e.GradeDistribution,
	}
}

// AttendanceDayStats is one row of the raw (uncached) attendance endpoint.
// Late is carried for wire compatibility with existing clients; the current
// data model records only present/absent, so it is always zero.
type AttendanceDayStats struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Late    int    `json:"late"`
	Total   int    `json:"total"`
	Rate    int    `json:"rate"`
}

// ClassStats joins per-class aggregates with the class name.
type ClassStats struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	Stats
}
