package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const attendanceColumns = `id, class_id, date, data, updated_at`

// AttendanceRepository handles persistence for daily attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByClassAndDate returns the single record for (class, date) when present.
func (r *AttendanceRepository) FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE class_id = $1 AND date = $2", attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, classID, date.Format("2006-01-02")); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByClassRange returns records for a class within [from, to], oldest first.
func (r *AttendanceRepository) ListByClassRange(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE class_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC", attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, classID, from.Format("2006-01-02"), to.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Upsert writes the record for (class, date), replacing an existing one.
// The composite unique key closes the concurrent first-write race the
// original check-then-write flow carried.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO attendance_records (id, class_id, date, data, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (class_id, date)
DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
RETURNING %s`, attendanceColumns)

	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.ClassID, record.Date.Format("2006-01-02"), record.Data, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}
