package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const statisticsColumns = `id, cache_key, teacher_id, class_id, date, total_students, attendance_rate, average_grade, attendance_trend, grade_distribution, calculated_at, expires_at`

// StatisticsRepository persists the daily statistics cache rows.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository constructs the repository.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// FindByKey returns the cache row for a derived key when present.
func (r *StatisticsRepository) FindByKey(ctx context.Context, cacheKey string) (*models.StatisticsEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM statistics WHERE cache_key = $1", statisticsColumns)
	var entry models.StatisticsEntry
	if err := r.db.GetContext(ctx, &entry, query, cacheKey); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert writes a cache row, overwriting a stale row under the same key.
// Concurrent misses may both write; last write wins, which is harmless
// since both computed over the same data.
func (r *StatisticsRepository) Upsert(ctx context.Context, entry *models.StatisticsEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	const query = `INSERT INTO statistics (id, cache_key, teacher_id, class_id, date, total_students, attendance_rate, average_grade, attendance_trend, grade_distribution, calculated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (cache_key)
DO UPDATE SET total_students = EXCLUDED.total_students,
    attendance_rate = EXCLUDED.attendance_rate,
    average_grade = EXCLUDED.average_grade,
    attendance_trend = EXCLUDED.attendance_trend,
    grade_distribution = EXCLUDED.grade_distribution,
    calculated_at = EXCLUDED.calculated_at,
    expires_at = EXCLUDED.expires_at`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.CacheKey, entry.TeacherID, entry.ClassID,
		entry.Date.Format("2006-01-02"), entry.TotalStudents, entry.AttendanceRate,
		entry.AverageGrade, entry.AttendanceTrend, entry.GradeDistribution,
		entry.CalculatedAt, entry.ExpiresAt); err != nil {
		return fmt.Errorf("upsert statistics: %w", err)
	}
	return nil
}
