package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studynote/studynote-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStatisticsRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "cache_key", "teacher_id", "class_id", "date", "total_students", "attendance_rate", "average_grade", "attendance_trend", "grade_distribution", "calculated_at", "expires_at"}).
		AddRow("stat-1", "teacher-1_overall_2026-03-10", "teacher-1", "overall", now, 12, 87, 7.25, []byte(`[{"date":"2026-03-10","present":10,"absent":2,"rate":83}]`), []byte(`{"excellent":3,"good":5,"average":3,"poor":1}`), now, now.Add(24*time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, cache_key, teacher_id, class_id, date, total_students, attendance_rate, average_grade, attendance_trend, grade_distribution, calculated_at, expires_at FROM statistics WHERE cache_key = $1")).
		WithArgs("teacher-1_overall_2026-03-10").
		WillReturnRows(rows)

	entry, err := repo.FindByKey(context.Background(), "teacher-1_overall_2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, 12, entry.TotalStudents)
	assert.Equal(t, 87, entry.AttendanceRate)
	require.Len(t, entry.AttendanceTrend, 1)
	assert.Equal(t, 83, entry.AttendanceTrend[0].Rate)
	assert.Equal(t, 3, entry.GradeDistribution.Excellent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatisticsRepositoryFindByKeyMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	mock.ExpectQuery("SELECT .* FROM statistics").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByKey(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStatisticsRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStatisticsRepository(db)

	mock.ExpectExec("INSERT INTO statistics").
		WithArgs(sqlmock.AnyArg(), "teacher-1_overall_2026-03-10", "teacher-1", "overall",
			"2026-03-10", 12, 87, 7.25, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.StatisticsEntry{
		CacheKey:       "teacher-1_overall_2026-03-10",
		TeacherID:      "teacher-1",
		ClassID:        models.OverallScope,
		Date:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		TotalStudents:  12,
		AttendanceRate: 87,
		AverageGrade:   7.25,
		CalculatedAt:   time.Now(),
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
