package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studynote/studynote-api/internal/models"
)

func TestAttendanceRepositoryFindByClassAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "class_id", "date", "data", "updated_at"}).
		AddRow("att-1", "class-1", day, []byte(`{"student-1":"present","student-2":"absent"}`), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, date, data, updated_at FROM attendance_records WHERE class_id = $1 AND date = $2")).
		WithArgs("class-1", "2026-03-10").
		WillReturnRows(rows)

	record, err := repo.FindByClassAndDate(context.Background(), "class-1", day)
	require.NoError(t, err)
	assert.Equal(t, "att-1", record.ID)
	assert.Equal(t, models.AttendancePresent, record.Data["student-1"])
	assert.Equal(t, models.AttendanceAbsent, record.Data["student-2"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindByClassAndDateMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT .* FROM attendance_records").
		WithArgs("class-1", "2026-03-11").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByClassAndDate(context.Background(), "class-1", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByClassRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "date", "data", "updated_at"}).
		AddRow("att-1", "class-1", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), []byte(`{"student-1":"present"}`), time.Now()).
		AddRow("att-2", "class-1", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), []byte(`{"student-1":"absent"}`), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, date, data, updated_at FROM attendance_records WHERE class_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC")).
		WithArgs("class-1", "2026-03-09", "2026-03-10").
		WillReturnRows(rows)

	records, err := repo.ListByClassRange(context.Background(), "class-1",
		time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "att-1", records[0].ID)
	assert.Equal(t, "att-2", records[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	returned := sqlmock.NewRows([]string{"id", "class_id", "date", "data", "updated_at"}).
		AddRow("att-1", "class-1", day, []byte(`{"student-1":"present"}`), time.Now())

	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), "class-1", "2026-03-10", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(returned)

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		ClassID: "class-1",
		Date:    day,
		Data:    models.AttendanceData{"student-1": models.AttendancePresent},
	})
	require.NoError(t, err)
	assert.Equal(t, "att-1", stored.ID)
	assert.Equal(t, models.AttendancePresent, stored.Data["student-1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
