package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type fakeAttendanceRepo struct {
	records map[string]*models.AttendanceRecord
}

func attendanceKey(classID string, date time.Time) string {
	return classID + "_" + date.Format("2006-01-02")
}

func (f *fakeAttendanceRepo) FindByClassAndDate(_ context.Context, classID string, date time.Time) (*models.AttendanceRecord, error) {
	if r, ok := f.records[attendanceKey(classID, date)]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAttendanceRepo) ListByClassRange(_ context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	var result []models.AttendanceRecord
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if r, ok := f.records[attendanceKey(classID, day)]; ok {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (f *fakeAttendanceRepo) Upsert(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if f.records == nil {
		f.records = map[string]*models.AttendanceRecord{}
	}
	f.records[attendanceKey(record.ClassID, record.Date)] = record
	return record, nil
}

type fakeRoster struct {
	students []models.Student
}

func (f *fakeRoster) ListByClass(_ context.Context, classID string) ([]models.Student, error) {
	var result []models.Student
	for _, s := range f.students {
		if s.ClassID == classID {
			result = append(result, s)
		}
	}
	return result, nil
}

func newAttendanceFixture() (*AttendanceService, *fakeAttendanceRepo) {
	repo := &fakeAttendanceRepo{records: map[string]*models.AttendanceRecord{}}
	classes := &fakeClassFinder{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerUserID: "teacher-1"},
	}}
	roster := &fakeRoster{students: []models.Student{
		{ID: "s1", ClassID: "class-1"},
		{ID: "s2", ClassID: "class-1"},
	}}
	return NewAttendanceService(repo, classes, roster, nil, nil), repo
}

func TestAttendanceSaveReplacesSameDay(t *testing.T) {
	svc, repo := newAttendanceFixture()

	first, err := svc.Save(context.Background(), "teacher-1", "class-1", models.AttendanceInput{
		Date: "2026-03-10",
		Data: map[string]models.AttendanceStatus{"s1": models.AttendancePresent, "s2": models.AttendancePresent},
	})
	require.NoError(t, err)
	present, _ := first.Data.Counts()
	assert.Equal(t, 2, present)

	second, err := svc.Save(context.Background(), "teacher-1", "class-1", models.AttendanceInput{
		Date: "2026-03-10",
		Data: map[string]models.AttendanceStatus{"s1": models.AttendancePresent, "s2": models.AttendanceAbsent},
	})
	require.NoError(t, err)

	assert.Len(t, repo.records, 1)
	present, absent := second.Data.Counts()
	assert.Equal(t, 1, present)
	assert.Equal(t, 1, absent)
}

func TestAttendanceSaveRejectsUnknownStatus(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Save(context.Background(), "teacher-1", "class-1", models.AttendanceInput{
		Date: "2026-03-10",
		Data: map[string]models.AttendanceStatus{"s1": "late"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceSaveRejectsUnknownStudent(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Save(context.Background(), "teacher-1", "class-1", models.AttendanceInput{
		Date: "2026-03-10",
		Data: map[string]models.AttendanceStatus{"ghost": models.AttendancePresent},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceSaveRejectsBadDate(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Save(context.Background(), "teacher-1", "class-1", models.AttendanceInput{
		Date: "10/03/2026",
		Data: map[string]models.AttendanceStatus{"s1": models.AttendancePresent},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceGetMissingDay(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Get(context.Background(), "teacher-1", "class-1", "2026-03-10")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceListRangeOrderValidation(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.ListRange(context.Background(), "teacher-1", "class-1", "2026-03-10", "2026-03-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
