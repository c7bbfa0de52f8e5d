package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studynote/studynote-api/internal/middleware"
	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/service"
)

type statsClassStore struct {
	classes map[string]*models.Class
}

func (s *statsClassStore) ListByOwner(_ context.Context, ownerUserID string) ([]models.Class, error) {
	var owned []models.Class
	for _, class := range s.classes {
		if class.OwnerUserID == ownerUserID {
			owned = append(owned, *class)
		}
	}
	return owned, nil
}

func (s *statsClassStore) FindByID(_ context.Context, id string) (*models.Class, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

type statsStudentStore struct {
	counts map[string]int
}

func (s *statsStudentStore) CountByClass(_ context.Context, classID string) (int, error) {
	return s.counts[classID], nil
}

type statsAttendanceStore struct {
	records map[string]map[string]models.AttendanceData
}

func (s *statsAttendanceStore) FindByClassAndDate(_ context.Context, classID string, date time.Time) (*models.AttendanceRecord, error) {
	data, ok := s.records[classID][date.Format("2006-01-02")]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.AttendanceRecord{ClassID: classID, Date: date, Data: data}, nil
}

func (s *statsAttendanceStore) ListByClassRange(_ context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if data, ok := s.records[classID][day.Format("2006-01-02")]; ok {
			records = append(records, models.AttendanceRecord{ClassID: classID, Date: day, Data: data})
		}
	}
	return records, nil
}

type statsGradeStore struct {
	grades map[string][]models.Grade
}

func (s *statsGradeStore) ListByClass(_ context.Context, classID string) ([]models.Grade, error) {
	return s.grades[classID], nil
}

type statsCacheStore struct {
	entries map[string]*models.StatisticsEntry
}

func (s *statsCacheStore) FindByKey(_ context.Context, cacheKey string) (*models.StatisticsEntry, error) {
	entry, ok := s.entries[cacheKey]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return entry, nil
}

func (s *statsCacheStore) Upsert(_ context.Context, entry *models.StatisticsEntry) error {
	if s.entries == nil {
		s.entries = make(map[string]*models.StatisticsEntry)
	}
	s.entries[entry.CacheKey] = entry
	return nil
}

// recordedDay keeps fixture data inside the trailing trend window.
func recordedDay() string {
	return time.Now().AddDate(0, 0, -1).Format("2006-01-02")
}

type statsFixture struct {
	handler    *StatsHandler
	cache      *statsCacheStore
	attendance *statsAttendanceStore
}

func newStatsHandlerFixture() *statsFixture {
	classes := &statsClassStore{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", OwnerUserID: "teacher-1", Name: "Math 5A"},
	}}
	attendance := &statsAttendanceStore{records: map[string]map[string]models.AttendanceData{
		"class-1": {
			recordedDay(): {"student-1": models.AttendancePresent, "student-2": models.AttendanceAbsent},
		},
	}}
	grades := &statsGradeStore{grades: map[string][]models.Grade{
		"class-1": {
			{ID: "grade-1", ClassID: "class-1", StudentID: "student-1", Score: 9.5},
			{ID: "grade-2", ClassID: "class-1", StudentID: "student-2", Score: 6.0},
		},
	}}
	cache := &statsCacheStore{entries: map[string]*models.StatisticsEntry{}}

	svc := service.NewStatsService(service.StatsServiceParams{
		Classes:    classes,
		Students:   &statsStudentStore{counts: map[string]int{"class-1": 2}},
		Attendance: attendance,
		Grades:     grades,
		Cache:      cache,
	})
	return &statsFixture{
		handler:    NewStatsHandler(svc),
		cache:      cache,
		attendance: attendance,
	}
}

type statsEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func statsRequest(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	return c, rec
}

func TestStatsHandlerDashboardComputesAndStores(t *testing.T) {
	fixture := newStatsHandlerFixture()
	c, rec := statsRequest(t, "/stats/dashboard?classId=class-1")

	fixture.handler.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope statsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])

	var entry models.StatisticsEntry
	require.NoError(t, json.Unmarshal(envelope.Data, &entry))
	assert.Equal(t, 2, entry.TotalStudents)
	assert.Equal(t, 7.75, entry.AverageGrade)
	assert.Len(t, fixture.cache.entries, 1)
}

func TestStatsHandlerDashboardServesCachedEntry(t *testing.T) {
	fixture := newStatsHandlerFixture()
	key := "teacher-1_overall_" + time.Now().Format("2006-01-02")
	fixture.cache.entries[key] = &models.StatisticsEntry{
		CacheKey:      key,
		TeacherID:     "teacher-1",
		ClassID:       models.OverallScope,
		TotalStudents: 42,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	c, rec := statsRequest(t, "/stats/dashboard")

	fixture.handler.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope statsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])

	var entry models.StatisticsEntry
	require.NoError(t, json.Unmarshal(envelope.Data, &entry))
	assert.Equal(t, 42, entry.TotalStudents)
}

func TestStatsHandlerAttendanceRejectsBadDays(t *testing.T) {
	fixture := newStatsHandlerFixture()
	c, rec := statsRequest(t, "/stats/attendance?classId=class-1&days=zero")

	fixture.handler.Attendance(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandlerAttendanceReturnsRecordedDays(t *testing.T) {
	fixture := newStatsHandlerFixture()
	c, rec := statsRequest(t, "/stats/attendance?classId=class-1&days=30")

	fixture.handler.Attendance(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope statsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	var days []models.AttendanceDayStats
	require.NoError(t, json.Unmarshal(envelope.Data, &days))
	require.Len(t, days, 1)
	assert.Equal(t, recordedDay(), days[0].Date)
	assert.Equal(t, 50, days[0].Rate)
}

func TestStatsHandlerGradesRequiresClass(t *testing.T) {
	fixture := newStatsHandlerFixture()
	c, rec := statsRequest(t, "/stats/grades")

	fixture.handler.Grades(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandlerExportCSV(t *testing.T) {
	fixture := newStatsHandlerFixture()
	c, rec := statsRequest(t, "/stats/export?format=csv")

	fixture.handler.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	body := strings.TrimPrefix(rec.Body.String(), "\xef\xbb\xbf")
	assert.True(t, strings.HasPrefix(body, "Class,Students"))
	assert.Contains(t, body, "Math 5A")
}

func TestStatsHandlerExportUnknownFormat(t *testing.T) {
	fixture := newStatsHandlerFixture()
	c, rec := statsRequest(t, "/stats/export?format=xlsx")

	fixture.handler.Export(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
