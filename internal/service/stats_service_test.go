package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type fakeStatsClasses struct {
	classes []models.Class
	listErr error
}

func (f *fakeStatsClasses) ListByOwner(_ context.Context, owner string) ([]models.Class, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var result []models.Class
	for _, c := range f.classes {
		if c.OwnerUserID == owner {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeStatsClasses) FindByID(_ context.Context, id string) (*models.Class, error) {
	for i := range f.classes {
		if f.classes[i].ID == id {
			return &f.classes[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeStatsStudents struct {
	counts map[string]int
	err    error
}

func (f *fakeStatsStudents) CountByClass(_ context.Context, classID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[classID], nil
}

type fakeStatsAttendance struct {
	// records[classID][date] where date is formatted YYYY-MM-DD
	records map[string]map[string]models.AttendanceData
	err     error
}

func (f *fakeStatsAttendance) FindByClassAndDate(_ context.Context, classID string, date time.Time) (*models.AttendanceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.records[classID][date.Format("2006-01-02")]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.AttendanceRecord{ClassID: classID, Date: date, Data: data}, nil
}

func (f *fakeStatsAttendance) ListByClassRange(_ context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var result []models.AttendanceRecord
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if data, ok := f.records[classID][day.Format("2006-01-02")]; ok {
			result = append(result, models.AttendanceRecord{ClassID: classID, Date: day, Data: data})
		}
	}
	return result, nil
}

type fakeStatsGrades struct {
	grades map[string][]models.Grade
	err    error
}

func (f *fakeStatsGrades) ListByClass(_ context.Context, classID string) ([]models.Grade, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grades[classID], nil
}

type fakeStatsCache struct {
	entries map[string]*models.StatisticsEntry
	upserts int
	findErr error
}

func (f *fakeStatsCache) FindByKey(_ context.Context, key string) (*models.StatisticsEntry, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if entry, ok := f.entries[key]; ok {
		return entry, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStatsCache) Upsert(_ context.Context, entry *models.StatisticsEntry) error {
	if f.entries == nil {
		f.entries = make(map[string]*models.StatisticsEntry)
	}
	f.entries[entry.CacheKey] = entry
	f.upserts++
	return nil
}

var statsNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newStatsFixture() (*StatsService, *fakeStatsClasses, *fakeStatsStudents, *fakeStatsAttendance, *fakeStatsGrades, *fakeStatsCache) {
	classes := &fakeStatsClasses{classes: []models.Class{
		{ID: "class-1", OwnerUserID: "teacher-1", Name: "Math 5A"},
	}}
	students := &fakeStatsStudents{counts: map[string]int{"class-1": 2}}
	attendance := &fakeStatsAttendance{records: map[string]map[string]models.AttendanceData{}}
	grades := &fakeStatsGrades{grades: map[string][]models.Grade{}}
	cache := &fakeStatsCache{entries: map[string]*models.StatisticsEntry{}}

	svc := NewStatsService(StatsServiceParams{
		Classes:    classes,
		Students:   students,
		Attendance: attendance,
		Grades:     grades,
		Cache:      cache,
	})
	svc.now = func() time.Time { return statsNow }
	return svc, classes, students, attendance, grades, cache
}

func TestComputeEndToEnd(t *testing.T) {
	svc, _, _, attendance, grades, _ := newStatsFixture()
	attendance.records["class-1"] = map[string]models.AttendanceData{
		"2026-03-10": {"s1": models.AttendancePresent, "s2": models.AttendanceAbsent},
	}
	grades.grades["class-1"] = []models.Grade{
		{StudentID: "s1", Score: 9.5, Type: "midterm"},
		{StudentID: "s2", Score: 6.0, Type: "midterm"},
	}

	stats, err := svc.Compute(context.Background(), "teacher-1", "")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 50, stats.AttendanceRate)
	assert.InDelta(t, 7.75, stats.AverageGrade, 0.001)
	assert.Equal(t, 1, stats.GradeDistribution.Excellent)
	assert.Equal(t, 0, stats.GradeDistribution.Good)
	assert.Equal(t, 1, stats.GradeDistribution.Average)
	assert.Equal(t, 0, stats.GradeDistribution.Poor)

	require.Len(t, stats.AttendanceTrend, 7)
	last := stats.AttendanceTrend[6]
	assert.Equal(t, "2026-03-10", last.Date)
	assert.Equal(t, 1, last.Present)
	assert.Equal(t, 1, last.Absent)
	assert.Equal(t, 50, last.Rate)
}

func TestComputeNoData(t *testing.T) {
	svc, _, students, _, _, _ := newStatsFixture()
	students.counts = map[string]int{}

	stats, err := svc.Compute(context.Background(), "teacher-1", "")
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalStudents)
	assert.Equal(t, 0, stats.AttendanceRate)
	assert.Equal(t, 0.0, stats.AverageGrade)
	assert.Equal(t, 0, stats.GradeDistribution.Total())
	require.Len(t, stats.AttendanceTrend, 7)
	for _, day := range stats.AttendanceTrend {
		assert.Equal(t, 0, day.Rate)
	}
}

func TestComputeBucketBoundaries(t *testing.T) {
	svc, _, _, _, grades, _ := newStatsFixture()
	grades.grades["class-1"] = []models.Grade{
		{Score: 9.0}, {Score: 8.99}, {Score: 7.0}, {Score: 6.99}, {Score: 5.0}, {Score: 4.99}, {Score: 0},
	}

	stats, err := svc.Compute(context.Background(), "teacher-1", "class-1")
	require.NoError(t, err)

	d := stats.GradeDistribution
	assert.Equal(t, 1, d.Excellent)
	assert.Equal(t, 2, d.Good)
	assert.Equal(t, 2, d.Average)
	assert.Equal(t, 2, d.Poor)
	assert.Equal(t, 7, d.Total())
}

func TestComputeSkipsDaysWithoutRecords(t *testing.T) {
	svc, _, _, attendance, _, _ := newStatsFixture()
	// One perfect day and six silent days; the mean must be 100, not 100/7.
	attendance.records["class-1"] = map[string]models.AttendanceData{
		"2026-03-08": {"s1": models.AttendancePresent, "s2": models.AttendancePresent},
	}

	stats, err := svc.Compute(context.Background(), "teacher-1", "class-1")
	require.NoError(t, err)
	assert.Equal(t, 100, stats.AttendanceRate)
}

func TestComputeAbortsOnStoreError(t *testing.T) {
	svc, _, students, _, _, _ := newStatsFixture()
	students.err = errors.New("connection reset")

	_, err := svc.Compute(context.Background(), "teacher-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAggregation.Code, appErrors.FromError(err).Code)
}

func TestComputeOwnership(t *testing.T) {
	svc, classes, _, _, _, _ := newStatsFixture()
	classes.classes = append(classes.classes, models.Class{ID: "class-2", OwnerUserID: "teacher-2", Name: "Other"})

	_, err := svc.Compute(context.Background(), "teacher-1", "class-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Compute(context.Background(), "teacher-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDashboardServesFreshEntry(t *testing.T) {
	svc, _, students, _, _, cache := newStatsFixture()
	cache.entries["teacher-1_overall_2026-03-10"] = &models.StatisticsEntry{
		CacheKey:      "teacher-1_overall_2026-03-10",
		TeacherID:     "teacher-1",
		ClassID:       models.OverallScope,
		TotalStudents: 42,
		ExpiresAt:     statsNow.Add(time.Hour),
	}
	// A recompute would fail loudly; a fresh entry must never trigger one.
	students.err = errors.New("must not be called")

	entry, hit, err := svc.Dashboard(context.Background(), "teacher-1", "")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, entry.TotalStudents)
	assert.Equal(t, 0, cache.upserts)
}

func TestDashboardRecomputesExpiredEntry(t *testing.T) {
	svc, _, _, _, _, cache := newStatsFixture()
	cache.entries["teacher-1_overall_2026-03-10"] = &models.StatisticsEntry{
		CacheKey:  "teacher-1_overall_2026-03-10",
		ExpiresAt: statsNow.Add(-time.Minute),
	}

	entry, hit, err := svc.Dashboard(context.Background(), "teacher-1", "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, entry.TotalStudents)
	assert.Equal(t, 1, cache.upserts)
	assert.Equal(t, statsNow.Add(24*time.Hour), entry.ExpiresAt)
	assert.Equal(t, models.OverallScope, entry.ClassID)
}

func TestDashboardScopesHaveSeparateKeys(t *testing.T) {
	svc, _, _, _, _, cache := newStatsFixture()

	_, _, err := svc.Dashboard(context.Background(), "teacher-1", "")
	require.NoError(t, err)
	_, _, err = svc.Dashboard(context.Background(), "teacher-1", "class-1")
	require.NoError(t, err)

	assert.Contains(t, cache.entries, "teacher-1_overall_2026-03-10")
	assert.Contains(t, cache.entries, "teacher-1_class-1_2026-03-10")
	assert.Equal(t, 2, cache.upserts)
}

func TestAttendanceStatsRequiresClass(t *testing.T) {
	svc, _, _, _, _, _ := newStatsFixture()

	_, err := svc.AttendanceStats(context.Background(), "teacher-1", "", 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceStatsReturnsOnlyRecordedDays(t *testing.T) {
	svc, _, _, attendance, _, _ := newStatsFixture()
	attendance.records["class-1"] = map[string]models.AttendanceData{
		"2026-03-09": {"s1": models.AttendancePresent, "s2": models.AttendancePresent},
		"2026-03-10": {"s1": models.AttendancePresent, "s2": models.AttendanceAbsent},
	}

	stats, err := svc.AttendanceStats(context.Background(), "teacher-1", "class-1", 7)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "2026-03-09", stats[0].Date)
	assert.Equal(t, 100, stats[0].Rate)
	assert.Equal(t, 0, stats[0].Late)
	assert.Equal(t, "2026-03-10", stats[1].Date)
	assert.Equal(t, 1, stats[1].Present)
	assert.Equal(t, 1, stats[1].Absent)
	assert.Equal(t, 2, stats[1].Total)
	assert.Equal(t, 50, stats[1].Rate)
}

func TestGradeDistributionRequiresClass(t *testing.T) {
	svc, _, _, _, _, _ := newStatsFixture()

	_, err := svc.GradeDistribution(context.Background(), "teacher-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassComparison(t *testing.T) {
	svc, classes, students, _, grades, _ := newStatsFixture()
	classes.classes = append(classes.classes, models.Class{ID: "class-2", OwnerUserID: "teacher-1", Name: "Science 5B"})
	students.counts["class-2"] = 3
	grades.grades["class-2"] = []models.Grade{{Score: 8.0}}

	comparison, err := svc.ClassComparison(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, comparison, 2)

	assert.Equal(t, "Math 5A", comparison[0].ClassName)
	assert.Equal(t, 2, comparison[0].TotalStudents)
	assert.Equal(t, "Science 5B", comparison[1].ClassName)
	assert.Equal(t, 3, comparison[1].TotalStudents)
	assert.Equal(t, 1, comparison[1].GradeDistribution.Good)
}

func TestComparisonDataset(t *testing.T) {
	svc, _, _, _, grades, _ := newStatsFixture()
	grades.grades["class-1"] = []models.Grade{{Score: 9.5}, {Score: 6.0}}

	dataset, err := svc.ComparisonDataset(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "Class Comparison", dataset.Title)
	require.Len(t, dataset.Rows, 1)

	row := dataset.Rows[0]
	assert.Equal(t, "Math 5A", row["Class"])
	assert.Equal(t, "2", row["Students"])
	assert.Equal(t, "7.75", row["Average Grade"])
	assert.Equal(t, "1", row["Excellent"])
}
