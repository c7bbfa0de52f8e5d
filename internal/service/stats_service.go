package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/export"
)

type statsClassRepository interface {
	ListByOwner(ctx context.Context, ownerUserID string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type statsStudentRepository interface {
	CountByClass(ctx context.Context, classID string) (int, error)
}

type statsAttendanceRepository interface {
	FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.AttendanceRecord, error)
	ListByClassRange(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error)
}

type statsGradeRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Grade, error)
}

type statsCacheRepository interface {
	FindByKey(ctx context.Context, cacheKey string) (*models.StatisticsEntry, error)
	Upsert(ctx context.Context, entry *models.StatisticsEntry) error
}

// StatsServiceConfig tunes aggregation behaviour.
type StatsServiceConfig struct {
	CacheTTL  time.Duration
	TrendDays int
}

// StatsService computes attendance/grade rollups for a teacher's classes and
// maintains the daily statistics cache.
type StatsService struct {
	classes    statsClassRepository
	students   statsStudentRepository
	attendance statsAttendanceRepository
	grades     statsGradeRepository
	cache      statsCacheRepository
	responses  *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	cfg        StatsServiceConfig
}

// StatsServiceParams groups constructor dependencies.
type StatsServiceParams struct {
	Classes    statsClassRepository
	Students   statsStudentRepository
	Attendance statsAttendanceRepository
	Grades     statsGradeRepository
	Cache      statsCacheRepository
	Responses  *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     StatsServiceConfig
}

// NewStatsService constructs a StatsService with sane defaults.
func NewStatsService(params StatsServiceParams) *StatsService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.TrendDays <= 0 {
		cfg.TrendDays = 7
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		classes:    params.Classes,
		students:   params.Students,
		attendance: params.Attendance,
		grades:     params.Grades,
		cache:      params.Cache,
		responses:  params.Responses,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Compute aggregates statistics for a teacher, optionally scoped to one
// class. An empty classID spans every class the teacher owns. Any store
// failure aborts the whole computation; partial totals are discarded.
func (s *StatsService) Compute(ctx context.Context, teacherID, classID string) (*models.Stats, error) {
	start := s.now()
	scope, err := s.resolveScope(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{}
	for _, class := range scope {
		count, err := s.students.CountByClass(ctx, class.ID)
		if err != nil {
			return nil, aggregationFailure("count students", err)
		}
		stats.TotalStudents += count
	}

	trend, rate, err := s.attendanceTrend(ctx, scope)
	if err != nil {
		return nil, err
	}
	stats.AttendanceTrend = trend
	stats.AttendanceRate = rate

	distribution, average, err := s.gradeRollup(ctx, scope)
	if err != nil {
		return nil, err
	}
	stats.GradeDistribution = distribution
	stats.AverageGrade = average

	if s.metrics != nil {
		s.metrics.ObserveStatsComputation(s.now().Sub(start))
	}
	return stats, nil
}

// Dashboard returns the cached daily statistics, recomputing once the entry
// has expired. The boolean reports whether the payload was served from cache.
// Attendance and grade writes never invalidate this cache; consumers tolerate
// staleness up to the configured TTL.
func (s *StatsService) Dashboard(ctx context.Context, teacherID, classID string) (*models.StatisticsEntry, bool, error) {
	now := s.now()
	scope := models.OverallScope
	if classID != "" {
		scope = classID
	}
	key := cacheKey(teacherID, scope, now)

	entry, err := s.cache.FindByKey(ctx, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, aggregationFailure("read statistics cache", err)
	}
	if entry != nil && now.Before(entry.ExpiresAt) {
		return entry, true, nil
	}

	stats, err := s.Compute(ctx, teacherID, classID)
	if err != nil {
		return nil, false, err
	}

	fresh := &models.StatisticsEntry{
		CacheKey:          key,
		TeacherID:         teacherID,
		ClassID:           scope,
		Date:              dayStart(now),
		TotalStudents:     stats.TotalStudents,
		AttendanceRate:    stats.AttendanceRate,
		AverageGrade:      stats.AverageGrade,
		AttendanceTrend:   stats.AttendanceTrend,
		GradeDistribution: stats.GradeDistribution,
		CalculatedAt:      now,
		ExpiresAt:         now.Add(s.cfg.CacheTTL),
	}
	if err := s.cache.Upsert(ctx, fresh); err != nil {
		return nil, false, aggregationFailure("write statistics cache", err)
	}
	return fresh, false, nil
}

// AttendanceStats reads raw attendance records for one class over the last
// `days` days. Unlike Dashboard this path is never cached and returns only
// days that actually have a stored record.
func (s *StatsService) AttendanceStats(ctx context.Context, teacherID, classID string, days int) ([]models.AttendanceDayStats, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	if days <= 0 {
		days = s.cfg.TrendDays
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	now := s.now()
	from := dayStart(now).AddDate(0, 0, -(days - 1))
	records, err := s.attendance.ListByClassRange(ctx, classID, from, dayStart(now))
	if err != nil {
		return nil, aggregationFailure("list attendance records", err)
	}

	result := make([]models.AttendanceDayStats, 0, len(records))
	for _, record := range records {
		present, absent := record.Data.Counts()
		total := present + absent
		result = append(result, models.AttendanceDayStats{
			Date:    record.Date.Format("2006-01-02"),
			Present: present,
			Absent:  absent,
			Total:   total,
			Rate:    percentage(present, total),
		})
	}
	return result, nil
}

// GradeDistribution buckets every grade of one class.
func (s *StatsService) GradeDistribution(ctx context.Context, teacherID, classID string) (*models.GradeDistribution, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	grades, err := s.grades.ListByClass(ctx, classID)
	if err != nil {
		return nil, aggregationFailure("list grades", err)
	}

	distribution := models.GradeDistribution{}
	for _, grade := range grades {
		bucketInto(&distribution, grade.Score)
	}
	return &distribution, nil
}

// ClassComparison computes per-class statistics for every class the teacher
// owns, joined with the class name. A short-lived response cache may serve
// repeats when enabled; the daily statistics table is not involved.
func (s *StatsService) ClassComparison(ctx context.Context, teacherID string) ([]models.ClassStats, error) {
	responseKey := fmt.Sprintf("stats:comparison:%s", teacherID)
	if s.responses.Enabled() {
		var cached []models.ClassStats
		if hit, err := s.responses.Get(ctx, responseKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	classes, err := s.classes.ListByOwner(ctx, teacherID)
	if err != nil {
		return nil, aggregationFailure("list classes", err)
	}

	result := make([]models.ClassStats, 0, len(classes))
	for _, class := range classes {
		stats, err := s.Compute(ctx, teacherID, class.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.ClassStats{
			ClassID:   class.ID,
			ClassName: class.Name,
			Stats:     *stats,
		})
	}

	if s.responses.Enabled() {
		if err := s.responses.Set(ctx, responseKey, result, 0); err != nil {
			s.logger.Warn("comparison response cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// ComparisonDataset flattens the class comparison into an exportable table.
func (s *StatsService) ComparisonDataset(ctx context.Context, teacherID string) (export.Dataset, error) {
	comparison, err := s.ClassComparison(ctx, teacherID)
	if err != nil {
		return export.Dataset{}, err
	}

	dataset := export.Dataset{
		Title:   "Class Comparison",
		Headers: []string{"Class", "Students", "Attendance %", "Average Grade", "Excellent", "Good", "Average", "Poor"},
	}
	for _, entry := range comparison {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Class":         entry.ClassName,
			"Students":      strconv.Itoa(entry.TotalStudents),
			"Attendance %":  strconv.Itoa(entry.AttendanceRate),
			"Average Grade": strconv.FormatFloat(entry.AverageGrade, 'f', 2, 64),
			"Excellent":     strconv.Itoa(entry.GradeDistribution.Excellent),
			"Good":          strconv.Itoa(entry.GradeDistribution.Good),
			"Average":       strconv.Itoa(entry.GradeDistribution.Average),
			"Poor":          strconv.Itoa(entry.GradeDistribution.Poor),
		})
	}
	return dataset, nil
}

func (s *StatsService) resolveScope(ctx context.Context, teacherID, classID string) ([]models.Class, error) {
	if classID != "" {
		class, err := s.ownedClass(ctx, teacherID, classID)
		if err != nil {
			return nil, err
		}
		return []models.Class{*class}, nil
	}

	classes, err := s.classes.ListByOwner(ctx, teacherID)
	if err != nil {
		return nil, aggregationFailure("list classes", err)
	}
	return classes, nil
}

func (s *StatsService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, aggregationFailure("find class", err)
	}
	if class.OwnerUserID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return class, nil
}

// attendanceTrend folds the trailing window of daily records across the
// scoped classes. Days without any record stay in the trend at rate 0 but
// are excluded from the overall average rather than counted as 0%.
func (s *StatsService) attendanceTrend(ctx context.Context, scope []models.Class) (models.TrendDays, int, error) {
	today := dayStart(s.now())
	trend := make(models.TrendDays, 0, s.cfg.TrendDays)
	rateSum := 0
	daysWithData := 0

	for offset := s.cfg.TrendDays - 1; offset >= 0; offset-- {
		day := today.AddDate(0, 0, -offset)
		present, absent := 0, 0
		for _, class := range scope {
			record, err := s.attendance.FindByClassAndDate(ctx, class.ID, day)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					continue
				}
				return nil, 0, aggregationFailure("find attendance record", err)
			}
			p, a := record.Data.Counts()
			present += p
			absent += a
		}

		total := present + absent
		rate := percentage(present, total)
		if total > 0 {
			rateSum += rate
			daysWithData++
		}
		trend = append(trend, models.TrendDay{
			Date:    day.Format("2006-01-02"),
			Present: present,
			Absent:  absent,
			Rate:    rate,
		})
	}

	overall := 0
	if daysWithData > 0 {
		overall = int(math.Round(float64(rateSum) / float64(daysWithData)))
	}
	return trend, overall, nil
}

func (s *StatsService) gradeRollup(ctx context.Context, scope []models.Class) (models.GradeDistribution, float64, error) {
	distribution := models.GradeDistribution{}
	sum := 0.0
	count := 0

	for _, class := range scope {
		grades, err := s.grades.ListByClass(ctx, class.ID)
		if err != nil {
			return distribution, 0, aggregationFailure("list grades", err)
		}
		for _, grade := range grades {
			bucketInto(&distribution, grade.Score)
			sum += grade.Score
			count++
		}
	}

	average := 0.0
	if count > 0 {
		average = math.Round(sum/float64(count)*100) / 100
	}
	return distribution, average, nil
}

// bucketInto classifies a score. Boundary scores land in the higher bucket;
// the >= comparisons are load-bearing for existing clients.
func bucketInto(d *models.GradeDistribution, score float64) {
	switch {
	case score >= 9:
		d.Excellent++
	case score >= 7:
		d.Good++
	case score >= 5:
		d.Average++
	default:
		d.Poor++
	}
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// cacheKey derives the daily cache key. Day boundaries follow server-local
// time; a new key appears at local midnight.
func cacheKey(teacherID, scope string, now time.Time) string {
	return teacherID + "_" + scope + "_" + now.Format("2006-01-02")
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func aggregationFailure(step string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, fmt.Sprintf("statistics aggregation failed: %s", step))
}
