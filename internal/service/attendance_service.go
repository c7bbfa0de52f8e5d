package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type attendanceRepository interface {
	FindByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.AttendanceRecord, error)
	ListByClassRange(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
}

type attendanceClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type attendanceStudentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

// AttendanceService records daily roll calls, one record per class per day.
type AttendanceService struct {
	repo      attendanceRepository
	classes   attendanceClassRepository
	students  attendanceStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, classes attendanceClassRepository, students attendanceStudentRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, classes: classes, students: students, validator: validate, logger: logger}
}

// Get returns the record for one class and day, or 404 when none exists.
func (s *AttendanceService) Get(ctx context.Context, teacherID, classID, date string) (*models.AttendanceRecord, error) {
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	day, err := parseDay(date)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindByClassAndDate(ctx, classID, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance record for that date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance")
	}
	return record, nil
}

// ListRange returns all stored records between two dates inclusive.
func (s *AttendanceService) ListRange(ctx context.Context, teacherID, classID, from, to string) ([]models.AttendanceRecord, error) {
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	fromDay, err := parseDay(from)
	if err != nil {
		return nil, err
	}
	toDay, err := parseDay(to)
	if err != nil {
		return nil, err
	}
	if toDay.Before(fromDay) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to date precedes from date")
	}

	records, err := s.repo.ListByClassRange(ctx, classID, fromDay, toDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Save upserts the roll call for one class and day. Marking attendance twice
// for the same day replaces the earlier record.
func (s *AttendanceService) Save(ctx context.Context, teacherID, classID string, input models.AttendanceInput) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	day, err := parseDay(input.Date)
	if err != nil {
		return nil, err
	}

	for studentID, status := range input.Data {
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q for student %s", status, studentID))
		}
	}

	roster, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	known := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		known[st.ID] = struct{}{}
	}
	for studentID := range input.Data {
		if _, ok := known[studentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not in this class", studentID))
		}
	}

	record, err := s.repo.Upsert(ctx, &models.AttendanceRecord{
		ClassID: classID,
		Date:    day,
		Data:    models.AttendanceData(input.Data),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return record, nil
}

func (s *AttendanceService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if class.OwnerUserID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return class, nil
}

func parseDay(value string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return day, nil
}
