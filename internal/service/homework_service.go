package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type homeworkRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Homework, error)
	FindByID(ctx context.Context, id string) (*models.Homework, error)
	Create(ctx context.Context, item *models.Homework) error
	Update(ctx context.Context, item *models.Homework) error
	Delete(ctx context.Context, id string) error
}

type homeworkClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type homeworkStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// HomeworkService manages assignments posted to a class.
type HomeworkService struct {
	repo      homeworkRepository
	classes   homeworkClassRepository
	students  homeworkStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHomeworkService constructs a HomeworkService instance.
func NewHomeworkService(repo homeworkRepository, classes homeworkClassRepository, students homeworkStudentRepository, validate *validator.Validate, logger *zap.Logger) *HomeworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HomeworkService{repo: repo, classes: classes, students: students, validator: validate, logger: logger}
}

// List returns a class's assignments, newest first.
func (s *HomeworkService) List(ctx context.Context, teacherID, classID string) ([]models.Homework, error) {
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}
	return items, nil
}

// ListForStudent returns the assignments of a student's class for the
// linked parent.
func (s *HomeworkService) ListForStudent(ctx context.Context, parentUserID, studentID string) ([]models.Homework, error) {
	student, err := s.linkedStudent(ctx, parentUserID, studentID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByClass(ctx, student.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}
	return items, nil
}

// Create posts a new assignment.
func (s *HomeworkService) Create(ctx context.Context, teacherID, classID string, input models.HomeworkInput) (*models.Homework, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	item := &models.Homework{
		ClassID: classID,
		Title:   input.Title,
		Content: input.Content,
		DueDate: optionalDay(input.DueDate),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create homework")
	}
	return item, nil
}

// Update edits an assignment.
func (s *HomeworkService) Update(ctx context.Context, teacherID, homeworkID string, input models.HomeworkInput) (*models.Homework, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}

	item, err := s.owned(ctx, teacherID, homeworkID)
	if err != nil {
		return nil, err
	}
	item.Title = input.Title
	item.Content = input.Content
	item.DueDate = optionalDay(input.DueDate)
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update homework")
	}
	return item, nil
}

// Delete removes an assignment.
func (s *HomeworkService) Delete(ctx context.Context, teacherID, homeworkID string) error {
	if _, err := s.owned(ctx, teacherID, homeworkID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, homeworkID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete homework")
	}
	return nil
}

func (s *HomeworkService) owned(ctx context.Context, teacherID, homeworkID string) (*models.Homework, error) {
	item, err := s.repo.FindByID(ctx, homeworkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch homework")
	}
	if _, err := s.ownedClass(ctx, teacherID, item.ClassID); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *HomeworkService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
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

func (s *HomeworkService) linkedStudent(ctx context.Context, parentUserID, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.ParentUserID == nil || *student.ParentUserID != parentUserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not linked to this account")
	}
	return student, nil
}

func optionalDay(value string) *time.Time {
	if value == "" {
		return nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &day
}
