package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type classRepository interface {
	ListByOwner(ctx context.Context, ownerUserID string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

// ClassService manages a teacher's classes.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns all classes owned by the teacher.
func (s *ClassService) List(ctx context.Context, teacherID string) ([]models.Class, error) {
	classes, err := s.repo.ListByOwner(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get loads one class, enforcing ownership.
func (s *ClassService) Get(ctx context.Context, teacherID, classID string) (*models.Class, error) {
	return s.owned(ctx, teacherID, classID)
}

// Create adds a new class owned by the teacher.
func (s *ClassService) Create(ctx context.Context, teacherID string, input models.ClassInput) (*models.Class, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class := &models.Class{
		OwnerUserID: teacherID,
		Name:        input.Name,
		Schedules:   models.ScheduleList(input.Schedules),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update changes a class's name or schedules.
func (s *ClassService) Update(ctx context.Context, teacherID, classID string, input models.ClassInput) (*models.Class, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.owned(ctx, teacherID, classID)
	if err != nil {
		return nil, err
	}

	class.Name = input.Name
	class.Schedules = models.ScheduleList(input.Schedules)
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class and, via cascading constraints, its dependents.
func (s *ClassService) Delete(ctx context.Context, teacherID, classID string) error {
	if _, err := s.owned(ctx, teacherID, classID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

func (s *ClassService) owned(ctx context.Context, teacherID, classID string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, classID)
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
