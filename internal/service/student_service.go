package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type studentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	ListByParent(ctx context.Context, parentUserID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByConnectionCode(ctx context.Context, code string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	BulkCreate(ctx context.Context, students []models.Student) error
	UpdateName(ctx context.Context, id, name string) error
	LinkParent(ctx context.Context, id, parentUserID string) error
	Delete(ctx context.Context, id string) error
}

type studentClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// StudentService manages class rosters and parent connections.
type StudentService struct {
	repo      studentRepository
	classes   studentClassRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, classes studentClassRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns the roster of one class, enforcing ownership.
func (s *StudentService) List(ctx context.Context, teacherID, classID string) ([]models.Student, error) {
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// ListForParent returns the students linked to the parent account.
func (s *StudentService) ListForParent(ctx context.Context, parentUserID string) ([]models.Student, error) {
	students, err := s.repo.ListByParent(ctx, parentUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Create adds one student with a fresh connection code.
func (s *StudentService) Create(ctx context.Context, teacherID, classID string, input models.StudentInput) (*models.Student, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	student := &models.Student{
		ClassID:        classID,
		Name:           strings.TrimSpace(input.Name),
		ConnectionCode: newConnectionCode(),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// CreateBatch adds many students in one transaction. Either every row is
// written or none is.
func (s *StudentService) CreateBatch(ctx context.Context, teacherID, classID string, input models.StudentBatchInput) ([]models.Student, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(input.Names))
	for _, name := range input.Names {
		students = append(students, models.Student{
			ClassID:        classID,
			Name:           strings.TrimSpace(name),
			ConnectionCode: newConnectionCode(),
		})
	}
	if err := s.repo.BulkCreate(ctx, students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create students")
	}
	return students, nil
}

// Rename updates a student's name. Denormalized names on historic grade and
// report rows are left as written.
func (s *StudentService) Rename(ctx context.Context, teacherID, studentID string, input models.StudentInput) (*models.Student, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.ownedStudent(ctx, teacherID, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateName(ctx, studentID, strings.TrimSpace(input.Name)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename student")
	}
	student.Name = strings.TrimSpace(input.Name)
	return student, nil
}

// Delete removes a student from the roster.
func (s *StudentService) Delete(ctx context.Context, teacherID, studentID string) error {
	if _, err := s.ownedStudent(ctx, teacherID, studentID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// ConnectParent links a parent account to the student matching the code.
func (s *StudentService) ConnectParent(ctx context.Context, parentUserID string, req models.ConnectRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid connect payload")
	}

	student, err := s.repo.FindByConnectionCode(ctx, strings.TrimSpace(req.ConnectionCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "connection code not recognized")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up connection code")
	}
	if student.ParentUserID != nil && *student.ParentUserID != parentUserID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already linked to another parent")
	}

	if err := s.repo.LinkParent(ctx, student.ID, parentUserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link parent")
	}
	student.ParentUserID = &parentUserID
	return student, nil
}

func (s *StudentService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
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

func (s *StudentService) ownedStudent(ctx context.Context, teacherID, studentID string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if _, err := s.ownedClass(ctx, teacherID, student.ClassID); err != nil {
		return nil, err
	}
	return student, nil
}

func newConnectionCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
