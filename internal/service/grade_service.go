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

type gradeRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	Upsert(ctx context.Context, grade *models.Grade) (*models.Grade, error)
	Delete(ctx context.Context, id string) error
}

type gradeClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// GradeService records scores, one per (class, student, type).
type GradeService struct {
	repo      gradeRepository
	classes   gradeClassRepository
	students  gradeStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs a GradeService instance.
func NewGradeService(repo gradeRepository, classes gradeClassRepository, students gradeStudentRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{repo: repo, classes: classes, students: students, validator: validate, logger: logger}
}

// ListByClass returns every grade recorded for a class.
func (s *GradeService) ListByClass(ctx context.Context, teacherID, classID string) ([]models.Grade, error) {
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	grades, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ListByStudent returns one student's grades for the linked parent.
func (s *GradeService) ListByStudent(ctx context.Context, parentUserID, studentID string) ([]models.Grade, error) {
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

	grades, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Save upserts a grade. The student's current name is denormalized onto the
// row; later renames do not rewrite it.
func (s *GradeService) Save(ctx context.Context, teacherID, classID string, input models.GradeInput) (*models.Grade, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, input.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.ClassID != classID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student does not belong to this class")
	}

	grade, err := s.repo.Upsert(ctx, &models.Grade{
		ClassID:     classID,
		StudentID:   input.StudentID,
		StudentName: student.Name,
		Score:       input.Score,
		Comment:     input.Comment,
		Type:        input.Type,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	return grade, nil
}

// Delete removes a grade row.
func (s *GradeService) Delete(ctx context.Context, teacherID, gradeID string) error {
	grade, err := s.repo.FindByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch grade")
	}
	if _, err := s.ownedClass(ctx, teacherID, grade.ClassID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, gradeID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}

func (s *GradeService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
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
