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

type examRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

type examClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type examStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// ExamService manages exam announcements for a class.
type ExamService struct {
	repo      examRepository
	classes   examClassRepository
	students  examStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService instance.
func NewExamService(repo examRepository, classes examClassRepository, students examStudentRepository, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExamService{repo: repo, classes: classes, students: students, validator: validate, logger: logger}
}

// List returns a class's exam announcements.
func (s *ExamService) List(ctx context.Context, teacherID, classID string) ([]models.Exam, error) {
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	exams, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// ListForStudent returns the exams of a student's class for the linked
// parent.
func (s *ExamService) ListForStudent(ctx context.Context, parentUserID, studentID string) ([]models.Exam, error) {
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
	exams, err := s.repo.ListByClass(ctx, student.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// Create announces a new exam.
func (s *ExamService) Create(ctx context.Context, teacherID, classID string, input models.ExamInput) (*models.Exam, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if _, err := s.ownedClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		ClassID:  classID,
		Title:    input.Title,
		Subject:  input.Subject,
		ExamDate: optionalDay(input.ExamDate),
		Note:     input.Note,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Update edits an exam announcement.
func (s *ExamService) Update(ctx context.Context, teacherID, examID string, input models.ExamInput) (*models.Exam, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	exam, err := s.owned(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}
	exam.Title = input.Title
	exam.Subject = input.Subject
	exam.ExamDate = optionalDay(input.ExamDate)
	exam.Note = input.Note
	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam announcement.
func (s *ExamService) Delete(ctx context.Context, teacherID, examID string) error {
	if _, err := s.owned(ctx, teacherID, examID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, examID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

func (s *ExamService) owned(ctx context.Context, teacherID, examID string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch exam")
	}
	if _, err := s.ownedClass(ctx, teacherID, exam.ClassID); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) ownedClass(ctx context.Context, teacherID, classID string) (*models.Class, error) {
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
