package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const examColumns = `id, class_id, title, subject, exam_date, note, created_at`

// ExamRepository handles persistence for exam announcements.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// ListByClass returns exams for a class ordered by date.
func (r *ExamRepository) ListByClass(ctx context.Context, classID string) ([]models.Exam, error) {
	query := fmt.Sprintf("SELECT %s FROM exams WHERE class_id = $1 ORDER BY exam_date ASC NULLS LAST, created_at DESC", examColumns)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, classID); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// FindByID returns an exam by primary key.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := fmt.Sprintf("SELECT %s FROM exams WHERE id = $1", examColumns)
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Create inserts a new exam announcement.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	exam.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO exams (id, class_id, title, subject, exam_date, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, exam.ID, exam.ClassID, exam.Title, exam.Subject, exam.ExamDate, exam.Note, exam.CreatedAt); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Update rewrites an exam announcement.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	const query = `UPDATE exams SET title = $1, subject = $2, exam_date = $3, note = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, exam.Title, exam.Subject, exam.ExamDate, exam.Note, exam.ID); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// Delete removes an exam announcement.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}
