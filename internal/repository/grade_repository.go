package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const gradeColumns = `id, class_id, student_id, student_name, score, comment, type, created_at, updated_at`

// GradeRepository handles persistence for grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByClass returns every grade in a class.
func (r *GradeRepository) ListByClass(ctx context.Context, classID string) ([]models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE class_id = $1 ORDER BY created_at DESC", gradeColumns)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, classID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// ListByStudent returns every grade of a student.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE student_id = $1 ORDER BY created_at DESC", gradeColumns)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list grades by student: %w", err)
	}
	return grades, nil
}

// FindByID returns a grade by primary key.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE id = $1", gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Upsert writes the grade for (class, student, type), replacing an existing
// one. The student name column is denormalized by the caller.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) (*models.Grade, error) {
	now := time.Now().UTC()
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO grades (id, class_id, student_id, student_name, score, comment, type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (class_id, student_id, type)
DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment, student_name = EXCLUDED.student_name, updated_at = EXCLUDED.updated_at
RETURNING %s`, gradeColumns)

	var stored models.Grade
	if err := r.db.GetContext(ctx, &stored, query,
		grade.ID, grade.ClassID, grade.StudentID, grade.StudentName,
		grade.Score, grade.Comment, grade.Type, grade.CreatedAt, grade.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert grade: %w", err)
	}
	return &stored, nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
