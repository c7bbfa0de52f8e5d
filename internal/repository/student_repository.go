package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const studentColumns = `id, class_id, name, parent_user_id, connection_code, created_at, updated_at`

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns every student of a class ordered by name.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE class_id = $1 ORDER BY name ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListByParent returns students linked to a parent identity.
func (r *StudentRepository) ListByParent(ctx context.Context, parentUserID string) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE parent_user_id = $1 ORDER BY name ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, parentUserID); err != nil {
		return nil, fmt.Errorf("list students by parent: %w", err)
	}
	return students, nil
}

// CountByClass counts students in a class.
func (r *StudentRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE class_id = $1`, classID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// FindByID returns a student by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByConnectionCode resolves a student from a parent connection code.
func (r *StudentRepository) FindByConnectionCode(ctx context.Context, code string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE connection_code = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, code); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a single student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, class_id, name, parent_user_id, connection_code, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, student.ID, student.ClassID, student.Name, student.ParentUserID, student.ConnectionCode, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BulkCreate inserts many students atomically. A failure rolls back the
// whole batch so partial rosters cannot occur.
func (r *StudentRepository) BulkCreate(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk students: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO students (id, class_id, name, parent_user_id, connection_code, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	now := time.Now().UTC()
	for i := range students {
		s := &students[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.CreatedAt = now
		s.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, query, s.ID, s.ClassID, s.Name, s.ParentUserID, s.ConnectionCode, s.CreatedAt, s.UpdatedAt); err != nil {
			return fmt.Errorf("bulk insert student %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk students: %w", err)
	}
	committed = true
	return nil
}

// UpdateName renames a student. Denormalized names on historic grades are
// left untouched on purpose.
func (r *StudentRepository) UpdateName(ctx context.Context, id, name string) error {
	const query = `UPDATE students SET name = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// LinkParent binds a parent identity to the student.
func (r *StudentRepository) LinkParent(ctx context.Context, id, parentUserID string) error {
	const query = `UPDATE students SET parent_user_id = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, parentUserID, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("link parent: %w", err)
	}
	return nil
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
