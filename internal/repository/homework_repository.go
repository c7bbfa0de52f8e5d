package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const homeworkColumns = `id, class_id, title, content, due_date, created_at`

// HomeworkRepository handles persistence for homework assignments.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository constructs the repository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// ListByClass returns assignments for a class, newest first.
func (r *HomeworkRepository) ListByClass(ctx context.Context, classID string) ([]models.Homework, error) {
	query := fmt.Sprintf("SELECT %s FROM homeworks WHERE class_id = $1 ORDER BY created_at DESC", homeworkColumns)
	var items []models.Homework
	if err := r.db.SelectContext(ctx, &items, query, classID); err != nil {
		return nil, fmt.Errorf("list homeworks: %w", err)
	}
	return items, nil
}

// FindByID returns an assignment by primary key.
func (r *HomeworkRepository) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	query := fmt.Sprintf("SELECT %s FROM homeworks WHERE id = $1", homeworkColumns)
	var item models.Homework
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new assignment.
func (r *HomeworkRepository) Create(ctx context.Context, item *models.Homework) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO homeworks (id, class_id, title, content, due_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, item.ID, item.ClassID, item.Title, item.Content, item.DueDate, item.CreatedAt); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// Update rewrites an assignment.
func (r *HomeworkRepository) Update(ctx context.Context, item *models.Homework) error {
	const query = `UPDATE homeworks SET title = $1, content = $2, due_date = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, item.Title, item.Content, item.DueDate, item.ID); err != nil {
		return fmt.Errorf("update homework: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *HomeworkRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM homeworks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	return nil
}
