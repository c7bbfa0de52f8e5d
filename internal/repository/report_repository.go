package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studynote/studynote-api/internal/models"
)

const reportColumns = `id, class_id, student_id, student_name, teacher_note, tags, tone, content, tokens_used, sent_at, created_at`

// ReportRepository handles persistence for generated reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ListByStudent returns reports for a student, newest first.
func (r *ReportRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE student_id = $1 ORDER BY created_at DESC", reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, studentID); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// FindByID returns a report by primary key.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// Create inserts a generated report.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	report.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO reports (id, class_id, student_id, student_name, teacher_note, tags, tone, content, tokens_used, sent_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		report.ID, report.ClassID, report.StudentID, report.StudentName,
		report.TeacherNote, report.Tags, report.Tone, report.Content,
		report.TokensUsed, report.SentAt, report.CreatedAt); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// MarkSent stamps the delivery time after the messaging adapter succeeds.
func (r *ReportRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE reports SET sent_at = $1 WHERE id = $2`, sentAt, id); err != nil {
		return fmt.Errorf("mark report sent: %w", err)
	}
	return nil
}
