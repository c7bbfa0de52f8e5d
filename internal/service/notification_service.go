package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/platform"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/jobs"
)

type notifyReportRepository interface {
	FindByID(ctx context.Context, id string) (*models.Report, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
}

type notifyStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type notifyClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type notifyUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// NotifyConfig tunes the dispatch queue.
type NotifyConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

type sendReportPayload struct {
	ReportID string
}

// NotificationService delivers generated reports to linked parents through
// the active platform adapter. Delivery runs on a background queue.
type NotificationService struct {
	reports  notifyReportRepository
	students notifyStudentRepository
	classes  notifyClassRepository
	users    notifyUserRepository
	provider platform.Provider
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewNotificationService constructs the service and its queue. Call Start
// before enqueueing deliveries.
func NewNotificationService(reports notifyReportRepository, students notifyStudentRepository, classes notifyClassRepository, users notifyUserRepository, provider platform.Provider, logger *zap.Logger, cfg NotifyConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		reports:  reports,
		students: students,
		classes:  classes,
		users:    users,
		provider: provider,
		logger:   logger,
	}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		OnDrop:     s.dropped,
		Logger:     logger,
	})
	return s
}

// dropped records a delivery abandoned after exhausting retries. The report
// stays unsent so the teacher can trigger it again.
func (s *NotificationService) dropped(job jobs.Job, err error) {
	payload, ok := job.Payload.(sendReportPayload)
	if !ok {
		return
	}
	s.logger.Sugar().Errorw("report delivery abandoned", "report_id", payload.ReportID, "error", err)
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// SendReport queues a report for delivery to the student's linked parent.
func (s *NotificationService) SendReport(ctx context.Context, teacherID, reportID string) error {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch report")
	}

	class, err := s.classes.FindByID(ctx, report.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if class.OwnerUserID != teacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}

	student, err := s.students.FindByID(ctx, report.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if student.ParentUserID == nil {
		return appErrors.Clone(appErrors.ErrValidation, "student has no linked parent")
	}

	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "send_report",
		Payload: sendReportPayload{ReportID: reportID},
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue delivery")
	}
	return nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(sendReportPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	report, err := s.reports.FindByID(ctx, payload.ReportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", payload.ReportID, err)
	}
	if report.SentAt != nil {
		return nil
	}

	student, err := s.students.FindByID(ctx, report.StudentID)
	if err != nil {
		return fmt.Errorf("load student %s: %w", report.StudentID, err)
	}
	if student.ParentUserID == nil {
		return fmt.Errorf("student %s has no linked parent", student.ID)
	}

	parent, err := s.users.FindByID(ctx, *student.ParentUserID)
	if err != nil {
		return fmt.Errorf("load parent %s: %w", *student.ParentUserID, err)
	}

	text := fmt.Sprintf("Progress report for %s:\n\n%s", report.StudentName, report.Content)
	if err := s.provider.SendMessage(ctx, parent.PlatformUserID, text); err != nil {
		return fmt.Errorf("deliver report %s: %w", report.ID, err)
	}

	if err := s.reports.MarkSent(ctx, report.ID, time.Now().UTC()); err != nil {
		s.logger.Sugar().Errorw("report delivered but not marked sent", "report_id", report.ID, "error", err)
		return nil
	}

	s.logger.Sugar().Infow("report delivered", "report_id", report.ID, "parent_id", parent.ID)
	return nil
}
