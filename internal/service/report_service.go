package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studynote/studynote-api/internal/models"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

type reportRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Report, error)
	FindByID(ctx context.Context, id string) (*models.Report, error)
	Create(ctx context.Context, report *models.Report) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
}

type reportStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type reportClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type reportGradeRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
}

// ReportGeneratorConfig configures the completion API client.
type ReportGeneratorConfig struct {
	APIBaseURL string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxTokens  int
}

// ReportService generates progress notes for students through a
// chat-completion API and stores the results.
type ReportService struct {
	repo      reportRepository
	students  reportStudentRepository
	classes   reportClassRepository
	grades    reportGradeRepository
	client    *http.Client
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportGeneratorConfig
}

// NewReportService constructs a ReportService instance.
func NewReportService(repo reportRepository, students reportStudentRepository, classes reportClassRepository, grades reportGradeRepository, validate *validator.Validate, logger *zap.Logger, cfg ReportGeneratorConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	return &ReportService{
		repo:      repo,
		students:  students,
		classes:   classes,
		grades:    grades,
		client:    &http.Client{Timeout: cfg.Timeout},
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

var promptTemplate = template.Must(template.New("report").Parse(`You are an assistant helping a teacher write a progress report for a parent.

Student: {{.StudentName}}
Class: {{.ClassName}}
Tone: {{.Tone}}
{{- if .Tags}}
Focus areas: {{.TagLine}}
{{- end}}
{{- if .GradeLine}}
Recent grades: {{.GradeLine}}
{{- end}}

Teacher's note:
{{.TeacherNote}}

Write the report in the teacher's voice, addressed to the parent. Structure
the answer with exactly these three markdown headings:

## Strengths
## Areas to improve
## Recommendations`))

var sectionPattern = regexp.MustCompile(`(?m)^##\s*(Strengths|Areas to improve|Recommendations)\s*$`)

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ListByStudent returns a student's reports for the owning teacher.
func (s *ReportService) ListByStudent(ctx context.Context, teacherID, studentID string) ([]models.Report, error) {
	if _, _, err := s.ownedStudent(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	reports, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

// Generate builds a prompt from the teacher's note plus student context,
// calls the completion API, and stores the result.
func (s *ReportService) Generate(ctx context.Context, teacherID string, input models.ReportInput) (*models.Report, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if s.cfg.APIKey == "" {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report generation is not configured")
	}

	student, class, err := s.ownedStudent(ctx, teacherID, input.StudentID)
	if err != nil {
		return nil, err
	}

	tone := input.Tone
	if tone == "" {
		tone = "friendly"
	}

	prompt, err := s.buildPrompt(ctx, student, class, input, tone)
	if err != nil {
		return nil, err
	}

	content, tokens, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ClassID:     student.ClassID,
		StudentID:   student.ID,
		StudentName: student.Name,
		TeacherNote: input.TeacherNote,
		Tags:        input.Tags,
		Tone:        tone,
		Content:     content,
		TokensUsed:  tokens,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	s.logger.Sugar().Infow("report generated", "report_id", report.ID, "student_id", student.ID, "tokens", tokens)
	return report, nil
}

// Sections parses the generated markdown into its three fixed headings.
// Missing headings come back empty rather than failing the request.
func (s *ReportService) Sections(content string) models.ReportSections {
	var sections models.ReportSections
	matches := sectionPattern.FindAllStringSubmatchIndex(content, -1)
	for i, match := range matches {
		heading := content[match[2]:match[3]]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(content[match[1]:end])
		switch heading {
		case "Strengths":
			sections.Strengths = body
		case "Areas to improve":
			sections.AreasToImprove = body
		case "Recommendations":
			sections.Recommendations = body
		}
	}
	return sections
}

// Get loads one report, enforcing ownership through the student's class.
func (s *ReportService) Get(ctx context.Context, teacherID, reportID string) (*models.Report, error) {
	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch report")
	}
	if _, _, err := s.ownedStudent(ctx, teacherID, report.StudentID); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) buildPrompt(ctx context.Context, student *models.Student, class *models.Class, input models.ReportInput, tone string) (string, error) {
	grades, err := s.grades.ListByStudent(ctx, student.ID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	lines := make([]string, 0, len(grades))
	for _, g := range grades {
		lines = append(lines, fmt.Sprintf("%s %.1f", g.Type, g.Score))
	}

	data := struct {
		StudentName string
		ClassName   string
		Tone        string
		Tags        []string
		TagLine     string
		GradeLine   string
		TeacherNote string
	}{
		StudentName: student.Name,
		ClassName:   class.Name,
		Tone:        tone,
		Tags:        input.Tags,
		TagLine:     strings.Join(input.Tags, ", "),
		GradeLine:   strings.Join(lines, "; "),
		TeacherNote: input.TeacherNote,
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build prompt")
	}
	return buf.String(), nil
}

func (s *ReportService) complete(ctx context.Context, prompt string) (string, int, error) {
	body, err := json.Marshal(chatRequest{
		Model:     s.cfg.Model,
		MaxTokens: s.cfg.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
	}

	url := strings.TrimRight(s.cfg.APIBaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "completion request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "failed to read completion response")
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrPlatform.Code, appErrors.ErrPlatform.Status, "failed to decode completion response")
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("completion API returned %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", 0, appErrors.Clone(appErrors.ErrPlatform, msg)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, appErrors.Clone(appErrors.ErrPlatform, "completion API returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), parsed.Usage.TotalTokens, nil
}

func (s *ReportService) ownedStudent(ctx context.Context, teacherID, studentID string) (*models.Student, *models.Class, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	class, err := s.classes.FindByID(ctx, student.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if class.OwnerUserID != teacherID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return student, class, nil
}
