package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/service"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/response"
)

// ReportHandler exposes AI report endpoints.
type ReportHandler struct {
	reports       *service.ReportService
	notifications *service.NotificationService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, notifications *service.NotificationService) *ReportHandler {
	return &ReportHandler{reports: reports, notifications: notifications}
}

type reportView struct {
	models.Report
	Sections models.ReportSections `json:"sections"`
}

// Generate godoc
// @Summary Generate a progress report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.ReportInput true "Report payload"
// @Success 201 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.reports.Generate(c.Request.Context(), claims.UserID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reportView{Report: *report, Sections: h.reports.Sections(report.Content)})
}

// ListByStudent godoc
// @Summary List a student's reports
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/reports [get]
func (h *ReportHandler) ListByStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	reports, err := h.reports.ListByStudent(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Get godoc
// @Summary Get a report with parsed sections
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	report, err := h.reports.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reportView{Report: *report, Sections: h.reports.Sections(report.Content)}, nil)
}

// Send godoc
// @Summary Queue a report for delivery to the linked parent
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 202 {object} response.Envelope
// @Router /reports/{id}/send [post]
func (h *ReportHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.notifications.SendReport(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": "queued"}, nil)
}
