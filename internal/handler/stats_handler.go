package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studynote/studynote-api/internal/middleware"
	"github.com/studynote/studynote-api/internal/service"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/export"
	"github.com/studynote/studynote-api/pkg/response"
)

// StatsHandler exposes the statistics endpoints.
type StatsHandler struct {
	stats *service.StatsService
	csv   *export.CSVExporter
	pdf   *export.PDFExporter
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{
		stats: stats,
		csv:   export.NewCSVExporter(),
		pdf:   export.NewPDFExporter(),
	}
}

// Dashboard godoc
// @Summary Daily dashboard statistics
// @Tags Stats
// @Produce json
// @Param classId query string false "Scope to one class; omit for all owned classes"
// @Success 200 {object} response.Envelope
// @Router /stats/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	entry, cacheHit, err := h.stats.Dashboard(c.Request.Context(), claims.UserID, c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, entry, nil, middleware.ExtractMeta(c))
}

// Attendance godoc
// @Summary Raw attendance counts for recent days
// @Tags Stats
// @Produce json
// @Param classId query string true "Class ID"
// @Param days query int false "Number of days to look back"
// @Success 200 {object} response.Envelope
// @Router /stats/attendance [get]
func (h *StatsHandler) Attendance(c *gin.Context) {
	claims := claimsFromContext(c)
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be a positive integer"))
			return
		}
		days = parsed
	}
	stats, err := h.stats.AttendanceStats(c.Request.Context(), claims.UserID, c.Query("classId"), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Grades godoc
// @Summary Grade distribution for one class
// @Tags Stats
// @Produce json
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /stats/grades [get]
func (h *StatsHandler) Grades(c *gin.Context) {
	claims := claimsFromContext(c)
	distribution, err := h.stats.GradeDistribution(c.Request.Context(), claims.UserID, c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, distribution, nil)
}

// Comparison godoc
// @Summary Per-class statistics across all owned classes
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/comparison [get]
func (h *StatsHandler) Comparison(c *gin.Context) {
	claims := claimsFromContext(c)
	comparison, err := h.stats.ClassComparison(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comparison, nil)
}

// Export godoc
// @Summary Export the class comparison as CSV or PDF
// @Tags Stats
// @Produce octet-stream
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /stats/export [get]
func (h *StatsHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	dataset, err := h.stats.ComparisonDataset(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("class-comparison-%s", time.Now().Format("2006-01-02"))
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(dataset)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
