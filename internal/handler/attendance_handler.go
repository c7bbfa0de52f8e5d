package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/service"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/response"
)

// AttendanceHandler exposes roll call endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Get godoc
// @Summary Get a class's record for a day
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	date := c.Query("date")
	if date == "" {
		from := c.Query("from")
		to := c.Query("to")
		if from != "" && to != "" {
			records, err := h.attendance.ListRange(c.Request.Context(), claims.UserID, c.Param("id"), from, to)
			if err != nil {
				response.Error(c, err)
				return
			}
			response.JSON(c, http.StatusOK, records, nil)
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date or from/to query parameters are required"))
		return
	}

	record, err := h.attendance.Get(c.Request.Context(), claims.UserID, c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Save godoc
// @Summary Record roll call for a day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.AttendanceInput true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.AttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Save(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
