package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/service"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/response"
)

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// ListByClass godoc
// @Summary List grades in a class
// @Tags Grades
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/grades [get]
func (h *GradeHandler) ListByClass(c *gin.Context) {
	claims := claimsFromContext(c)
	grades, err := h.grades.ListByClass(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// ListByStudent godoc
// @Summary List a linked student's grades
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *GradeHandler) ListByStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	grades, err := h.grades.ListByStudent(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Save godoc
// @Summary Record or replace a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.GradeInput true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/grades [post]
func (h *GradeHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.GradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.grades.Save(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Delete godoc
// @Summary Delete a grade
// @Tags Grades
// @Param id path string true "Grade ID"
// @Success 204
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.grades.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
