package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/service"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/response"
)

// HomeworkHandler exposes homework endpoints.
type HomeworkHandler struct {
	homework *service.HomeworkService
}

// NewHomeworkHandler constructs HomeworkHandler.
func NewHomeworkHandler(homework *service.HomeworkService) *HomeworkHandler {
	return &HomeworkHandler{homework: homework}
}

// List godoc
// @Summary List a class's homework
// @Tags Homework
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/homework [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	items, err := h.homework.List(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListForStudent godoc
// @Summary List homework for a linked student's class
// @Tags Homework
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/homework [get]
func (h *HomeworkHandler) ListForStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	items, err := h.homework.ListForStudent(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Post homework to a class
// @Tags Homework
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.HomeworkInput true "Homework payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/homework [post]
func (h *HomeworkHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.HomeworkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.homework.Create(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Edit homework
// @Tags Homework
// @Accept json
// @Produce json
// @Param id path string true "Homework ID"
// @Param payload body models.HomeworkInput true "Homework payload"
// @Success 200 {object} response.Envelope
// @Router /homework/{id} [put]
func (h *HomeworkHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.HomeworkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.homework.Update(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete homework
// @Tags Homework
// @Param id path string true "Homework ID"
// @Success 204
// @Router /homework/{id} [delete]
func (h *HomeworkHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.homework.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
