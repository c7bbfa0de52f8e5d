package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studynote/studynote-api/internal/models"
	"github.com/studynote/studynote-api/internal/service"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
	"github.com/studynote/studynote-api/pkg/response"
)

// StudentHandler exposes roster endpoints.
type StudentHandler struct {
	students *service.StudentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students in a class
// @Tags Students
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *StudentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	students, err := h.students.List(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ListMine godoc
// @Summary List students linked to the parent account
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/mine [get]
func (h *StudentHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	students, err := h.students.ListForParent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Create godoc
// @Summary Add a student to a class
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.StudentInput true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// CreateBatch godoc
// @Summary Add many students at once
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.StudentBatchInput true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/students/batch [post]
func (h *StudentHandler) CreateBatch(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.StudentBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	students, err := h.students.CreateBatch(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, students)
}

// Rename godoc
// @Summary Rename a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.StudentInput true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Rename(c *gin.Context) {
	claims := claimsFromContext(c)
	var input models.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Rename(c.Request.Context(), claims.UserID, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Remove a student
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.students.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Connect godoc
// @Summary Link a parent account by connection code
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.ConnectRequest true "Connection payload"
// @Success 200 {object} response.Envelope
// @Router /students/connect [post]
func (h *StudentHandler) Connect(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.ConnectParent(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
