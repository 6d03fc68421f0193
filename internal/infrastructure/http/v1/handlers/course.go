package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus/internal/core/apperror"
	"campus/internal/core/id"
	"campus/internal/domain/course"
	"campus/internal/infrastructure/http/v1/dto"
)

// CourseHandler serves course CRUD and enrollment endpoints.
type CourseHandler struct {
	*BaseHandler
	service *course.Service
}

// NewCourseHandler creates a new course handler.
func NewCourseHandler(base *BaseHandler, service *course.Service) *CourseHandler {
	return &CourseHandler{BaseHandler: base, service: service}
}

// Create handles POST /courses.
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	crs, err := h.service.Create(c.Request.Context(), req.Name, req.AuthorName, req.Price)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromCourse(crs))
}

// Get handles GET /courses/:id.
func (h *CourseHandler) Get(c *gin.Context) {
	courseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	crs, err := h.service.Get(c.Request.Context(), courseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCourse(crs))
}

// List handles GET /courses.
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCourses(courses))
}

// Update handles PUT /courses/:id.
func (h *CourseHandler) Update(c *gin.Context) {
	courseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	crs, err := h.service.Update(c.Request.Context(), courseID, req.Name, req.AuthorName, req.Price)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCourse(crs))
}

// Delete handles DELETE /courses/:id.
func (h *CourseHandler) Delete(c *gin.Context) {
	courseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), courseID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Enroll handles POST /courses/:id/enrollments.
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.EnrollRequest
	if !h.BindJSON(c, &req) {
		return
	}
	userID, err := id.Parse(req.UserID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid userId").WithDetail("value", req.UserID))
		return
	}

	e, err := h.service.Enroll(c.Request.Context(), userID, courseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromEnrollment(e))
}

// Unenroll handles DELETE /courses/:id/enrollments/:user_id.
func (h *CourseHandler) Unenroll(c *gin.Context) {
	courseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	userID, ok := h.ParseID(c, "user_id")
	if !ok {
		return
	}

	if err := h.service.Unenroll(c.Request.Context(), userID, courseID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListEnrollments handles GET /courses/:id/enrollments.
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	courseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	roster, err := h.service.ListEnrollments(c.Request.Context(), courseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromEnrolledUsers(roster))
}

// ListUserCourses handles GET /users/:id/courses.
func (h *CourseHandler) ListUserCourses(c *gin.Context) {
	userID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	courses, err := h.service.ListUserCourses(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCourses(courses))
}
