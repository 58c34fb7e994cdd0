package handler

import (
	"github.com/gin-gonic/gin"

	"peerbridge/internal/dto"
	"peerbridge/internal/service"
	"peerbridge/pkg/response"
)

// CatalogHandler departments and courses
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListDepartments
// GET /api/v1/departments
func (h *CatalogHandler) ListDepartments(c *gin.Context) {
	list, err := h.catalogSvc.ListDepartments(c.Request.Context())
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListCourses
// GET /api/v1/courses?department_id=
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid department_id")
		return
	}

	list, err := h.catalogSvc.ListCourses(c.Request.Context(), req.DepartmentID)
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTutorCourses courses a tutor offers
// GET /api/v1/tutors/:id/courses
func (h *CatalogHandler) ListTutorCourses(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.catalogSvc.ListTutorCourses(c.Request.Context(), id)
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTuteeCourses courses a tutee needs
// GET /api/v1/tutees/:id/courses
func (h *CatalogHandler) ListTuteeCourses(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.catalogSvc.ListTuteeCourses(c.Request.Context(), id)
	if err != nil {
		handleReadError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}
