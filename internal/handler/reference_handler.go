package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/untapped/internal/dto"
	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/response"
)

type referenceService interface {
	List(ctx context.Context, kind models.Kind, reset bool) ([]models.Entity, error)
	Find(ctx context.Context, kind models.Kind, pattern string) ([]models.Entity, error)
	Groups(ctx context.Context, department string, reset bool) ([]models.Entity, error)
	FindGroups(ctx context.Context, pattern, department string) ([]models.Entity, error)
}

// ReferenceHandler serves the cached reference tables.
type ReferenceHandler struct {
	service referenceService
}

// NewReferenceHandler builds a new handler.
func NewReferenceHandler(service referenceService) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

// SchoolYears godoc
// @Summary List school years
// @Tags Reference
// @Produce json
// @Param reset query bool false "Refetch from the timetable service"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /schoolyears [get]
func (h *ReferenceHandler) SchoolYears(c *gin.Context) {
	h.serve(c, models.KindSchoolYears)
}

// Subjects godoc
// @Summary List subjects, optionally filtered by a glob on the display name
// @Tags Reference
// @Produce json
// @Param pattern query string false "Shell glob, e.g. A*"
// @Param reset query bool false "Refetch from the timetable service"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *ReferenceHandler) Subjects(c *gin.Context) {
	h.serve(c, models.KindSubjects)
}

// Rooms godoc
// @Summary List rooms
// @Tags Reference
// @Produce json
// @Param pattern query string false "Shell glob on the display name"
// @Param reset query bool false "Refetch from the timetable service"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *ReferenceHandler) Rooms(c *gin.Context) {
	h.serve(c, models.KindRooms)
}

// Departments godoc
// @Summary List departments
// @Tags Reference
// @Produce json
// @Param reset query bool false "Refetch from the timetable service"
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *ReferenceHandler) Departments(c *gin.Context) {
	h.serve(c, models.KindDepartments)
}

// Groups godoc
// @Summary List groups, optionally within one department
// @Tags Reference
// @Produce json
// @Param pattern query string false "Shell glob on the short name"
// @Param department query string false "Department id or name"
// @Param reset query bool false "Refetch from the timetable service"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *ReferenceHandler) Groups(c *gin.Context) {
	var q dto.ReferenceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	groups, err := h.service.Groups(c.Request.Context(), q.Department, q.Reset)
	if err == nil && q.Pattern != "" {
		groups, err = h.service.FindGroups(c.Request.Context(), q.Pattern, q.Department)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, map[string]interface{}{"count": len(groups)})
}

func (h *ReferenceHandler) serve(c *gin.Context, kind models.Kind) {
	var q dto.ReferenceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, err := h.service.List(c.Request.Context(), kind, q.Reset)
	if err == nil && q.Pattern != "" {
		items, err = h.service.Find(c.Request.Context(), kind, q.Pattern)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"count": len(items)})
}
