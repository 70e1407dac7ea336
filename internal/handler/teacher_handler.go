package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/untapped/internal/dto"
	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/response"
)

type teacherDirectory interface {
	BulkLoad(ctx context.Context, reset bool) (map[int64]models.Teacher, error)
	All() []models.Teacher
	Get(id int64) (models.Teacher, bool)
	Resolve(id int64) string
	Search(ctx context.Context, surname, forename string, tryReversed bool) (models.Teacher, bool, error)
	SearchFreeText(ctx context.Context, text string) (models.Teacher, bool, error)
}

// TeacherHandler serves the teacher directory.
type TeacherHandler struct {
	directory teacherDirectory
	validator *validator.Validate
}

// NewTeacherHandler builds a new handler.
func NewTeacherHandler(directory teacherDirectory, validate *validator.Validate) *TeacherHandler {
	return &TeacherHandler{directory: directory, validator: validate}
}

// List godoc
// @Summary List known teachers
// @Description Loads the full teacher list when the account may list teachers. Otherwise only teachers found by search are returned.
// @Tags Teachers
// @Produce json
// @Param reset query bool false "Reload the teacher list"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	reset, _ := strconv.ParseBool(c.DefaultQuery("reset", "false"))
	if _, err := h.directory.BulkLoad(c.Request.Context(), reset); err != nil {
		response.Error(c, err)
		return
	}
	teachers := h.directory.All()
	response.JSON(c, http.StatusOK, teachers, map[string]interface{}{"count": len(teachers)})
}

// Get godoc
// @Summary Get a teacher by id
// @Description Unknown ids answer 404 with the "? (id)" placeholder as name.
// @Tags Teachers
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacher id must be a positive integer"))
		return
	}
	teacher, ok := h.directory.Get(id)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s is not known", h.directory.Resolve(id))))
		return
	}
	response.JSON(c, http.StatusOK, teacher)
}

// Search godoc
// @Summary Find a teacher by name
// @Description Either surname and forename, retried reversed unless try_reversed is false, or a single free-text name.
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body dto.TeacherSearchRequest true "Search payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/search [post]
func (h *TeacherHandler) Search(c *gin.Context) {
	var req dto.TeacherSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search payload"))
		return
	}

	var (
		teacher models.Teacher
		found   bool
		err     error
	)
	if req.Surname != "" {
		teacher, found, err = h.directory.Search(c.Request.Context(), req.Surname, req.Forename, req.Reversed())
	} else {
		teacher, found, err = h.directory.SearchFreeText(c.Request.Context(), req.Name)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.TeacherSearchResponse{Found: found}
	if found {
		resp.Teacher = &teacher
		resp.Name = teacher.FullName()
	}
	response.JSON(c, http.StatusOK, resp)
}
