package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/untapped/internal/dto"
	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/internal/service"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/response"
)

type timetableService interface {
	Records(ctx context.Context, q models.TimetableQuery) ([]models.FlatRecord, error)
}

type exportService interface {
	Write(ctx context.Context, q models.TimetableQuery, format service.ExportFormat, w io.Writer) error
	Save(ctx context.Context, q models.TimetableQuery, format service.ExportFormat) (string, error)
}

// TimetableHandler serves projected timetables.
type TimetableHandler struct {
	timetable timetableService
	export    exportService
	validator *validator.Validate
}

// NewTimetableHandler builds a new handler.
func NewTimetableHandler(timetable timetableService, export exportService, validate *validator.Validate) *TimetableHandler {
	return &TimetableHandler{timetable: timetable, export: export, validator: validate}
}

// Get godoc
// @Summary Get a timetable
// @Tags Timetable
// @Produce json
// @Param kind query string true "groups, teachers, subjects or rooms"
// @Param id query int true "Element id"
// @Param start query string true "First day (yyyy-mm-dd)"
// @Param end query string true "Last day (yyyy-mm-dd)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	q, _, err := h.query(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.timetable.Records(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// Export godoc
// @Summary Export a timetable as CSV or PDF
// @Description CSV rows carry date, start, end, subjects, rooms, groups and teachers, without a header. With save=true the file is written to the export directory instead of streamed.
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param kind query string true "groups, teachers, subjects or rooms"
// @Param id query int true "Element id"
// @Param start query string true "First day (yyyy-mm-dd)"
// @Param end query string true "Last day (yyyy-mm-dd)"
// @Param format query string false "csv (default) or pdf"
// @Param save query bool false "Store in the export directory"
// @Success 200 {file} file
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	q, params, err := h.query(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := service.ParseExportFormat(params.Format)
	if err != nil {
		response.Error(c, err)
		return
	}

	if params.Save {
		name, err := h.export.Save(c.Request.Context(), q, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, gin.H{"file": name})
		return
	}

	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ExportFileName(q, format)))
	c.Header("Cache-Control", "no-store")
	if err := h.export.Write(c.Request.Context(), q, format, c.Writer); err != nil {
		if c.Writer.Written() {
			_ = c.Error(err)
			return
		}
		c.Header("Content-Type", "")
		c.Header("Content-Disposition", "")
		response.Error(c, err)
	}
}

func (h *TimetableHandler) query(c *gin.Context) (models.TimetableQuery, dto.TimetableParams, error) {
	var params dto.TimetableParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return models.TimetableQuery{}, params, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable parameters")
	}
	if err := h.validator.Struct(params); err != nil {
		return models.TimetableQuery{}, params, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable parameters")
	}
	kind, err := models.ParseKind(params.Kind)
	if err != nil {
		return models.TimetableQuery{}, params, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable kind")
	}
	start, _ := time.Parse(models.DateLayout, params.Start)
	end, _ := time.Parse(models.DateLayout, params.End)
	return models.TimetableQuery{Start: start, End: end, Kind: kind, ID: params.ID}, params, nil
}
