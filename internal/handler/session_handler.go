package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/untapped/internal/dto"
	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/internal/service"
	"github.com/noah-isme/untapped/internal/untis"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/response"
)

type sessionService interface {
	Login(ctx context.Context, creds untis.Credentials, reset bool) (service.Gateway, error)
	Logout(ctx context.Context) error
	Status() models.SessionStatus
}

// SessionHandler opens and closes the timetable session.
type SessionHandler struct {
	service   sessionService
	validator *validator.Validate
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(service sessionService, validate *validator.Validate) *SessionHandler {
	return &SessionHandler{service: service, validator: validate}
}

// Login godoc
// @Summary Log in to the timetable service
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	creds := untis.Credentials{Server: req.Server, School: req.School, User: req.User, Password: req.Password}
	if _, err := h.service.Login(c.Request.Context(), creds, req.Reset); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Status())
}

// Logout godoc
// @Summary Log out and drop cached data
// @Tags Session
// @Success 204
// @Router /session [delete]
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrUpstream, err, "logout failed"))
		return
	}
	response.NoContent(c)
}

// Status godoc
// @Summary Current session
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status())
}
