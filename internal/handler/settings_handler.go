package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/untapped/internal/dto"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/response"
)

type settingsService interface {
	Get(key string) (any, error)
	Set(key string, value any) (bool, error)
}

// SettingsHandler exposes the settings file.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler builds a new handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get godoc
// @Summary Get a setting
// @Tags Config
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /config/{key} [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	key := c.Param("key")
	value, err := h.service.Get(key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SettingResponse{Key: key, Value: value})
}

// Put godoc
// @Summary Set a setting
// @Tags Config
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body dto.SettingRequest true "New value"
// @Success 200 {object} response.Envelope
// @Router /config/{key} [put]
func (h *SettingsHandler) Put(c *gin.Context) {
	var req dto.SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setting payload"))
		return
	}
	key := c.Param("key")
	saved, err := h.service.Set(key, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SettingResponse{Key: key, Value: req.Value, Saved: &saved})
}
