package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/internal/service"
	"github.com/noah-isme/untapped/pkg/response"
)

type sessionStatusSource interface {
	Status() models.SessionStatus
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics  *service.MetricsService
	sessions sessionStatusSource
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, sessions sessionStatusSource) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, sessions: sessions}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status godoc
// @Summary Session and cache statistics
// @Tags Status
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /status [get]
func (h *MetricsHandler) Status(c *gin.Context) {
	payload := gin.H{"metrics": h.metrics.Snapshot()}
	if h.sessions != nil {
		payload["session"] = h.sessions.Status()
	}
	response.JSON(c, http.StatusOK, payload)
}
