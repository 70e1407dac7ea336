package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the bridge handlers mounted by Register.
type Handlers struct {
	Session   *SessionHandler
	Reference *ReferenceHandler
	Teacher   *TeacherHandler
	Timetable *TimetableHandler
	Settings  *SettingsHandler
	Metrics   *MetricsHandler
}

// Register mounts the bridge routes below prefix. Routes that talk to the
// timetable service sit behind requireSession.
func Register(r *gin.Engine, prefix string, h Handlers, requireSession gin.HandlerFunc) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/status", h.Metrics.Status)
	api.GET("/session", h.Session.Status)
	api.POST("/session", h.Session.Login)
	api.DELETE("/session", h.Session.Logout)
	api.GET("/config/:key", h.Settings.Get)
	api.PUT("/config/:key", h.Settings.Put)

	remote := api.Group("")
	remote.Use(requireSession)
	remote.GET("/schoolyears", h.Reference.SchoolYears)
	remote.GET("/subjects", h.Reference.Subjects)
	remote.GET("/groups", h.Reference.Groups)
	remote.GET("/rooms", h.Reference.Rooms)
	remote.GET("/departments", h.Reference.Departments)
	remote.GET("/teachers", h.Teacher.List)
	remote.GET("/teachers/:id", h.Teacher.Get)
	remote.POST("/teachers/search", h.Teacher.Search)
	remote.GET("/timetable", h.Timetable.Get)
	remote.GET("/timetable/export", h.Timetable.Export)
}
