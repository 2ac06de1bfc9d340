package calendar

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all calendar routes under /api/v1/calendar.
// Reads are public; every write passes through the admin middleware
// (admin key check plus rate limiting), supplied by the caller.
func RegisterRoutes(e *echo.Echo, h *Handler, admin ...echo.MiddlewareFunc) {
	g := e.Group("/api/v1/calendar")

	// Public reads.
	g.GET("/events", h.ListEventsAPI)
	g.GET("/events/:eid", h.GetEventAPI)
	g.GET("/layout/month", h.MonthLayoutAPI)
	g.GET("/layout/week", h.WeekLayoutAPI)
	g.GET("/export.ics", h.ExportICSAPI)

	// Admin writes.
	g.POST("/events", h.CreateEventAPI, admin...)
	g.PUT("/events/:eid", h.UpdateEventAPI, admin...)
	g.DELETE("/events/:eid", h.DeleteEventAPI, admin...)
	g.POST("/events/:eid/move", h.MoveEventAPI, admin...)
	g.POST("/import", h.ImportICSAPI, admin...)
}
