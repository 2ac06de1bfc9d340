package calendar

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/almanac/internal/apperror"
	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
)

// maxImportBytes caps the size of an uploaded ICS feed.
const maxImportBytes = 10 * 1024 * 1024

// Handler processes HTTP requests for the calendar plugin.
type Handler struct {
	svc CalendarService
}

// NewHandler creates a new calendar Handler.
func NewHandler(svc CalendarService) *Handler {
	return &Handler{svc: svc}
}

// eventRequest is the JSON body for creating and updating events.
type eventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Start       string  `json:"start"`
	End         *string `json:"end"`
	IsAllDay    bool    `json:"is_all_day"`
	RRule       *string `json:"rrule"`
}

func (r eventRequest) input() CreateEventInput {
	return CreateEventInput(r)
}

// ListEventsAPI returns events overlapping a date window.
// GET /api/v1/calendar/events?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListEventsAPI(c echo.Context) error {
	from, err := dateParam(c, "from")
	if err != nil {
		return err
	}
	to, err := dateParam(c, "to")
	if err != nil {
		return err
	}

	events, err := h.svc.ListEvents(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if events == nil {
		events = []Event{}
	}
	return c.JSON(http.StatusOK, events)
}

// GetEventAPI returns a single event.
// GET /api/v1/calendar/events/:eid
func (h *Handler) GetEventAPI(c echo.Context) error {
	evt, err := h.svc.GetEvent(c.Request().Context(), c.Param("eid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, evt)
}

// CreateEventAPI creates a new event.
// POST /api/v1/calendar/events
func (h *Handler) CreateEventAPI(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	evt, err := h.svc.CreateEvent(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, evt)
}

// UpdateEventAPI replaces an existing event.
// PUT /api/v1/calendar/events/:eid
func (h *Handler) UpdateEventAPI(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	evt, err := h.svc.UpdateEvent(c.Request().Context(), c.Param("eid"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, evt)
}

// DeleteEventAPI deletes an event.
// DELETE /api/v1/calendar/events/:eid
func (h *Handler) DeleteEventAPI(c echo.Context) error {
	if err := h.svc.DeleteEvent(c.Request().Context(), c.Param("eid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MoveEventAPI applies a drag-drop. The client applies the move
// optimistically and rolls back if this returns an error.
// POST /api/v1/calendar/events/:eid/move
func (h *Handler) MoveEventAPI(c echo.Context) error {
	var req struct {
		Anchor string `json:"anchor"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	anchor, err := layout.ParseDate(req.Anchor)
	if err != nil {
		return apperror.NewBadRequest("anchor must be a YYYY-MM-DD date")
	}

	res, err := h.svc.MoveEvent(c.Request().Context(), c.Param("eid"), anchor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// MonthLayoutAPI returns the layout model for a month.
// GET /api/v1/calendar/layout/month?year=2025&month=1&cap=3&hour_height=48&now=09:30
func (h *Handler) MonthLayoutAPI(c echo.Context) error {
	year, err := intParam(c, "year", 1, 9999)
	if err != nil {
		return err
	}
	month, err := intParam(c, "month", 1, 12)
	if err != nil {
		return err
	}
	return h.renderLayout(c, layout.Month(year, time.Month(month)))
}

// WeekLayoutAPI returns the layout model for the week containing start.
// GET /api/v1/calendar/layout/week?start=2025-01-26
func (h *Handler) WeekLayoutAPI(c echo.Context) error {
	start, err := dateParam(c, "start")
	if err != nil {
		return err
	}
	return h.renderLayout(c, layout.Week(start))
}

func (h *Handler) renderLayout(c echo.Context, w layout.ViewWindow) error {
	q := LayoutQuery{Window: w}

	if v := c.QueryParam("cap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperror.NewBadRequest("cap must be an integer")
		}
		q.Cap = &n
	}
	if v := c.QueryParam("hour_height"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return apperror.NewBadRequest("hour_height must be a positive number")
		}
		q.HourHeight = f
	}
	if v := c.QueryParam("now"); v != "" {
		clock, err := layout.ParseClock(v)
		if err != nil {
			return apperror.NewBadRequest("now must be an HH:MM time")
		}
		q.Now = &clock
	}

	m, err := h.svc.Layout(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// ExportICSAPI returns all events as an iCalendar feed.
// GET /api/v1/calendar/export.ics
func (h *Handler) ExportICSAPI(c echo.Context) error {
	feed, err := h.svc.ExportICS(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

// ImportICSAPI imports events from an uploaded iCalendar feed, sent either
// as a multipart "file" field or as the raw request body.
// POST /api/v1/calendar/import
func (h *Handler) ImportICSAPI(c echo.Context) error {
	var body io.Reader
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return apperror.NewBadRequest("could not read uploaded file")
		}
		defer src.Close()
		body = src
	} else {
		body = c.Request().Body
	}

	res, err := h.svc.ImportICS(c.Request().Context(), io.LimitReader(body, maxImportBytes))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// dateParam reads a required YYYY-MM-DD query parameter.
func dateParam(c echo.Context, name string) (layout.Date, error) {
	d, err := layout.ParseDate(c.QueryParam(name))
	if err != nil {
		return layout.Date{}, apperror.NewBadRequest(fmt.Sprintf("%s must be a YYYY-MM-DD date", name))
	}
	return d, nil
}

// intParam reads a required integer query parameter within [lo, hi].
func intParam(c echo.Context, name string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < lo || n > hi {
		return 0, apperror.NewBadRequest(fmt.Sprintf("%s must be an integer between %d and %d", name, lo, hi))
	}
	return n, nil
}
