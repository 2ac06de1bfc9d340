// Package calendar stores calendar events and serves their month and week
// layouts. Events are persisted in MariaDB, expanded for recurrence, laid
// out by the layout package, and cached in Redis keyed by a revision that
// every write bumps.
package calendar

import (
	"time"

	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
)

// Event is a stored calendar event. Start and End are ISO-8601 strings:
// a date for all-day events, or a naive local date-time ("2025-01-29T09:15")
// for timed events. End is optional and defaults to Start.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Start       string    `json:"start"`
	End         *string   `json:"end"`
	IsAllDay    bool      `json:"is_all_day"`
	RRule       *string   `json:"rrule,omitempty"` // RFC 5545 RRULE value, e.g. "FREQ=WEEKLY;COUNT=4"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToLayout converts the stored event into the layout engine's input type.
func (e *Event) ToLayout() layout.Event {
	return layout.Event{
		ID:       e.ID,
		Title:    e.Title,
		Start:    e.Start,
		End:      e.End,
		IsAllDay: e.IsAllDay,
	}
}

// IsRecurring reports whether the event carries a recurrence rule.
func (e *Event) IsRecurring() bool {
	return e.RRule != nil && *e.RRule != ""
}

// CreateEventInput is the validated input for creating an event.
type CreateEventInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Start       string  `json:"start"`
	End         *string `json:"end"`
	IsAllDay    bool    `json:"is_all_day"`
	RRule       *string `json:"rrule"`
}

// UpdateEventInput replaces every editable field of an event.
type UpdateEventInput = CreateEventInput

// MoveResult is returned after a drag-drop move has been persisted.
type MoveResult struct {
	Event       *Event                 `json:"event"`
	Translation layout.DragTranslation `json:"translation"`
}

// ImportSkip describes one VEVENT that could not be imported.
type ImportSkip struct {
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// ImportResult summarizes an ICS import.
type ImportResult struct {
	Imported int          `json:"imported"`
	Skipped  []ImportSkip `json:"skipped"`
}

// LayoutQuery selects the window and presentation knobs of a layout request.
// Zero values fall back to the service's configured defaults.
type LayoutQuery struct {
	Window     layout.ViewWindow
	Cap        *int
	HourHeight float64
	Now        *layout.Clock
}

// Settings are the service-wide layout defaults, loaded from config.
type Settings struct {
	StartHour              int
	EndHour                int
	HourHeight             float64
	MinimumDurationMinutes int
	CellCap                int
}

// engineOptions converts settings into layout engine options.
func (s Settings) engineOptions() layout.Options {
	return layout.Options{
		Timed: layout.TimedOptions{
			StartHour:              s.StartHour,
			EndHour:                s.EndHour,
			HourHeight:             s.HourHeight,
			MinimumDurationMinutes: s.MinimumDurationMinutes,
		},
		CellCap: s.CellCap,
	}
}

// Limits on stored event fields.
const (
	maxTitleLength       = 200
	maxDescriptionLength = 10000
	maxCategoryLength    = 50
)
