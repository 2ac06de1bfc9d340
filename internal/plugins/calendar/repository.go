package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
)

// EventRepository defines persistence operations for calendar events.
type EventRepository interface {
	Create(ctx context.Context, evt *Event) error
	FindByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, evt *Event) error
	Delete(ctx context.Context, id string) error

	// ListRange returns events whose dates overlap [from, to], plus every
	// recurring event that starts on or before to. Ordered by start.
	ListRange(ctx context.Context, from, to layout.Date) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)

	// Upsert inserts the event or replaces the row with the same ID.
	Upsert(ctx context.Context, evt *Event) error

	// Move rewrites only the start and end of an event.
	Move(ctx context.Context, id, start string, end *string) error
}

// eventRepo is the MariaDB implementation of EventRepository.
type eventRepo struct {
	db *sql.DB
}

// NewEventRepository creates a new MariaDB-backed event repository.
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepo{db: db}
}

// eventCols is the column list for event queries.
const eventCols = `id, title, description, category, start_date, start_time,
       end_date, end_time, is_all_day, rrule, created_at, updated_at`

// columns holds an event's start and end split into DATE and TIME columns.
type columns struct {
	startDate string
	startTime sql.NullString
	endDate   sql.NullString
	endTime   sql.NullString
}

// toColumns splits ISO start/end strings for storage. Time-of-day is kept
// as HH:MM:SS; any zone suffix is dropped since events are naive local.
func toColumns(start string, end *string) (columns, error) {
	var c columns
	d, t, err := splitISO(start)
	if err != nil {
		return c, err
	}
	c.startDate, c.startTime = d, t
	if end != nil && strings.TrimSpace(*end) != "" {
		d, t, err := splitISO(*end)
		if err != nil {
			return c, err
		}
		c.endDate = sql.NullString{String: d, Valid: true}
		c.endTime = t
	}
	return c, nil
}

func splitISO(s string) (string, sql.NullString, error) {
	inst, err := layout.ParseInstant(s)
	if err != nil {
		return "", sql.NullString{}, err
	}
	if !inst.HasClock {
		return inst.Date.String(), sql.NullString{}, nil
	}
	hms := fmt.Sprintf("%02d:%02d:00", inst.Clock.Hour, inst.Clock.Minute)
	if _, timePart, _ := strings.Cut(s, "T"); len(timePart) >= 8 && timePart[5] == ':' {
		hms = timePart[:8]
	}
	return inst.Date.String(), sql.NullString{String: hms, Valid: true}, nil
}

// joinISO rebuilds an ISO string from a DATE and an optional TIME column.
func joinISO(date time.Time, clock sql.NullString) string {
	return formatISO(date.Format("2006-01-02"), clock)
}

// formatISO is the one textual form events are returned in: HH:MM, with
// seconds only when they are not zero.
func formatISO(date string, clock sql.NullString) string {
	if !clock.Valid || clock.String == "" {
		return date
	}
	hms := clock.String
	if len(hms) == 8 && strings.HasSuffix(hms, ":00") {
		hms = hms[:5]
	}
	return date + "T" + hms
}

// canonicalISO rewrites an ISO date or date-time into the form it will read
// back as from the database.
func canonicalISO(s string) (string, error) {
	date, clock, err := splitISO(s)
	if err != nil {
		return "", err
	}
	return formatISO(date, clock), nil
}

// scanEvent reads a row into an Event.
func scanEvent(scanner interface{ Scan(...any) error }) (*Event, error) {
	var (
		evt                Event
		startDate          time.Time
		startTime, endTime sql.NullString
		endDate            sql.NullTime
	)
	err := scanner.Scan(&evt.ID, &evt.Title, &evt.Description, &evt.Category,
		&startDate, &startTime, &endDate, &endTime,
		&evt.IsAllDay, &evt.RRule, &evt.CreatedAt, &evt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	evt.Start = joinISO(startDate, startTime)
	if endDate.Valid {
		end := joinISO(endDate.Time, endTime)
		evt.End = &end
	}
	return &evt, nil
}

// scanEvents reads event rows into a slice.
func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *evt)
	}
	return events, rows.Err()
}

// Create inserts a new event.
func (r *eventRepo) Create(ctx context.Context, evt *Event) error {
	c, err := toColumns(evt.Start, evt.End)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO calendar_events (id, title, description, category,
		        start_date, start_time, end_date, end_time, is_all_day, rrule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.Title, evt.Description, evt.Category,
		c.startDate, c.startTime, c.endDate, c.endTime, evt.IsAllDay, evt.RRule,
	)
	return err
}

// FindByID returns a single event, or nil if it does not exist.
func (r *eventRepo) FindByID(ctx context.Context, id string) (*Event, error) {
	evt, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return evt, err
}

// Update modifies every editable column of an event.
func (r *eventRepo) Update(ctx context.Context, evt *Event) error {
	c, err := toColumns(evt.Start, evt.End)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, description = ?, category = ?,
		     start_date = ?, start_time = ?, end_date = ?, end_time = ?,
		     is_all_day = ?, rrule = ?
		 WHERE id = ?`,
		evt.Title, evt.Description, evt.Category,
		c.startDate, c.startTime, c.endDate, c.endTime,
		evt.IsAllDay, evt.RRule, evt.ID,
	)
	return err
}

// Delete removes an event.
func (r *eventRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
	return err
}

// ListRange returns events overlapping the window. Recurring events are
// returned whenever their series has started; the service expands them.
func (r *eventRepo) ListRange(ctx context.Context, from, to layout.Date) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventCols+`
		 FROM calendar_events
		 WHERE (start_date <= ? AND COALESCE(end_date, start_date) >= ?)
		    OR (rrule IS NOT NULL AND rrule <> '' AND start_date <= ?)
		 ORDER BY start_date, start_time, created_at, id`,
		to.String(), from.String(), to.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListAll returns every stored event, used by the ICS export.
func (r *eventRepo) ListAll(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events
		 ORDER BY start_date, start_time, created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Upsert inserts or replaces an event by ID. Used by the ICS import so a
// re-imported feed updates events instead of duplicating them.
func (r *eventRepo) Upsert(ctx context.Context, evt *Event) error {
	c, err := toColumns(evt.Start, evt.End)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO calendar_events (id, title, description, category,
		        start_date, start_time, end_date, end_time, is_all_day, rrule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		     title = VALUES(title), description = VALUES(description),
		     category = VALUES(category), start_date = VALUES(start_date),
		     start_time = VALUES(start_time), end_date = VALUES(end_date),
		     end_time = VALUES(end_time), is_all_day = VALUES(is_all_day),
		     rrule = VALUES(rrule)`,
		evt.ID, evt.Title, evt.Description, evt.Category,
		c.startDate, c.startTime, c.endDate, c.endTime, evt.IsAllDay, evt.RRule,
	)
	return err
}

// Move rewrites an event's start and end columns.
func (r *eventRepo) Move(ctx context.Context, id, start string, end *string) error {
	c, err := toColumns(start, end)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET start_date = ?, start_time = ?, end_date = ?, end_time = ?
		 WHERE id = ?`,
		c.startDate, c.startTime, c.endDate, c.endTime, id,
	)
	return err
}
