package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/almanac/internal/apperror"
	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
	"github.com/keyxmakerx/almanac/internal/sanitize"
)

// maxListSpanDays bounds the window accepted by ListEvents.
const maxListSpanDays = 400

// CalendarService defines business logic for calendar events and layouts.
type CalendarService interface {
	CreateEvent(ctx context.Context, input CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, id string, input UpdateEventInput) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error

	// ListEvents returns events overlapping [from, to] with recurring
	// events expanded into occurrences.
	ListEvents(ctx context.Context, from, to layout.Date) ([]Event, error)

	// Layout computes the layout model for a month or week window.
	Layout(ctx context.Context, q LayoutQuery) (*layout.LayoutModel, error)

	// MoveEvent persists a drag-drop onto anchor. On failure the stored
	// event is left untouched so the client can roll back.
	MoveEvent(ctx context.Context, id string, anchor layout.Date) (*MoveResult, error)

	ExportICS(ctx context.Context) (string, error)
	ImportICS(ctx context.Context, r io.Reader) (*ImportResult, error)
}

// calendarService is the default CalendarService implementation.
type calendarService struct {
	repo     EventRepository
	cache    LayoutCache
	settings Settings
	now      func() time.Time
}

// NewCalendarService creates a CalendarService backed by the given
// repository and layout cache.
func NewCalendarService(repo EventRepository, cache LayoutCache, settings Settings) CalendarService {
	if cache == nil {
		cache = noopCache{}
	}
	return &calendarService{
		repo:     repo,
		cache:    cache,
		settings: settings,
		now:      time.Now,
	}
}

// CreateEvent validates input and stores a new event.
func (s *calendarService) CreateEvent(ctx context.Context, input CreateEventInput) (*Event, error) {
	evt, err := buildEvent(input)
	if err != nil {
		return nil, err
	}
	evt.ID = uuid.NewString()
	now := s.now().UTC()
	evt.CreatedAt, evt.UpdatedAt = now, now

	if err := s.repo.Create(ctx, evt); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.cache.Invalidate(ctx)
	return evt, nil
}

// GetEvent returns an event by ID.
func (s *calendarService) GetEvent(ctx context.Context, id string) (*Event, error) {
	evt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if evt == nil {
		return nil, apperror.NewNotFound("event not found")
	}
	return evt, nil
}

// UpdateEvent replaces the editable fields of an existing event.
func (s *calendarService) UpdateEvent(ctx context.Context, id string, input UpdateEventInput) (*Event, error) {
	existing, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	evt, err := buildEvent(input)
	if err != nil {
		return nil, err
	}
	evt.ID = existing.ID
	evt.CreatedAt = existing.CreatedAt
	evt.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, evt); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.cache.Invalidate(ctx)
	return evt, nil
}

// DeleteEvent removes an event.
func (s *calendarService) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.GetEvent(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// ListEvents returns events in [from, to], recurring series expanded.
func (s *calendarService) ListEvents(ctx context.Context, from, to layout.Date) ([]Event, error) {
	if to.Before(from) {
		return nil, apperror.NewBadRequest("'to' must not be before 'from'")
	}
	if layout.DaysBetween(to, from) > maxListSpanDays {
		return nil, apperror.NewBadRequest(fmt.Sprintf("window may span at most %d days", maxListSpanDays))
	}
	return s.listExpanded(ctx, from, to)
}

func (s *calendarService) listExpanded(ctx context.Context, from, to layout.Date) ([]Event, error) {
	stored, err := s.repo.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return expandRecurring(stored, from, to), nil
}

// Layout computes, or loads from cache, the layout for a window. The now
// indicator depends on the caller's clock, so it is applied after the
// cache lookup and never stored.
func (s *calendarService) Layout(ctx context.Context, q LayoutQuery) (*layout.LayoutModel, error) {
	settings := s.settings
	if q.Cap != nil {
		settings.CellCap = *q.Cap
	}
	if q.HourHeight > 0 {
		settings.HourHeight = q.HourHeight
	}
	engine := layout.NewEngine(settings.engineOptions())
	opts := engine.Options()
	grid := layout.BuildGrid(q.Window)

	key, cacheable := s.cache.Key(ctx,
		grid.Window.Key(),
		"cap="+strconv.Itoa(opts.CellCap),
		fmt.Sprintf("hours=%d-%d", opts.Timed.StartHour, opts.Timed.EndHour),
		"hh="+strconv.FormatFloat(opts.Timed.HourHeight, 'f', -1, 64),
		"min="+strconv.Itoa(opts.Timed.MinimumDurationMinutes),
	)

	var m *layout.LayoutModel
	if cacheable {
		m, _ = s.cache.Get(ctx, key)
	}
	if m == nil {
		events, err := s.listExpanded(ctx, grid.First(), grid.Last())
		if err != nil {
			return nil, err
		}
		input := make([]layout.Event, len(events))
		for i := range events {
			input[i] = events[i].ToLayout()
		}

		computed := engine.Layout(input, grid.Window, nil)
		for _, verr := range computed.Errors {
			slog.Warn("skipping malformed event in layout",
				slog.String("event_id", verr.EventID),
				slog.String("field", verr.Field),
				slog.String("value", verr.Value),
			)
		}
		m = &computed
		if cacheable {
			s.cache.Set(ctx, key, m)
		}
	}

	m.NowIndicator = nil
	if q.Now != nil {
		if top, ok := layout.NowIndicator(*q.Now, opts.Timed); ok {
			m.NowIndicator = &top
		}
	}
	return m, nil
}

// MoveEvent translates an event onto anchor, keeping its length, and
// stores the new range. An occurrence ID ("<series>@<date>") moves the
// whole series by the same number of days.
func (s *calendarService) MoveEvent(ctx context.Context, id string, anchor layout.Date) (*MoveResult, error) {
	seriesID, occDate, isOccurrence := splitOccurrenceID(id)
	evt, err := s.GetEvent(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	rng, err := layout.Normalize(evt.ToLayout())
	if err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("stored event has an invalid range: %v", err))
	}
	target := anchor
	if isOccurrence {
		target = rng.Start.Date.AddDays(layout.DaysBetween(anchor, occDate))
	}

	tr, err := layout.Translate(evt.ToLayout(), target)
	if err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if tr, err = canonicalTranslation(tr); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if target == rng.Start.Date {
		return &MoveResult{Event: evt, Translation: tr}, nil
	}

	if err := s.repo.Move(ctx, evt.ID, tr.NewStart, tr.NewEnd); err != nil {
		return nil, fmt.Errorf("move event: %w", err)
	}
	s.cache.Invalidate(ctx)

	moved := *evt
	moved.Start = tr.NewStart
	moved.End = tr.NewEnd
	moved.UpdatedAt = s.now().UTC()
	return &MoveResult{Event: &moved, Translation: tr}, nil
}

// canonicalTranslation rewrites a translation's instants into the form the
// moved event reads back as.
func canonicalTranslation(tr layout.DragTranslation) (layout.DragTranslation, error) {
	start, err := canonicalISO(tr.NewStart)
	if err != nil {
		return tr, err
	}
	tr.NewStart = start
	if tr.NewEnd != nil {
		end, err := canonicalISO(*tr.NewEnd)
		if err != nil {
			return tr, err
		}
		tr.NewEnd = &end
	}
	return tr, nil
}

// ExportICS renders every stored event as an iCalendar feed.
func (s *calendarService) ExportICS(ctx context.Context) (string, error) {
	events, err := s.repo.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}
	feed, err := encodeICS(events, s.now().UTC())
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("encode ics: %w", err))
	}
	return feed, nil
}

// ImportICS stores every valid VEVENT of an iCalendar feed. Events that
// fail to convert, validate, or store are reported and skipped.
func (s *calendarService) ImportICS(ctx context.Context, r io.Reader) (*ImportResult, error) {
	parsed, skips, err := decodeICS(r)
	if err != nil {
		return nil, apperror.NewBadRequest("invalid iCalendar data")
	}

	result := &ImportResult{Skipped: []ImportSkip{}}
	result.Skipped = append(result.Skipped, skips...)

	now := s.now().UTC()
	for _, p := range parsed {
		evt, err := buildEvent(CreateEventInput{
			Title:       p.Title,
			Description: p.Description,
			Category:    p.Category,
			Start:       p.Start,
			End:         p.End,
			IsAllDay:    p.IsAllDay,
			RRule:       p.RRule,
		})
		if err != nil {
			result.Skipped = append(result.Skipped, ImportSkip{UID: p.ID, Reason: apperror.SafeMessage(err)})
			continue
		}
		evt.ID = p.ID
		evt.CreatedAt, evt.UpdatedAt = now, now

		if err := s.repo.Upsert(ctx, evt); err != nil {
			slog.Error("ics import: storing event", slog.String("event_id", evt.ID), slog.Any("error", err))
			result.Skipped = append(result.Skipped, ImportSkip{UID: p.ID, Reason: "could not store event"})
			continue
		}
		result.Imported++
	}

	for _, sk := range result.Skipped {
		slog.Warn("ics import: skipped event", slog.String("uid", sk.UID), slog.String("reason", sk.Reason))
	}
	if result.Imported > 0 {
		s.cache.Invalidate(ctx)
	}
	return result, nil
}

// buildEvent validates and normalizes user input into an Event without an
// ID or timestamps. Unlike the layout engine, which tolerates inverted
// ranges, writes reject them.
func buildEvent(input CreateEventInput) (*Event, error) {
	title := strings.TrimSpace(sanitize.Text(input.Title))
	if title == "" {
		return nil, apperror.NewValidation("title is required")
	}
	if len(title) > maxTitleLength {
		return nil, apperror.NewValidation(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	evt := &Event{Title: title, IsAllDay: input.IsAllDay}

	if input.Description != nil {
		desc := strings.TrimSpace(sanitize.Text(*input.Description))
		if len(desc) > maxDescriptionLength {
			return nil, apperror.NewValidation(fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
		}
		if desc != "" {
			evt.Description = &desc
		}
	}
	if input.Category != nil {
		cat := strings.TrimSpace(sanitize.Text(*input.Category))
		if len(cat) > maxCategoryLength {
			return nil, apperror.NewValidation(fmt.Sprintf("category must be at most %d characters", maxCategoryLength))
		}
		if cat != "" {
			evt.Category = &cat
		}
	}

	start, err := layout.ParseInstant(input.Start)
	if err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid start: %v", err))
	}
	if evt.Start, err = canonicalISO(input.Start); err != nil {
		return nil, apperror.NewValidation(fmt.Sprintf("invalid start: %v", err))
	}

	if input.End != nil && strings.TrimSpace(*input.End) != "" {
		end, err := layout.ParseInstant(*input.End)
		if err != nil {
			return nil, apperror.NewValidation(fmt.Sprintf("invalid end: %v", err))
		}
		if end.Date.Before(start.Date) ||
			(end.Date == start.Date && start.HasClock && end.HasClock && end.Clock.Minutes() < start.Clock.Minutes()) {
			return nil, apperror.NewValidation("end must not be before start")
		}
		endText, err := canonicalISO(*input.End)
		if err != nil {
			return nil, apperror.NewValidation(fmt.Sprintf("invalid end: %v", err))
		}
		evt.End = &endText
	}

	if input.RRule != nil && strings.TrimSpace(*input.RRule) != "" {
		rule := strings.TrimPrefix(strings.TrimSpace(*input.RRule), "RRULE:")
		if _, err := parseRRule(rule); err != nil {
			return nil, apperror.NewValidation(fmt.Sprintf("invalid recurrence rule: %v", err))
		}
		evt.RRule = &rule
	}
	return evt, nil
}
