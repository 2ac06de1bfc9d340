package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/almanac/internal/apperror"
	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
)

// --- Mock Repository ---

// mockEventRepo implements EventRepository for testing.
type mockEventRepo struct {
	createFn    func(ctx context.Context, evt *Event) error
	findByIDFn  func(ctx context.Context, id string) (*Event, error)
	updateFn    func(ctx context.Context, evt *Event) error
	deleteFn    func(ctx context.Context, id string) error
	listRangeFn func(ctx context.Context, from, to layout.Date) ([]Event, error)
	listAllFn   func(ctx context.Context) ([]Event, error)
	upsertFn    func(ctx context.Context, evt *Event) error
	moveFn      func(ctx context.Context, id, start string, end *string) error
}

func (m *mockEventRepo) Create(ctx context.Context, evt *Event) error {
	if m.createFn != nil {
		return m.createFn(ctx, evt)
	}
	return nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*Event, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockEventRepo) Update(ctx context.Context, evt *Event) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, evt)
	}
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockEventRepo) ListRange(ctx context.Context, from, to layout.Date) ([]Event, error) {
	if m.listRangeFn != nil {
		return m.listRangeFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockEventRepo) ListAll(ctx context.Context) ([]Event, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockEventRepo) Upsert(ctx context.Context, evt *Event) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, evt)
	}
	return nil
}

func (m *mockEventRepo) Move(ctx context.Context, id, start string, end *string) error {
	if m.moveFn != nil {
		return m.moveFn(ctx, id, start, end)
	}
	return nil
}

// memCache is an in-memory LayoutCache that serializes entries like the
// Redis implementation does.
type memCache struct {
	entries       map[string][]byte
	rev           int
	invalidations int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Key(_ context.Context, parts ...string) (string, bool) {
	return fmt.Sprintf("%d:%s", c.rev, strings.Join(parts, ":")), true
}

func (c *memCache) Get(_ context.Context, key string) (*layout.LayoutModel, bool) {
	data, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	var m layout.LayoutModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return &m, true
}

func (c *memCache) Set(_ context.Context, key string, m *layout.LayoutModel) {
	data, _ := json.Marshal(m)
	c.entries[key] = data
}

func (c *memCache) Invalidate(context.Context) {
	c.rev++
	c.invalidations++
}

// --- Test Helpers ---

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func strPtr(s string) *string { return &s }

func defaultSettings() Settings {
	return Settings{StartHour: 7, EndHour: 23, HourHeight: 48, MinimumDurationMinutes: 30, CellCap: 3}
}

func newTestService(repo EventRepository, cache LayoutCache) *calendarService {
	svc := NewCalendarService(repo, cache, defaultSettings()).(*calendarService)
	svc.now = func() time.Time { return time.Date(2025, time.January, 20, 12, 0, 0, 0, time.UTC) }
	return svc
}

// --- Create Tests ---

func TestCreateEvent_Success(t *testing.T) {
	var stored *Event
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, evt *Event) error {
			stored = evt
			return nil
		},
	}
	cache := newMemCache()
	svc := newTestService(repo, cache)

	evt, err := svc.CreateEvent(context.Background(), CreateEventInput{
		Title:       "  <b>Offsite</b> ",
		Description: strPtr("Bring <script>x()</script>laptops"),
		Category:    strPtr(""),
		Start:       "2025-01-29",
		End:         strPtr("2025-01-31"),
		IsAllDay:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != evt {
		t.Error("expected the created event to be stored")
	}
	if _, err := uuid.Parse(evt.ID); err != nil {
		t.Errorf("expected UUID id, got %q", evt.ID)
	}
	if evt.Title != "Offsite" {
		t.Errorf("expected sanitized title, got %q", evt.Title)
	}
	if evt.Description == nil || *evt.Description != "Bring laptops" {
		t.Errorf("unexpected description %v", evt.Description)
	}
	if evt.Category != nil {
		t.Errorf("expected empty category to be dropped, got %q", *evt.Category)
	}
	if cache.invalidations != 1 {
		t.Errorf("expected cache invalidation, got %d", cache.invalidations)
	}
}

func TestCreateEvent_CanonicalTimes(t *testing.T) {
	repo := &mockEventRepo{createFn: func(ctx context.Context, evt *Event) error { return nil }}
	evt, err := newTestService(repo, nil).CreateEvent(context.Background(), CreateEventInput{
		Title: "Review", Start: "2025-01-27T09:15:00", End: strPtr(" 2025-01-27T10:30:15 "),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.Start != "2025-01-27T09:15" || evt.End == nil || *evt.End != "2025-01-27T10:30:15" {
		t.Errorf("start=%q end=%v", evt.Start, evt.End)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateEventInput
	}{
		{"empty title", CreateEventInput{Title: "  ", Start: "2025-01-10"}},
		{"markup-only title", CreateEventInput{Title: "<br>", Start: "2025-01-10"}},
		{"long title", CreateEventInput{Title: strings.Repeat("x", maxTitleLength+1), Start: "2025-01-10"}},
		{"bad start", CreateEventInput{Title: "A", Start: "10/01/2025"}},
		{"bad end", CreateEventInput{Title: "A", Start: "2025-01-10", End: strPtr("later")}},
		{"end before start", CreateEventInput{Title: "A", Start: "2025-01-10", End: strPtr("2025-01-09")}},
		{"end time before start", CreateEventInput{Title: "A", Start: "2025-01-10T10:00", End: strPtr("2025-01-10T09:00")}},
		{"bad rrule", CreateEventInput{Title: "A", Start: "2025-01-10", RRule: strPtr("FREQ=SOMETIMES")}},
		{"sub-daily rrule", CreateEventInput{Title: "A", Start: "2025-01-10T09:00", RRule: strPtr("FREQ=SECONDLY")}},
		{"long category", CreateEventInput{Title: "A", Start: "2025-01-10", Category: strPtr(strings.Repeat("c", maxCategoryLength+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEventRepo{
				createFn: func(ctx context.Context, evt *Event) error {
					t.Fatal("invalid input must not be stored")
					return nil
				},
			}
			_, err := newTestService(repo, nil).CreateEvent(context.Background(), tt.input)
			assertAppError(t, err, 422)
		})
	}
}

func TestCreateEvent_NormalizesRRulePrefix(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil)
	evt, err := svc.CreateEvent(context.Background(), CreateEventInput{
		Title: "Standup", Start: "2025-01-06T09:00", RRule: strPtr("RRULE:FREQ=WEEKLY;BYDAY=MO"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *evt.RRule != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("rrule = %q", *evt.RRule)
	}
}

func TestCreateEvent_RepoError(t *testing.T) {
	dbErr := errors.New("connection refused")
	cache := newMemCache()
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, evt *Event) error { return dbErr },
	}
	_, err := newTestService(repo, cache).CreateEvent(context.Background(), CreateEventInput{Title: "A", Start: "2025-01-10"})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
	if cache.invalidations != 0 {
		t.Error("failed write must not invalidate the cache")
	}
}

// --- Get / Update / Delete Tests ---

func TestGetEvent_NotFound(t *testing.T) {
	_, err := newTestService(&mockEventRepo{}, nil).GetEvent(context.Background(), "missing")
	assertAppError(t, err, 404)
}

func TestUpdateEvent_KeepsIdentity(t *testing.T) {
	created := time.Date(2024, time.December, 1, 8, 0, 0, 0, time.UTC)
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*Event, error) {
			return &Event{ID: id, Title: "Old", Start: "2025-01-01", CreatedAt: created}, nil
		},
		updateFn: func(ctx context.Context, evt *Event) error {
			if evt.ID != "e1" || evt.Title != "New" || evt.Start != "2025-01-02T10:00" {
				t.Errorf("unexpected update %+v", evt)
			}
			return nil
		},
	}
	evt, err := newTestService(repo, nil).UpdateEvent(context.Background(), "e1", UpdateEventInput{Title: "New", Start: "2025-01-02T10:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !evt.CreatedAt.Equal(created) {
		t.Errorf("created_at changed to %v", evt.CreatedAt)
	}
}

func TestUpdateEvent_NotFound(t *testing.T) {
	_, err := newTestService(&mockEventRepo{}, nil).UpdateEvent(context.Background(), "missing", UpdateEventInput{Title: "A", Start: "2025-01-01"})
	assertAppError(t, err, 404)
}

func TestDeleteEvent_NotFound(t *testing.T) {
	repo := &mockEventRepo{
		deleteFn: func(ctx context.Context, id string) error {
			t.Fatal("delete must not run for a missing event")
			return nil
		},
	}
	err := newTestService(repo, nil).DeleteEvent(context.Background(), "missing")
	assertAppError(t, err, 404)
}

func TestDeleteEvent_Invalidates(t *testing.T) {
	cache := newMemCache()
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*Event, error) {
			return &Event{ID: id, Title: "A", Start: "2025-01-01"}, nil
		},
	}
	if err := newTestService(repo, cache).DeleteEvent(context.Background(), "e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.invalidations != 1 {
		t.Errorf("invalidations = %d", cache.invalidations)
	}
}

// --- List Tests ---

func TestListEvents_InvalidWindow(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil)
	_, err := svc.ListEvents(context.Background(), layout.NewDate(2025, 2, 1), layout.NewDate(2025, 1, 1))
	assertAppError(t, err, 400)

	_, err = svc.ListEvents(context.Background(), layout.NewDate(2024, 1, 1), layout.NewDate(2025, 6, 1))
	assertAppError(t, err, 400)
}

func TestListEvents_ExpandsRecurring(t *testing.T) {
	repo := &mockEventRepo{
		listRangeFn: func(ctx context.Context, from, to layout.Date) ([]Event, error) {
			return []Event{
				{ID: "once", Title: "Once", Start: "2025-01-08"},
				{ID: "weekly", Title: "Weekly", Start: "2024-12-30T09:00", RRule: strPtr("FREQ=WEEKLY")},
			}, nil
		},
	}
	events, err := newTestService(repo, nil).ListEvents(context.Background(), layout.NewDate(2025, 1, 6), layout.NewDate(2025, 1, 19))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	want := []string{"once", "weekly@2025-01-06", "weekly@2025-01-13"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

// --- Layout Tests ---

func TestLayout_MonthWindowAndCache(t *testing.T) {
	calls := 0
	repo := &mockEventRepo{
		listRangeFn: func(ctx context.Context, from, to layout.Date) ([]Event, error) {
			calls++
			if from != layout.NewDate(2024, 12, 29) || to != layout.NewDate(2025, 2, 1) {
				t.Errorf("queried %v..%v, want the full grid", from, to)
			}
			return []Event{
				{ID: "trip", Title: "Trip", Start: "2025-01-29", End: strPtr("2025-01-31"), IsAllDay: true},
				{ID: "standup", Title: "Standup", Start: "2025-01-15T09:15:00", End: strPtr("2025-01-15T09:40:00")},
			}, nil
		},
	}
	cache := newMemCache()
	svc := newTestService(repo, cache)
	q := LayoutQuery{Window: layout.Month(2025, time.January), Now: &layout.Clock{Hour: 12, Minute: 30}}

	m, err := svc.Layout(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Bars) != 1 || m.Bars[0].Row != 4 || m.Bars[0].StartColumn != 3 || m.Bars[0].Span != 3 {
		t.Errorf("bars = %+v", m.Bars)
	}
	if p := m.TimedPositions["standup"]; p.Top != 108 || p.Height != 24 {
		t.Errorf("standup = %+v", p)
	}
	if m.NowIndicator == nil || *m.NowIndicator != 264 {
		t.Errorf("now indicator = %v", m.NowIndicator)
	}

	q.Now = nil
	again, err := svc.Layout(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected cached layout, repo called %d times", calls)
	}
	if again.NowIndicator != nil {
		t.Error("now indicator must not be cached")
	}
	if len(again.Bars) != 1 {
		t.Errorf("cached bars = %+v", again.Bars)
	}

	cache.Invalidate(context.Background())
	if _, err := svc.Layout(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected recompute after invalidation, repo called %d times", calls)
	}
}

func TestLayout_CapOverride(t *testing.T) {
	repo := &mockEventRepo{
		listRangeFn: func(ctx context.Context, from, to layout.Date) ([]Event, error) {
			var out []Event
			for i := 0; i < 4; i++ {
				out = append(out, Event{ID: fmt.Sprintf("e%d", i), Title: "x", Start: "2025-01-26"})
			}
			return out, nil
		},
	}
	svc := newTestService(repo, newMemCache())
	one := 1
	m, err := svc.Layout(context.Background(), LayoutQuery{Window: layout.Week(layout.NewDate(2025, 1, 28)), Cap: &one})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cap != 1 || m.Overflows[layout.NewDate(2025, 1, 26)] != 3 {
		t.Errorf("cap=%d overflow=%v", m.Cap, m.Overflows)
	}

	m, _ = svc.Layout(context.Background(), LayoutQuery{Window: layout.Week(layout.NewDate(2025, 1, 28))})
	if m.Cap != 3 || m.Overflows[layout.NewDate(2025, 1, 26)] != 1 {
		t.Errorf("default cap=%d overflow=%v", m.Cap, m.Overflows)
	}
}

func TestLayout_MalformedEventIsolated(t *testing.T) {
	repo := &mockEventRepo{
		listRangeFn: func(ctx context.Context, from, to layout.Date) ([]Event, error) {
			return []Event{
				{ID: "bad", Title: "Bad", Start: "2025-01-xx"},
				{ID: "good", Title: "Good", Start: "2025-01-10"},
			}, nil
		},
	}
	m, err := newTestService(repo, nil).Layout(context.Background(), LayoutQuery{Window: layout.Month(2025, time.January)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Errors) != 1 || m.Errors[0].EventID != "bad" {
		t.Errorf("errors = %v", m.Errors)
	}
	if len(m.SingleDay[layout.NewDate(2025, 1, 10)]) != 1 {
		t.Error("good event missing from layout")
	}
}

func TestLayout_RepoError(t *testing.T) {
	repo := &mockEventRepo{
		listRangeFn: func(ctx context.Context, from, to layout.Date) ([]Event, error) {
			return nil, errors.New("timeout")
		},
	}
	if _, err := newTestService(repo, nil).Layout(context.Background(), LayoutQuery{Window: layout.Month(2025, time.January)}); err == nil {
		t.Fatal("expected error")
	}
}

// --- Move Tests ---

func TestMoveEvent_PreservesDuration(t *testing.T) {
	var movedStart string
	var movedEnd *string
	cache := newMemCache()
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*Event, error) {
			return &Event{ID: id, Title: "Trip", Start: "2025-01-27", End: strPtr("2025-01-29"), IsAllDay: true}, nil
		},
		moveFn: func(ctx context.Context, id, start string, end *string) error {
			movedStart, movedEnd = start, end
			return nil
		},
	}
	res, err := newTestService(repo, cache).MoveEvent(context.Background(), "trip", layout.NewDate(2025, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if movedStart != "2025-01-31" || movedEnd == nil || *movedEnd != "2025-02-02" {
		t.Errorf("persisted %s..%v", movedStart, movedEnd)
	}
	if res.Event.Start != "2025-01-31" || *res.Event.End != "2025-02-02" {
		t.Errorf("returned event %+v", res.Event)
	}
	if res.Translation.NewStart != "2025-01-31" {
		t.Errorf("translation %+v", res.Translation)
	}
	if cache.invalidations != 1 {
		t.Errorf("invalidations = %d", cache.invalidations)
	}
}

func TestMoveEvent_PersistenceFailureLeavesEvent(t *testing.T) {
	dbErr := errors.New("deadlock")
	stored := &Event{ID: "trip", Title: "Trip", Start: "2025-01-27T09:00", End: strPtr("2025-01-27T10:00")}
	cache := newMemCache()
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*Event, error) { return stored, nil },
		moveFn:     func(ctx context.Context, id, start string, end *string) error { return dbErr },
	}
	res, err := newTestService(repo, cache).MoveEvent(context.Background(), "trip", layout.NewDate(2025, 2, 3))
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
	if stored.Start != "2025-01-27T09:00" {
		t.Errorf("stored event mutated: %+v", stored)
	}
	if cache.invalidations != 0 {
		t.Error("failed move must not invalidate the cache")
	}
}

func TestMoveEvent_SameDayIsNoop(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*Event, error) {
			return &Event{ID: id, Title: "A", Start: "2025-01-27T09:00"}, nil
		},
		moveFn: func(ctx context.Context, id, start string, end *string) error {
			t.Fatal("no-op move must not write")
			return nil
		},
	}
	res, err := newTestService(repo, nil).MoveEvent(context.Background(), "a", layout.NewDate(2025, 1, 27))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Translation.NewStart != "2025-01-27T09:00" || res.Translation.NewEnd != nil {
		t.Errorf("translation = %+v", res.Translation)
	}
}

func TestMoveEvent_OccurrenceShiftsSeries(t *testing.T) {
	var movedID, movedStart string
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*Event, error) {
			if id != "series" {
				return nil, nil
			}
			return &Event{ID: id, Title: "Weekly", Start: "2025-01-06T09:00", RRule: strPtr("FREQ=WEEKLY")}, nil
		},
		moveFn: func(ctx context.Context, id, start string, end *string) error {
			movedID, movedStart = id, start
			return nil
		},
	}
	// The Jan 20 occurrence dropped on Jan 22 shifts the series two days.
	_, err := newTestService(repo, nil).MoveEvent(context.Background(), "series@2025-01-20", layout.NewDate(2025, 1, 22))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if movedID != "series" || movedStart != "2025-01-08T09:00" {
		t.Errorf("moved %s to %s", movedID, movedStart)
	}
}

func TestMoveEvent_TranslationMatchesStoredForm(t *testing.T) {
	var movedStart string
	var movedEnd *string
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*Event, error) {
			return &Event{ID: id, Title: "Review", Start: "2025-01-27T09:15:00", End: strPtr("2025-01-27T10:30:00")}, nil
		},
		moveFn: func(ctx context.Context, id, start string, end *string) error {
			movedStart, movedEnd = start, end
			return nil
		},
	}
	res, err := newTestService(repo, nil).MoveEvent(context.Background(), "review", layout.NewDate(2025, 1, 28))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Translation.NewStart != "2025-01-28T09:15" || res.Translation.NewEnd == nil || *res.Translation.NewEnd != "2025-01-28T10:30" {
		t.Errorf("translation = %+v", res.Translation)
	}
	if movedStart != res.Translation.NewStart || movedEnd == nil || *movedEnd != *res.Translation.NewEnd {
		t.Errorf("persisted %s..%v, returned %+v", movedStart, movedEnd, res.Translation)
	}
}

func TestMoveEvent_NotFound(t *testing.T) {
	_, err := newTestService(&mockEventRepo{}, nil).MoveEvent(context.Background(), "missing", layout.NewDate(2025, 1, 1))
	assertAppError(t, err, 404)
}

// --- ICS Tests ---

func TestImportICS_IsolatesBadEvents(t *testing.T) {
	feed := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:good-1@example.com",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Conference",
		"DTSTART;VALUE=DATE:20250129",
		"DTEND;VALUE=DATE:20250201",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:no-start@example.com",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Broken",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:inverted@example.com",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Inverted",
		"DTSTART:20250110T100000",
		"DTEND:20250110T090000",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:good-2@example.com",
		"DTSTAMP:20250101T000000Z",
		"SUMMARY:Standup",
		"DTSTART:20250106T091500",
		"DTEND:20250106T094000",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	var upserted []*Event
	cache := newMemCache()
	repo := &mockEventRepo{
		upsertFn: func(ctx context.Context, evt *Event) error {
			upserted = append(upserted, evt)
			return nil
		},
	}
	res, err := newTestService(repo, cache).ImportICS(context.Background(), strings.NewReader(feed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Imported != 2 || len(res.Skipped) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(upserted) != 2 {
		t.Fatalf("upserted %d events", len(upserted))
	}
	conf := upserted[0]
	if conf.Start != "2025-01-29" || conf.End == nil || *conf.End != "2025-01-31" || !conf.IsAllDay {
		t.Errorf("conference = %+v", conf)
	}
	standup := upserted[1]
	if standup.Start != "2025-01-06T09:15" || standup.RRule == nil || *standup.RRule != "FREQ=WEEKLY;COUNT=4" {
		t.Errorf("standup = %+v", standup)
	}
	if cache.invalidations != 1 {
		t.Errorf("invalidations = %d", cache.invalidations)
	}
}

func TestImportICS_StableIDs(t *testing.T) {
	feed := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//t//EN\r\nBEGIN:VEVENT\r\nUID:abc@example.com\r\nDTSTAMP:20250101T000000Z\r\nSUMMARY:A\r\nDTSTART;VALUE=DATE:20250101\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	var ids []string
	repo := &mockEventRepo{
		upsertFn: func(ctx context.Context, evt *Event) error {
			ids = append(ids, evt.ID)
			return nil
		},
	}
	svc := newTestService(repo, nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.ImportICS(context.Background(), strings.NewReader(feed)); err != nil {
			t.Fatalf("import %d: %v", i, err)
		}
	}
	if len(ids) != 2 || ids[0] != ids[1] {
		t.Errorf("expected identical IDs across imports, got %v", ids)
	}
}

func TestImportICS_StorageFailureSkips(t *testing.T) {
	feed := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//t//EN\r\nBEGIN:VEVENT\r\nUID:abc@example.com\r\nDTSTAMP:20250101T000000Z\r\nSUMMARY:A\r\nDTSTART;VALUE=DATE:20250101\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	cache := newMemCache()
	repo := &mockEventRepo{
		upsertFn: func(ctx context.Context, evt *Event) error { return errors.New("disk full") },
	}
	res, err := newTestService(repo, cache).ImportICS(context.Background(), strings.NewReader(feed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Imported != 0 || len(res.Skipped) != 1 || res.Skipped[0].Reason != "could not store event" {
		t.Errorf("result = %+v", res)
	}
	if cache.invalidations != 0 {
		t.Error("nothing imported, cache must stay valid")
	}
}

func TestExportICS(t *testing.T) {
	repo := &mockEventRepo{
		listAllFn: func(ctx context.Context) ([]Event, error) {
			return []Event{
				{ID: "6f1c2f8e-0b7a-4c55-9a55-0d2f7b0e8a11", Title: "Trip", Start: "2025-01-29", End: strPtr("2025-01-31"), IsAllDay: true},
				{ID: "0c3b1a5e-8f8a-4b0e-a2a4-5b3f0f2c9d22", Title: "Standup", Start: "2025-01-06T09:15:00", RRule: strPtr("FREQ=WEEKLY")},
			}, nil
		},
	}
	feed, err := newTestService(repo, nil).ExportICS(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"SUMMARY:Trip",
		"DTSTART;VALUE=DATE:20250129",
		"DTEND;VALUE=DATE:20250201",
		"DTSTART:20250106T091500",
		"RRULE:FREQ=WEEKLY",
	} {
		if !strings.Contains(feed, want) {
			t.Errorf("feed missing %q:\n%s", want, feed)
		}
	}
}
