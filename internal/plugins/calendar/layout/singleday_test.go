package layout

import (
	"testing"
	"time"
)

func TestSingleDayEvents(t *testing.T) {
	g := BuildGrid(Month(2025, time.January))
	cell, _ := g.Cell(NewDate(2025, time.January, 15))

	events := []Event{
		{ID: "late", Start: "2025-01-15T18:00", End: strPtr("2025-01-15T19:00")},
		span("multi", "2025-01-14", "2025-01-16"),
		{ID: "early", Start: "2025-01-15T08:00"},
		{ID: "allday", Start: "2025-01-15", IsAllDay: true},
		{ID: "other", Start: "2025-01-16"},
		{ID: "broken", Start: "15/01/2025"},
	}
	got, errs := SingleDayEvents(events, cell)
	if len(errs) != 1 || errs[0].EventID != "broken" {
		t.Errorf("errors = %v", errs)
	}
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	want := []string{"late", "early", "allday"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("position %d = %s, want %s (input order)", i, ids[i], want[i])
		}
	}
}

func TestSingleDayEvents_PlaceholderHostsNothing(t *testing.T) {
	g := BuildGrid(Month(2025, time.January))
	placeholder := g.Cells[0]
	got, _ := SingleDayEvents([]Event{{ID: "a", Start: placeholder.Date.String()}}, placeholder)
	if len(got) != 0 {
		t.Errorf("placeholder hosted %+v", got)
	}
}

func TestOverflow(t *testing.T) {
	tests := []struct {
		count, limit, want int
	}{
		{5, 3, 2},
		{3, 3, 0},
		{2, 3, 0},
		{4, 0, 4},
		{4, -2, 4},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Overflow(tt.count, tt.limit); got != tt.want {
			t.Errorf("Overflow(%d, %d) = %d, want %d", tt.count, tt.limit, got, tt.want)
		}
	}
}

func TestTouchCount(t *testing.T) {
	events := []Event{
		span("multi", "2025-01-14", "2025-01-16"),
		{ID: "single", Start: "2025-01-15T09:00"},
		{ID: "elsewhere", Start: "2025-01-20"},
		{ID: "broken", Start: "nope"},
	}
	if got := TouchCount(events, NewDate(2025, time.January, 15)); got != 2 {
		t.Errorf("TouchCount(Jan 15) = %d, want 2", got)
	}
	if got := TouchCount(events, NewDate(2025, time.January, 16)); got != 1 {
		t.Errorf("TouchCount(Jan 16) = %d, want 1", got)
	}
	if got := TouchCount(events, NewDate(2025, time.January, 17)); got != 0 {
		t.Errorf("TouchCount(Jan 17) = %d, want 0", got)
	}
}
