package layout

import (
	"fmt"
	"time"
)

// ViewKind distinguishes month and week windows.
type ViewKind string

const (
	ViewMonth ViewKind = "month"
	ViewWeek  ViewKind = "week"
)

// ViewWindow describes the visible calendar range. Use Month or Week to
// build one.
type ViewWindow struct {
	Kind  ViewKind   `json:"kind"`
	Year  int        `json:"year,omitempty"`
	Month time.Month `json:"month,omitempty"`
	Start Date       `json:"start,omitzero"`
}

// Month returns a month window. Out-of-range months roll over into the
// neighbouring year.
func Month(year int, month time.Month) ViewWindow {
	first := NewDate(year, month, 1)
	return ViewWindow{Kind: ViewMonth, Year: first.Year, Month: first.Month}
}

// Week returns a week window containing start. The grid builder aligns it
// to the preceding Sunday.
func Week(start Date) ViewWindow {
	return ViewWindow{Kind: ViewWeek, Start: start}
}

// Key identifies the window in cache keys and logs.
func (w ViewWindow) Key() string {
	if w.Kind == ViewWeek {
		return "week:" + SundayOnOrBefore(w.Start).String()
	}
	return fmt.Sprintf("month:%04d-%02d", w.Year, int(w.Month))
}

// DayCell is one square of the calendar grid.
type DayCell struct {
	Date     Date `json:"date"`
	Column   int  `json:"column"`
	Row      int  `json:"row"`
	InWindow bool `json:"in_window"`
}

// Grid is the ordered cell sequence for a window, row-major, seven cells
// per row.
type Grid struct {
	Window ViewWindow `json:"window"`
	Cells  []DayCell  `json:"cells"`
	Rows   int        `json:"rows"`
}

// BuildGrid expands a window into day cells. Month grids carry leading and
// trailing placeholders (InWindow false) so every row has seven cells;
// placeholders hold the real adjacent dates but never host events.
func BuildGrid(w ViewWindow) Grid {
	if w.Kind == ViewWeek {
		start := SundayOnOrBefore(w.Start)
		cells := make([]DayCell, 7)
		for col := range cells {
			cells[col] = DayCell{Date: start.AddDays(col), Column: col, InWindow: true}
		}
		return Grid{Window: Week(start), Cells: cells, Rows: 1}
	}

	w = Month(w.Year, w.Month)
	first := NewDate(w.Year, w.Month, 1)
	offset := int(first.Weekday())
	days := DaysInMonth(w.Year, w.Month)
	rows := (offset + days + 6) / 7

	gridStart := first.AddDays(-offset)
	cells := make([]DayCell, rows*7)
	for i := range cells {
		d := gridStart.AddDays(i)
		cells[i] = DayCell{
			Date:     d,
			Column:   i % 7,
			Row:      i / 7,
			InWindow: i >= offset && i < offset+days,
		}
	}
	return Grid{Window: w, Cells: cells, Rows: rows}
}

// WeekStart returns the Sunday that opens the given row.
func (g Grid) WeekStart(row int) Date {
	return g.Cells[row*7].Date
}

// First and Last return the first and last dates covered by the grid,
// placeholders included.
func (g Grid) First() Date { return g.Cells[0].Date }
func (g Grid) Last() Date  { return g.Cells[len(g.Cells)-1].Date }

// inWindowColumns returns the first and last in-window columns of a row,
// or ok=false when the row has none.
func (g Grid) inWindowColumns(row int) (lo, hi int, ok bool) {
	lo, hi = -1, -1
	for col := 0; col < 7; col++ {
		if !g.Cells[row*7+col].InWindow {
			continue
		}
		if lo < 0 {
			lo = col
		}
		hi = col
	}
	return lo, hi, lo >= 0
}

// Cell returns the cell holding d, if the grid covers it.
func (g Grid) Cell(d Date) (DayCell, bool) {
	if len(g.Cells) == 0 || d.Before(g.First()) || d.After(g.Last()) {
		return DayCell{}, false
	}
	return g.Cells[DaysBetween(d, g.First())], true
}
