package layout

// Bar is one week-row segment of a multi-day event.
type Bar struct {
	EventID     string `json:"event_id"`
	Row         int    `json:"row"`
	StartColumn int    `json:"start_column"`
	Span        int    `json:"span"`
	IsStart     bool   `json:"is_start"`
	IsEnd       bool   `json:"is_end"`
	StackSlot   int    `json:"stack_slot"`
}

// EndColumn is the last column the bar covers, inclusive.
func (b Bar) EndColumn() int {
	return b.StartColumn + b.Span - 1
}

// LayoutBars splits multi-day events into per-row bars. Events whose start
// and end fall on the same date produce no bars. Within a row, stack slots
// follow the order of events in the input slice. Bars are returned ordered
// by row, then slot.
func LayoutBars(events []Event, g Grid) ([]Bar, []*ValidationError) {
	entries, errs := prepare(events)
	return layoutBars(entries, g), errs
}

func layoutBars(entries []entry, g Grid) []Bar {
	var bars []Bar
	for row := 0; row < g.Rows; row++ {
		weekStart := g.WeekStart(row)
		weekEnd := weekStart.AddDays(6)

		loCol, hiCol, ok := 0, 6, true
		if g.Window.Kind == ViewMonth {
			loCol, hiCol, ok = g.inWindowColumns(row)
		}
		if !ok {
			continue
		}

		slot := 0
		for _, en := range entries {
			if !en.rng.MultiDay() {
				continue
			}
			evStart, evEnd := en.rng.Start.Date, en.rng.End.Date
			if evEnd.Before(weekStart) || evStart.After(weekEnd) {
				continue
			}

			startCol := clamp(DaysBetween(maxDate(evStart, weekStart), weekStart), 0, 6)
			endCol := clamp(DaysBetween(minDate(evEnd, weekEnd), weekStart), 0, 6)
			startCol = max(startCol, loCol)
			endCol = min(endCol, hiCol)
			if startCol > endCol {
				continue
			}

			bars = append(bars, Bar{
				EventID:     en.event.ID,
				Row:         row,
				StartColumn: startCol,
				Span:        endCol - startCol + 1,
				IsStart:     evStart.Between(weekStart, weekEnd),
				IsEnd:       evEnd.Between(weekStart, weekEnd),
				StackSlot:   slot,
			})
			slot++
		}
	}
	return bars
}
