package layout

// SingleDayEvents returns, in input order, the events that start and end on
// the cell's date. Placeholder cells outside the window host nothing.
func SingleDayEvents(events []Event, cell DayCell) ([]Event, []*ValidationError) {
	entries, errs := prepare(events)
	if !cell.InWindow {
		return nil, errs
	}
	return singleDayOn(entries, cell.Date), errs
}

func singleDayOn(entries []entry, d Date) []Event {
	var out []Event
	for _, en := range entries {
		if en.rng.Start.Date == d && en.rng.End.Date == d {
			out = append(out, en.event)
		}
	}
	return out
}

// Overflow is the number of events hidden once a cell shows at most limit of
// them. A limit of zero or less shows nothing.
func Overflow(count, limit int) int {
	return max(0, count-max(0, limit))
}

// TouchCount counts every event whose range covers d, multi-day events
// included. Malformed events are not counted.
func TouchCount(events []Event, d Date) int {
	entries, _ := prepare(events)
	return touchCount(entries, d)
}

func touchCount(entries []entry, d Date) int {
	n := 0
	for _, en := range entries {
		if en.rng.Covers(d) {
			n++
		}
	}
	return n
}
