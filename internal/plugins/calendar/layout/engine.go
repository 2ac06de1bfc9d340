package layout

// CalendarLayoutEngine computes calendar layouts. Implementations hold no
// mutable state and are safe for concurrent use.
type CalendarLayoutEngine interface {
	Layout(events []Event, window ViewWindow, now *Clock) LayoutModel
	Translate(e Event, anchor Date) (DragTranslation, error)
}

// Options configures an Engine.
type Options struct {
	Timed TimedOptions `json:"timed"`
	// CellCap is the number of single-day events a cell shows before the
	// rest are counted as overflow.
	CellCap int `json:"cell_cap"`
}

// LayoutModel is the full layout of one window. It is plain data.
type LayoutModel struct {
	Window         ViewWindow               `json:"window"`
	Rows           int                      `json:"rows"`
	Cells          []DayCell                `json:"cells"`
	Bars           []Bar                    `json:"bars"`
	SingleDay      map[Date][]Event         `json:"single_day"`
	TouchCounts    map[Date]int             `json:"touch_counts"`
	Overflows      map[Date]int             `json:"overflow"`
	Cap            int                      `json:"cap"`
	TimedPositions map[string]TimedPosition `json:"timed_positions"`
	NowIndicator   *float64                 `json:"now_indicator"`
	Errors         []*ValidationError       `json:"errors"`
}

// Overflow is the number of single-day events on d hidden under limit.
func (m LayoutModel) Overflow(d Date, limit int) int {
	return Overflow(len(m.SingleDay[d]), limit)
}

// Engine is the default CalendarLayoutEngine.
type Engine struct {
	opts Options
}

// NewEngine returns an engine with the given options. Zero timed options
// fall back to DefaultTimedOptions.
func NewEngine(opts Options) Engine {
	opts.Timed = opts.Timed.withDefaults()
	opts.CellCap = max(0, opts.CellCap)
	return Engine{opts: opts}
}

// Options returns the engine's effective options.
func (e Engine) Options() Options {
	return e.opts
}

// Layout lays out events over window. Events that fail to parse are
// reported in Errors and skipped; everything else is still laid out. The
// now indicator is only set when now is non-nil and inside the visible
// hours.
func (e Engine) Layout(events []Event, window ViewWindow, now *Clock) LayoutModel {
	g := BuildGrid(window)
	entries, errs := prepare(events)

	m := LayoutModel{
		Window:         g.Window,
		Rows:           g.Rows,
		Cells:          g.Cells,
		Bars:           layoutBars(entries, g),
		SingleDay:      make(map[Date][]Event),
		TouchCounts:    make(map[Date]int),
		Overflows:      make(map[Date]int),
		Cap:            e.opts.CellCap,
		TimedPositions: make(map[string]TimedPosition),
		Errors:         errs,
	}
	if m.Bars == nil {
		m.Bars = []Bar{}
	}
	if m.Errors == nil {
		m.Errors = []*ValidationError{}
	}

	for _, cell := range g.Cells {
		if !cell.InWindow {
			continue
		}
		if n := touchCount(entries, cell.Date); n > 0 {
			m.TouchCounts[cell.Date] = n
		}
		day := singleDayOn(entries, cell.Date)
		if len(day) == 0 {
			continue
		}
		m.SingleDay[cell.Date] = day
		if over := Overflow(len(day), e.opts.CellCap); over > 0 {
			m.Overflows[cell.Date] = over
		}
		for _, en := range entries {
			if en.rng.Start.Date == cell.Date && !en.rng.MultiDay() && en.rng.Timed() {
				m.TimedPositions[en.event.ID] = positionEntry(en.rng, e.opts.Timed)
			}
		}
	}

	if now != nil {
		if top, ok := NowIndicator(*now, e.opts.Timed); ok {
			m.NowIndicator = &top
		}
	}
	return m
}

// Translate computes the drop translation for e onto anchor.
func (e Engine) Translate(ev Event, anchor Date) (DragTranslation, error) {
	return Translate(ev, anchor)
}

var _ CalendarLayoutEngine = Engine{}
