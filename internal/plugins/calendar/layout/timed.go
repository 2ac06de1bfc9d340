package layout

// TimedOptions configures the vertical day viewport.
type TimedOptions struct {
	StartHour              int     `json:"start_hour"`
	EndHour                int     `json:"end_hour"`
	HourHeight             float64 `json:"hour_height"`
	MinimumDurationMinutes int     `json:"minimum_duration_minutes"`
}

// DefaultTimedOptions shows 07:00 to 23:00 at 48 units per hour with a
// 30 minute minimum block.
func DefaultTimedOptions() TimedOptions {
	return TimedOptions{StartHour: 7, EndHour: 23, HourHeight: 48, MinimumDurationMinutes: 30}
}

// withDefaults fills zero or nonsensical fields from DefaultTimedOptions.
func (o TimedOptions) withDefaults() TimedOptions {
	d := DefaultTimedOptions()
	if o == (TimedOptions{}) {
		return d
	}
	if o.StartHour < 0 || o.StartHour > 23 {
		o.StartHour = d.StartHour
	}
	if o.EndHour <= o.StartHour || o.EndHour > 24 {
		o.EndHour = max(d.EndHour, o.StartHour+1)
	}
	if o.HourHeight <= 0 {
		o.HourHeight = d.HourHeight
	}
	if o.MinimumDurationMinutes <= 0 {
		o.MinimumDurationMinutes = d.MinimumDurationMinutes
	}
	return o
}

// TimedPosition is a vertical block inside the day viewport.
type TimedPosition struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// PositionTimed maps a start and optional end clock time to a block. With
// no end, or an end before the start, the block collapses to the minimum
// duration.
func PositionTimed(start Clock, end *Clock, opts TimedOptions) TimedPosition {
	opts = opts.withDefaults()
	startMin := start.Minutes()
	endMin := startMin
	if end != nil {
		endMin = end.Minutes()
	}
	duration := max(opts.MinimumDurationMinutes, endMin-startMin)
	return TimedPosition{
		Top:    offset(startMin, opts),
		Height: float64(duration) / 60 * opts.HourHeight,
	}
}

// NowIndicator positions the current-time line. It reports false when now
// falls outside [StartHour, EndHour).
func NowIndicator(now Clock, opts TimedOptions) (float64, bool) {
	opts = opts.withDefaults()
	m := now.Minutes()
	if m < opts.StartHour*60 || m >= opts.EndHour*60 {
		return 0, false
	}
	return offset(m, opts), true
}

func offset(minutes int, opts TimedOptions) float64 {
	return float64(max(0, minutes-opts.StartHour*60)) / 60 * opts.HourHeight
}

// positionEntry positions a normalized timed event. An end time only counts
// when it falls on the start date.
func positionEntry(r Range, opts TimedOptions) TimedPosition {
	var end *Clock
	if r.ExplicitEnd && r.End.HasClock {
		end = &r.End.Clock
	}
	return PositionTimed(r.Start.Clock, end, opts)
}
