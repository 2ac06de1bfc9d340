package layout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Event is the layout engine's view of a calendar event. Start and End are
// ISO-8601 strings holding either a date ("2025-01-29") or a date-time
// ("2025-01-29T09:15:00"). A nil or empty End means the event ends on the
// day it starts.
type Event struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Start    string  `json:"start"`
	End      *string `json:"end"`
	IsAllDay bool    `json:"is_all_day"`
}

// ValidationError reports an event that could not be laid out. The layout
// pass skips the event and keeps going.
type ValidationError struct {
	EventID string `json:"event_id"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Reason  string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event %s: invalid %s %q: %s", e.EventID, e.Field, e.Value, e.Reason)
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// clockSuffix matches what may follow HH:MM: optional seconds with an
// optional fraction, then an optional Z or numeric offset.
var clockSuffix = regexp.MustCompile(`^(:[0-5][0-9](\.[0-9]+)?)?(Z|[+-][0-9]{2}(:?[0-9]{2})?)?$`)

// ParseClock parses the time component of an ISO date-time. It reads
// HH:MM and tolerates a trailing seconds, fraction or zone suffix, which is
// ignored: positions are computed in naive wall-clock minutes.
func ParseClock(s string) (Clock, error) {
	if len(s) < 5 || s[2] != ':' {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, errH := strconv.Atoi(s[:2])
	m, errM := strconv.Atoi(s[3:5])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	if !clockSuffix.MatchString(s[5:]) {
		return Clock{}, fmt.Errorf("invalid time %q: unexpected suffix", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Instant is a calendar date with an optional time of day. The original
// time text is kept verbatim so a translated instant renders exactly the
// same time-of-day it was parsed from.
type Instant struct {
	Date     Date
	Clock    Clock
	HasClock bool
	timeText string
}

// ParseInstant splits an ISO-8601 string on 'T' into its date and optional
// time components.
func ParseInstant(s string) (Instant, error) {
	datePart, timePart, hasTime := strings.Cut(strings.TrimSpace(s), "T")
	d, err := ParseDate(datePart)
	if err != nil {
		return Instant{}, err
	}
	inst := Instant{Date: d}
	if !hasTime {
		return inst, nil
	}
	c, err := ParseClock(timePart)
	if err != nil {
		return Instant{}, err
	}
	inst.Clock = c
	inst.HasClock = true
	inst.timeText = timePart
	return inst, nil
}

// WithDate returns the instant moved to another day, keeping its time.
func (i Instant) WithDate(d Date) Instant {
	i.Date = d
	return i
}

// String renders the instant back to ISO form.
func (i Instant) String() string {
	if !i.HasClock {
		return i.Date.String()
	}
	text := i.timeText
	if text == "" {
		text = i.Clock.String()
	}
	return i.Date.String() + "T" + text
}

// Range is an event's normalized extent. End is never before Start when
// compared as dates.
type Range struct {
	Start       Instant
	End         Instant
	ExplicitEnd bool
	AllDay      bool
}

// Normalize parses and normalizes an event's range. An absent end collapses
// to the start. An end dated before the start is clamped onto the start
// date rather than rejected, keeping its own time of day.
func Normalize(e Event) (Range, error) {
	start, err := ParseInstant(e.Start)
	if err != nil {
		return Range{}, &ValidationError{EventID: e.ID, Field: "start", Value: e.Start, Reason: err.Error()}
	}
	r := Range{Start: start, End: start, AllDay: e.IsAllDay}
	if e.End == nil || strings.TrimSpace(*e.End) == "" {
		return r, nil
	}
	end, err := ParseInstant(*e.End)
	if err != nil {
		return Range{}, &ValidationError{EventID: e.ID, Field: "end", Value: *e.End, Reason: err.Error()}
	}
	if end.Date.Before(start.Date) {
		end.Date = start.Date
	}
	r.End = end
	r.ExplicitEnd = true
	return r, nil
}

// Days is the number of days between the start and end dates.
func (r Range) Days() int {
	return DaysBetween(r.End.Date, r.Start.Date)
}

// MultiDay reports whether the range crosses at least one midnight.
func (r Range) MultiDay() bool {
	return r.End.Date != r.Start.Date
}

// Covers reports whether d falls within the range's dates.
func (r Range) Covers(d Date) bool {
	return d.Between(r.Start.Date, r.End.Date)
}

// Timed reports whether the range has a meaningful start time.
func (r Range) Timed() bool {
	return !r.AllDay && r.Start.HasClock
}

// entry pairs an event with its normalized range.
type entry struct {
	event Event
	rng   Range
}

// prepare normalizes events in input order, isolating failures per event.
func prepare(events []Event) ([]entry, []*ValidationError) {
	entries := make([]entry, 0, len(events))
	var errs []*ValidationError
	for _, e := range events {
		r, err := Normalize(e)
		if err != nil {
			errs = append(errs, err.(*ValidationError))
			continue
		}
		entries = append(entries, entry{event: e, rng: r})
	}
	return entries, errs
}
