package calendar

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
)

// maxOccurrencesPerEvent caps how many occurrences one recurring event may
// contribute to a single window.
const maxOccurrencesPerEvent = 500

// occurrenceSep joins a series ID and an occurrence date in occurrence IDs,
// e.g. "6f1c...@2025-01-15".
const occurrenceSep = "@"

// parseRRule parses an RRULE value, with or without the "RRULE:" prefix.
func parseRRule(value string) (*rrule.RRule, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "RRULE:")
	if value == "" {
		return nil, fmt.Errorf("empty recurrence rule")
	}
	rule, err := rrule.StrToRRule(value)
	if err != nil {
		return nil, err
	}
	if rule.OrigOptions.Freq > rrule.DAILY {
		return nil, fmt.Errorf("FREQ=%s repeats more often than daily", rule.OrigOptions.Freq)
	}
	return rule, nil
}

// occurrenceID builds the ID of one occurrence of a series.
func occurrenceID(seriesID string, d layout.Date) string {
	return seriesID + occurrenceSep + d.String()
}

// splitOccurrenceID splits an occurrence ID into its series ID and date.
// Plain event IDs return ok=false.
func splitOccurrenceID(id string) (seriesID string, d layout.Date, ok bool) {
	seriesID, dateText, found := strings.Cut(id, occurrenceSep)
	if !found {
		return id, layout.Date{}, false
	}
	d, err := layout.ParseDate(dateText)
	if err != nil {
		return id, layout.Date{}, false
	}
	return seriesID, d, true
}

// expandRecurring replaces every recurring event with its occurrences that
// overlap [from, to]. Occurrences keep the series' time of day and length
// in days. Non-recurring events pass through untouched. All arithmetic is
// done on naive dates pinned to UTC so no zone can shift a day.
func expandRecurring(events []Event, from, to layout.Date) []Event {
	out := make([]Event, 0, len(events))
	for _, evt := range events {
		if !evt.IsRecurring() {
			out = append(out, evt)
			continue
		}
		out = append(out, expandSeries(evt, from, to)...)
	}
	return out
}

func expandSeries(evt Event, from, to layout.Date) []Event {
	rng, err := layout.Normalize(evt.ToLayout())
	if err != nil {
		// Left for the layout pass to report.
		return []Event{evt}
	}

	rule, err := parseRRule(*evt.RRule)
	if err != nil {
		slog.Warn("ignoring invalid recurrence rule",
			slog.String("event_id", evt.ID),
			slog.String("rrule", *evt.RRule),
			slog.Any("error", err),
		)
		if rng.End.Date.Before(from) || rng.Start.Date.After(to) {
			return nil
		}
		return []Event{evt}
	}

	start := rng.Start
	rule.DTStart(time.Date(start.Date.Year, start.Date.Month, start.Date.Day,
		start.Clock.Hour, start.Clock.Minute, 0, 0, time.UTC))

	days := rng.Days()
	lo := from.AddDays(-days)
	after := time.Date(lo.Year, lo.Month, lo.Day, 0, 0, 0, 0, time.UTC)
	before := time.Date(to.Year, to.Month, to.Day, 23, 59, 59, 0, time.UTC)

	times, truncated := occurrencesBetween(rule, after, before)
	if truncated {
		slog.Warn("truncating recurring event occurrences",
			slog.String("event_id", evt.ID),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
			slog.Int("cap", maxOccurrencesPerEvent),
		)
	}

	out := make([]Event, 0, len(times))
	for _, t := range times {
		d := layout.DateOf(t)
		occ := evt
		occ.ID = occurrenceID(evt.ID, d)
		occ.Start = start.WithDate(d).String()
		if rng.ExplicitEnd {
			end := rng.End.WithDate(d.AddDays(days)).String()
			occ.End = &end
		}
		out = append(out, occ)
	}
	return out
}

// occurrencesBetween walks the rule and returns the occurrences in
// [after, before], stopping once maxOccurrencesPerEvent are collected.
// truncated reports whether more occurrences fell in the range.
func occurrencesBetween(rule *rrule.RRule, after, before time.Time) (times []time.Time, truncated bool) {
	next := rule.Iterator()
	for {
		t, ok := next()
		if !ok || t.After(before) {
			return times, false
		}
		if t.Before(after) {
			continue
		}
		if len(times) == maxOccurrencesPerEvent {
			return times, true
		}
		times = append(times, t)
	}
}
