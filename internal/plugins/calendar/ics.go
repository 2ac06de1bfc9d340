package calendar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
)

// icsProductID identifies the exporter in generated feeds.
const icsProductID = "-//almanac//calendar//EN"

// icsDateTime is the floating (zone-less) ICS date-time format.
const icsDateTime = "20060102T150405"

// icsNamespace derives stable event IDs from foreign ICS UIDs so importing
// the same feed twice updates events instead of duplicating them.
var icsNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:almanac:ics"))

// encodeICS renders events as an iCalendar feed. All-day events use DATE
// values with an exclusive DTEND; timed events use floating date-times.
func encodeICS(events []Event, stamp time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)

	for i := range events {
		evt := &events[i]
		rng, err := layout.Normalize(evt.ToLayout())
		if err != nil {
			return "", fmt.Errorf("event %s: %w", evt.ID, err)
		}

		ve := cal.AddEvent(evt.ID)
		ve.SetDtStampTime(stamp)
		if !evt.CreatedAt.IsZero() {
			ve.SetCreatedTime(evt.CreatedAt)
		}
		if !evt.UpdatedAt.IsZero() {
			ve.SetModifiedAt(evt.UpdatedAt)
		}
		ve.SetSummary(evt.Title)
		if evt.Description != nil && *evt.Description != "" {
			ve.SetDescription(*evt.Description)
		}
		if evt.Category != nil && *evt.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, *evt.Category)
		}

		if evt.IsAllDay || !rng.Start.HasClock {
			ve.SetAllDayStartAt(civil(rng.Start.Date, layout.Clock{}))
			ve.SetAllDayEndAt(civil(rng.End.Date.AddDays(1), layout.Clock{}))
		} else {
			ve.SetProperty(ical.ComponentPropertyDtStart, civil(rng.Start.Date, rng.Start.Clock).Format(icsDateTime))
			if rng.ExplicitEnd {
				ve.SetProperty(ical.ComponentPropertyDtEnd, civil(rng.End.Date, rng.End.Clock).Format(icsDateTime))
			}
		}

		if evt.IsRecurring() {
			ve.SetProperty(ical.ComponentPropertyRrule, strings.TrimPrefix(*evt.RRule, "RRULE:"))
		}
	}
	return cal.Serialize(), nil
}

// decodeICS parses an iCalendar feed into events. A VEVENT that cannot be
// converted is reported in the skip list and the rest are still returned.
func decodeICS(r io.Reader) ([]Event, []ImportSkip, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing calendar: %w", err)
	}

	var (
		events []Event
		skips  []ImportSkip
	)
	for _, ve := range cal.Events() {
		uid := propValue(ve, ical.ComponentPropertyUniqueId)
		evt, err := decodeVEvent(ve, uid)
		if err != nil {
			skips = append(skips, ImportSkip{UID: uid, Reason: err.Error()})
			continue
		}
		events = append(events, evt)
	}
	return events, skips, nil
}

func decodeVEvent(ve *ical.VEvent, uid string) (Event, error) {
	if uid == "" {
		return Event{}, errors.New("missing UID")
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || startProp.Value == "" {
		return Event{}, errors.New("missing DTSTART")
	}
	start, allDay, err := icsToISO(startProp.Value)
	if err != nil {
		return Event{}, fmt.Errorf("DTSTART: %w", err)
	}

	evt := Event{
		ID:       importedID(uid),
		Title:    propValue(ve, ical.ComponentPropertySummary),
		Start:    start,
		IsAllDay: allDay,
	}
	if evt.Title == "" {
		evt.Title = "(untitled)"
	}

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil && endProp.Value != "" {
		end, endAllDay, err := icsToISO(endProp.Value)
		if err != nil {
			return Event{}, fmt.Errorf("DTEND: %w", err)
		}
		if allDay && endAllDay {
			// DATE end values are exclusive.
			d, _ := layout.ParseDate(end)
			s, _ := layout.ParseDate(start)
			end = maxDateOf(d.AddDays(-1), s).String()
		}
		if end != start {
			evt.End = &end
		}
	}

	if v := propValue(ve, ical.ComponentPropertyDescription); v != "" {
		evt.Description = &v
	}
	if v := propValue(ve, ical.ComponentPropertyCategories); v != "" {
		if first, _, _ := strings.Cut(v, ","); first != "" {
			evt.Category = &first
		}
	}
	if v := propValue(ve, ical.ComponentPropertyRrule); v != "" {
		evt.RRule = &v
	}
	return evt, nil
}

// icsToISO converts an ICS DATE or DATE-TIME value to the naive ISO form
// used by events. Zone designators are dropped: the wall-clock time is kept
// as written.
func icsToISO(v string) (iso string, allDay bool, err error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "Z")
	datePart, timePart, hasTime := strings.Cut(v, "T")
	d, err := time.Parse("20060102", datePart)
	if err != nil {
		return "", false, fmt.Errorf("invalid date %q", v)
	}
	if !hasTime {
		return d.Format("2006-01-02"), true, nil
	}
	t, err := time.Parse("150405", timePart)
	if err != nil {
		return "", false, fmt.Errorf("invalid time %q", v)
	}
	return d.Format("2006-01-02") + "T" + t.Format("15:04:05"), false, nil
}

// importedID maps an ICS UID to an event ID. UIDs that are already UUIDs,
// such as those in feeds this service exported, are used as-is.
func importedID(uid string) string {
	if id, err := uuid.Parse(uid); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(icsNamespace, []byte(uid)).String()
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func civil(d layout.Date, c layout.Clock) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, time.UTC)
}

func maxDateOf(a, b layout.Date) layout.Date {
	if a.After(b) {
		return a
	}
	return b
}
