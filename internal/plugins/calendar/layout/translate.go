package layout

// DragTranslation is the new range for an event dropped on an anchor date.
// NewEnd is nil when the event had no explicit end.
type DragTranslation struct {
	NewStart string  `json:"new_start"`
	NewEnd   *string `json:"new_end"`
}

// Translate moves an event so it starts on anchor, keeping its length in
// days and the time of day of both endpoints. No bounds are applied.
func Translate(e Event, anchor Date) (DragTranslation, error) {
	r, err := Normalize(e)
	if err != nil {
		return DragTranslation{}, err
	}
	return translateRange(r, anchor), nil
}

func translateRange(r Range, anchor Date) DragTranslation {
	t := DragTranslation{NewStart: r.Start.WithDate(anchor).String()}
	if r.ExplicitEnd {
		end := r.End.WithDate(anchor.AddDays(r.Days())).String()
		t.NewEnd = &end
	}
	return t
}

// DragSession tracks one drag gesture. It is a value: every transition
// returns a new session and the zero value means no drag is in progress.
type DragSession struct {
	Event  Event `json:"event"`
	Origin Date  `json:"origin"`
	Anchor Date  `json:"anchor"`
	rng    Range
	active bool
}

// BeginDrag starts dragging e from its start date.
func BeginDrag(e Event) (DragSession, error) {
	r, err := Normalize(e)
	if err != nil {
		return DragSession{}, err
	}
	return DragSession{Event: e, Origin: r.Start.Date, Anchor: r.Start.Date, rng: r, active: true}, nil
}

// Active reports whether the session holds a dragged event.
func (s DragSession) Active() bool {
	return s.active
}

// Over returns the session hovering over anchor.
func (s DragSession) Over(anchor Date) DragSession {
	if s.active {
		s.Anchor = anchor
	}
	return s
}

// Preview is the translation the session would produce if dropped now.
func (s DragSession) Preview() (DragTranslation, bool) {
	if !s.active {
		return DragTranslation{}, false
	}
	return translateRange(s.rng, s.Anchor), true
}

// Moved reports whether dropping now would change the event's dates.
func (s DragSession) Moved() bool {
	return s.active && s.Anchor != s.Origin
}

// Drop ends the session. It returns the translation and true when the
// event moved, and the idle zero session either way.
func (s DragSession) Drop() (DragTranslation, bool, DragSession) {
	if !s.Moved() {
		return DragTranslation{}, false, DragSession{}
	}
	t, _ := s.Preview()
	return t, true, DragSession{}
}

// Cancel abandons the drag.
func (s DragSession) Cancel() DragSession {
	return DragSession{}
}
