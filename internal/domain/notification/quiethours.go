package notification

import "time"

// Window describes the daily quiet-hours interval in local wall-clock hours.
// Notifications created while the window contains the current time are
// deferred until the window ends. StartHour == EndHour disables the window.
type Window struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

func NewWindow(startHour, endHour int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	return Window{StartHour: startHour, EndHour: endHour, Location: loc}
}

// Contains reports whether t falls inside quiet hours. A window that wraps
// midnight (start > end, e.g. 16 to 7) covers [start, 24) plus [0, end).
func (w Window) Contains(t time.Time) bool {
	if w.StartHour == w.EndHour {
		return false
	}
	h := t.In(w.Location).Hour()
	if w.StartHour < w.EndHour {
		return h >= w.StartHour && h < w.EndHour
	}
	return h >= w.StartHour || h < w.EndHour
}

// NextVisibleTime returns when a notification created at t should become
// visible: t itself outside quiet hours, otherwise the next end-of-window
// boundary (EndHour:00 local), converted to UTC.
func (w Window) NextVisibleTime(t time.Time) time.Time {
	if !w.Contains(t) {
		return t
	}
	local := t.In(w.Location)
	end := time.Date(local.Year(), local.Month(), local.Day(), w.EndHour, 0, 0, 0, w.Location)
	if !end.After(local) {
		end = end.AddDate(0, 0, 1)
	}
	return end.UTC()
}
