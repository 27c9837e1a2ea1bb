package meeting

import "time"

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// DayWindow returns the UTC calendar day containing t, shifted by
// offsetMinutes so that clients can ask for their local day.
func DayWindow(t time.Time, offsetMinutes int) Window {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(offsetMinutes) * time.Minute)
	return Window{From: start, To: start.Add(24 * time.Hour)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}
