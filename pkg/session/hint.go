package session

import (
	"fmt"
	"time"
)

const (
	hintStyle    = "bg-primary text-light"
	hintDuration = 10 * time.Second
)

// Toast is what the notifier is asked to display.
type Toast struct {
	Text     string
	Style    string
	Duration time.Duration
}

var hints = map[State]string{
	Initial:         `Pick an existing meeting or create your own with the "Schedule a meeting" button`,
	FillingAddress:  "Drag the marker or type the place of the meeting into the search bar",
	FillingDateTime: "Choose the date and time you plan to arrive at the chosen place",
}

// HintFor returns the hint toast for s. An unmapped state is a programming
// error and panics.
func HintFor(s State) Toast {
	text, ok := hints[s]
	if !ok {
		panic(fmt.Sprintf("session: no hint for %s", s))
	}
	return Toast{Text: text, Style: hintStyle, Duration: hintDuration}
}
