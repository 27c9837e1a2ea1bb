package session

import "fmt"

// State is the step of the meeting flow the user is in.
type State int

const (
	// Initial means no meeting is being created.
	Initial State = iota
	// FillingAddress means the user is placing or confirming the meeting point.
	FillingAddress
	// FillingDateTime means the point is fixed and the user picks a time.
	FillingDateTime
)

// Action is a user intent that moves the flow.
type Action int

const (
	// Begin starts creating a meeting.
	Begin Action = iota
	// Proceed confirms the current step.
	Proceed
	// Cancel abandons the flow.
	Cancel
)

// transitions defines the successor of every state for every action.
var transitions = map[State]map[Action]State{
	Initial: {
		Begin:   FillingAddress,
		Proceed: FillingAddress,
		Cancel:  Initial,
	},
	FillingAddress: {
		Begin:   FillingAddress,
		Proceed: FillingDateTime,
		Cancel:  Initial,
	},
	FillingDateTime: {
		Begin:   FillingDateTime,
		Proceed: Initial,
		Cancel:  Initial,
	},
}

// Next returns the successor of s for a. It panics on an unknown state or action.
func (s State) Next(a Action) State {
	next, ok := transitions[s][a]
	if !ok {
		panic(fmt.Sprintf("session: no transition from %s on %s", s, a))
	}
	return next
}

// String returns the state name.
func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case FillingAddress:
		return "filling_address"
	case FillingDateTime:
		return "filling_datetime"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Begin:
		return "begin"
	case Proceed:
		return "proceed"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
