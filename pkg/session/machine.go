// Package session tracks which step of the meeting flow the user is in and
// shows the matching hint.
package session

import (
	"github.com/meetpoint/service-meeting/pkg/stream"
	"go.uber.org/zap"
)

// MarkerController is the part of the location picker the flow drives.
type MarkerController interface {
	Freeze()
	Remove()
}

// FormResetter clears the meeting form.
type FormResetter interface {
	Reset()
}

// Notifier displays toasts.
type Notifier interface {
	Clear()
	Show(t Toast)
}

// Navigator moves the surrounding UI.
type Navigator interface {
	GoBack()
	NavigateRoot()
}

// Transition describes one state change.
type Transition struct {
	From   State
	To     State
	Action Action
}

// Machine is the flow state machine. It must be used from the event loop.
type Machine struct {
	state    State
	marker   MarkerController
	form     FormResetter
	notifier Notifier
	nav      Navigator
	logger   *zap.Logger

	transitions *stream.Subject[Transition]
	bag         stream.Bag
	running     bool
}

// New creates a Machine in the Initial state. form may be nil.
func New(marker MarkerController, form FormResetter, notifier Notifier, nav Navigator, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		state:       Initial,
		marker:      marker,
		form:        form,
		notifier:    notifier,
		nav:         nav,
		logger:      logger,
		transitions: stream.NewSubject[Transition](),
	}
}

// Start activates the machine and shows the hint for the current state.
func (m *Machine) Start() {
	m.running = true
	m.showHint()
}

// Stop deactivates the machine and drops every transition listener.
func (m *Machine) Stop() {
	m.running = false
	m.bag.Release()
}

// State returns the active state.
func (m *Machine) State() State {
	return m.state
}

// OnTransition subscribes fn to state changes until Stop.
func (m *Machine) OnTransition(fn func(Transition)) stream.Unsubscribe {
	unsub := m.transitions.Subscribe(fn)
	m.bag.Add(unsub)
	return unsub
}

// Begin starts creating a meeting.
func (m *Machine) Begin() State { return m.Fire(Begin) }

// Proceed confirms the current step.
func (m *Machine) Proceed() State { return m.Fire(Proceed) }

// Cancel abandons the flow.
func (m *Machine) Cancel() State { return m.Fire(Cancel) }

// Fire applies a, runs the side effects of the transition and shows the new
// hint. It does nothing while the machine is stopped.
func (m *Machine) Fire(a Action) State {
	if !m.running {
		return m.state
	}

	from := m.state
	to := from.Next(a)

	switch {
	case from == FillingAddress && to == FillingDateTime:
		m.marker.Freeze()
	case a == Cancel && from != Initial:
		m.reset()
		m.nav.GoBack()
	case a == Proceed && from == FillingDateTime:
		m.reset()
		m.nav.NavigateRoot()
	}

	m.state = to
	m.logger.Debug("session transition",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Stringer("action", a),
	)

	m.showHint()
	m.transitions.Publish(Transition{From: from, To: to, Action: a})
	return to
}

func (m *Machine) reset() {
	m.marker.Remove()
	if m.form != nil {
		m.form.Reset()
	}
}

func (m *Machine) showHint() {
	toast := HintFor(m.state)
	m.notifier.Clear()
	m.notifier.Show(toast)
}
