// Package flow assembles the client core: the location picker, the session
// state machine and the address search, wired the way the meeting screen
// uses them.
package flow

import (
	"context"
	"time"

	"github.com/meetpoint/service-meeting/pkg/clock"
	"github.com/meetpoint/service-meeting/pkg/geo"
	"github.com/meetpoint/service-meeting/pkg/geocoder"
	"github.com/meetpoint/service-meeting/pkg/loop"
	"github.com/meetpoint/service-meeting/pkg/picker"
	"github.com/meetpoint/service-meeting/pkg/search"
	"github.com/meetpoint/service-meeting/pkg/session"
	"github.com/meetpoint/service-meeting/pkg/stream"
	"go.uber.org/zap"
)

// OpenDuration is the viewport animation used when opening a meeting.
const OpenDuration = 250 * time.Millisecond

// Meeting is what the screen needs to show an existing meeting.
type Meeting struct {
	ID      string
	Address string
	Point   geo.Coordinate
	Date    *time.Time
}

// MeetingLoader fetches a meeting by id. A nil meeting with a nil error means
// it does not exist.
type MeetingLoader interface {
	Meeting(ctx context.Context, id string) (*Meeting, error)
}

// Outcome tells how the user closed a presented meeting.
type Outcome int

const (
	Dismissed Outcome = iota
	Edited
)

// Presenter shows a meeting card and blocks until the user closes it.
type Presenter interface {
	Present(ctx context.Context, m Meeting) Outcome
}

// loopCapacity bounds the task queue of the event loop a Flow owns.
const loopCapacity = 64

// Deps are the collaborators a Flow drives. Meetings and Presenter are only
// needed by OpenMeeting.
type Deps struct {
	Widget     picker.MapWidget
	Controls   picker.Controls
	Geolocator picker.Geolocator
	Geocoder   geocoder.Geocoder
	Notifier   session.Notifier
	Navigator  session.Navigator
	Meetings   MeetingLoader
	Presenter  Presenter

	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Executor is the UI event loop. When nil the Flow runs its own
	// loop.Loop between Start and Stop, and callers reach it through Dispatch.
	Executor loop.Executor
	Logger   *zap.Logger
}

// Flow is the meeting screen. Except for Start, Stop, Dispatch and
// OpenMeeting, its methods must be called from the event loop.
type Flow struct {
	deps Deps

	ownLoop  *loop.Loop
	stopLoop context.CancelFunc
	loopDone chan struct{}

	picker    *picker.Picker
	machine   *session.Machine
	field     *search.AddressField
	searcher  *search.Searcher
	resolver  *search.Resolver
	committer *search.Committer

	bag stream.Bag
}

// New builds a Flow. Nothing is observed until Start.
func New(deps Deps) *Flow {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	log := deps.Logger

	var own *loop.Loop
	if deps.Executor == nil {
		own = loop.New(loopCapacity, log.Named("loop"))
		deps.Executor = own
	}

	f := &Flow{deps: deps, ownLoop: own, field: search.NewAddressField()}
	f.picker = picker.New(deps.Widget, deps.Controls,
		picker.WithGeolocator(deps.Geolocator),
		picker.WithExecutor(deps.Executor),
		picker.WithLogger(log.Named("picker")),
	)
	f.machine = session.New(f.picker, f.field, deps.Notifier, deps.Navigator, log.Named("session"))
	f.searcher = search.NewSearcher(deps.Geocoder, deps.Clock, deps.Executor, log.Named("search"))
	f.resolver = search.NewResolver(deps.Geocoder, f.field, deps.Clock, deps.Executor, log.Named("resolve"))
	f.committer = search.NewCommitter(f.field, f.picker, deps.Clock, deps.Executor)
	return f
}

// Start activates every component and shows the initial hint. A Flow that
// owns its event loop starts running it here.
func (f *Flow) Start(ctx context.Context) {
	if f.ownLoop != nil {
		loopCtx, cancel := context.WithCancel(ctx)
		f.stopLoop = cancel
		f.loopDone = make(chan struct{})
		go func() {
			defer close(f.loopDone)
			_ = f.ownLoop.Run(loopCtx)
		}()
	}

	f.picker.Start()
	f.searcher.Start(ctx)
	f.resolver.Start(ctx)
	f.committer.Start()
	f.picker.PendingResolution(f.resolver.Push)
	f.machine.Start()

	f.bag.Add(f.picker.Stop)
	f.bag.Add(f.searcher.Stop)
	f.bag.Add(f.resolver.Stop)
	f.bag.Add(f.committer.Stop)
	f.bag.Add(f.machine.Stop)
	f.bag.Add(f.machine.OnTransition(f.forgetOnReturn))

	if f.deps.Geolocator != nil {
		f.picker.LocateDevice(ctx)
	}
}

// Stop tears everything down. Late geocoder answers are dropped. An owned
// event loop is stopped first so that no task runs concurrently with the
// teardown.
func (f *Flow) Stop() {
	if f.stopLoop != nil {
		f.stopLoop()
		<-f.loopDone
		f.stopLoop = nil
	}
	f.bag.Release()
}

// Dispatch runs task on the event loop.
func (f *Flow) Dispatch(task func()) {
	f.deps.Executor.Execute(task)
}

// forgetOnReturn drops address work started for a meeting that was
// abandoned or completed, so none of it lands in the next one.
func (f *Flow) forgetOnReturn(t session.Transition) {
	if t.To != session.Initial || t.From == session.Initial {
		return
	}
	f.searcher.Reset()
	f.resolver.Reset()
	f.committer.Reset()
}

// State returns the active session state.
func (f *Flow) State() session.State { return f.machine.State() }

// Address returns the address currently held by the form.
func (f *Flow) Address() *geocoder.AddressCandidate { return f.field.Value() }

// MeetingPoint returns the live marker, if any.
func (f *Flow) MeetingPoint() (picker.MeetingPoint, bool) { return f.picker.Current() }

// Suggestions subscribes fn to address suggestion lists.
func (f *Flow) Suggestions(fn func([]geocoder.AddressCandidate)) stream.Unsubscribe {
	return f.searcher.Suggestions(fn)
}

// OnTransition subscribes fn to session state changes.
func (f *Flow) OnTransition(fn func(session.Transition)) stream.Unsubscribe {
	return f.machine.OnTransition(fn)
}

// CreateMeeting enters address filling and drops a draggable marker at the
// viewport center. A meeting already being created keeps its marker.
func (f *Flow) CreateMeeting() {
	from := f.machine.State()
	if to := f.machine.Begin(); from == session.Initial && to == session.FillingAddress {
		f.picker.SetMarker(picker.MarkerOptions{})
	}
}

// TypeAddress feeds the search box.
func (f *Flow) TypeAddress(text string) {
	f.searcher.Input(text)
}

// ChooseSuggestion records the picked address. The marker follows once the
// choice settles.
func (f *Flow) ChooseSuggestion(c geocoder.AddressCandidate) {
	f.field.SetValue(&c)
}

// ChooseOnMap lets the user keep adjusting the marker by hand.
func (f *Flow) ChooseOnMap() {
	f.picker.ChooseOnMap()
}

// GoNext confirms the address and moves on to the date. The marker is frozen.
func (f *Flow) GoNext() session.State {
	if f.machine.State() != session.FillingAddress {
		return f.machine.State()
	}
	return f.machine.Proceed()
}

// Complete finishes a meeting whose date has been filled in.
func (f *Flow) Complete() session.State {
	if f.machine.State() != session.FillingDateTime {
		return f.machine.State()
	}
	return f.machine.Proceed()
}

// Cancel abandons the meeting being created.
func (f *Flow) Cancel() session.State {
	return f.machine.Cancel()
}

// OpenMeeting loads a meeting, centers the map on it and presents it. It
// blocks until the presentation is closed and may be called from any
// goroutine. Without a loader or presenter it just goes back.
func (f *Flow) OpenMeeting(ctx context.Context, id string) {
	log := f.deps.Logger.With(zap.String("meeting_id", id))
	exec := f.deps.Executor

	if f.deps.Meetings == nil || f.deps.Presenter == nil {
		log.Debug("meeting viewing is not configured")
		exec.Execute(f.deps.Navigator.GoBack)
		return
	}

	m, err := f.deps.Meetings.Meeting(ctx, id)
	if err != nil || m == nil {
		if err != nil {
			log.Debug("meeting load failed", zap.Error(err))
		}
		exec.Execute(f.deps.Navigator.GoBack)
		return
	}

	exec.Execute(func() {
		f.picker.CenterOn(m.Point, picker.DefaultZoom, OpenDuration)
	})

	switch f.deps.Presenter.Present(ctx, *m) {
	case Edited:
		exec.Execute(f.deps.Navigator.NavigateRoot)
	default:
		exec.Execute(f.deps.Navigator.GoBack)
	}
}
