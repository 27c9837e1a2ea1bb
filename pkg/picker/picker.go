// Package picker owns the single meeting-point marker on the map and the
// viewport around it.
//
// All methods must be called from the event loop the picker was built with;
// callbacks coming from the map SDK or the geolocator are re-posted onto it.
package picker

import (
	"context"
	"time"

	"github.com/meetpoint/service-meeting/pkg/geo"
	"github.com/meetpoint/service-meeting/pkg/loop"
	"github.com/meetpoint/service-meeting/pkg/stream"
	"go.uber.org/zap"
)

const (
	// DefaultZoom is used when centering on an address or the device.
	DefaultZoom = 15

	DefaultTitle    = "Meeting point"
	DefaultSubtitle = "Drag the marker"
	DeviceTitle     = "You are here"
)

// MeetingPoint is the state of the live meeting marker.
type MeetingPoint struct {
	Coordinate geo.Coordinate
	Draggable  bool
	Title      string
	Subtitle   string
}

// MarkerOptions configures SetMarker. Nil fields take their defaults.
type MarkerOptions struct {
	// Coordinate defaults to the current viewport center.
	Coordinate *geo.Coordinate
	// Draggable defaults to true.
	Draggable *bool
	Title     string
	Subtitle  string
}

type liveMarker struct {
	id      uint64
	overlay Overlay
	point   MeetingPoint
	// armed is cleared by the first drag-end of a gesture and set again on drag start.
	armed bool
}

// Picker is the single authority over the meeting marker.
type Picker struct {
	widget     MapWidget
	controls   Controls
	geolocator Geolocator
	exec       loop.Executor
	logger     *zap.Logger

	marker   *liveMarker
	nextID   uint64
	device   Overlay
	pending  *stream.Subject[geo.Coordinate]
	bag      stream.Bag
	running  bool
	locateID uint64
}

// Option customizes a Picker.
type Option func(*Picker)

// WithGeolocator sets the device position provider used by LocateDevice.
func WithGeolocator(g Geolocator) Option {
	return func(p *Picker) { p.geolocator = g }
}

// WithLogger sets the logger. Swallowed failures are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(p *Picker) { p.logger = l }
}

// WithExecutor sets the event loop SDK callbacks are posted to.
func WithExecutor(e loop.Executor) Option {
	return func(p *Picker) { p.exec = e }
}

// New creates a Picker bound to a map widget.
func New(widget MapWidget, controls Controls, opts ...Option) *Picker {
	p := &Picker{
		widget:   widget,
		controls: controls,
		exec:     loop.Immediate,
		logger:   zap.NewNop(),
		pending:  stream.NewSubject[geo.Coordinate](),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start enables SDK callbacks.
func (p *Picker) Start() {
	p.running = true
}

// Stop removes the markers this picker added and drops every registered
// callback so late SDK or geolocation events are ignored.
func (p *Picker) Stop() {
	p.running = false
	p.locateID++
	defer p.bag.Release()
	p.Remove()
	if p.device != nil {
		p.widget.RemoveChild(p.device)
		p.device = nil
	}
}

// PendingResolution subscribes fn to coordinates released by a drag. They
// still need reverse geocoding.
func (p *Picker) PendingResolution(fn func(geo.Coordinate)) stream.Unsubscribe {
	unsub := p.pending.Subscribe(fn)
	p.bag.Add(unsub)
	return unsub
}

// Current returns the live meeting point, if any.
func (p *Picker) Current() (MeetingPoint, bool) {
	if p.marker == nil {
		return MeetingPoint{}, false
	}
	return p.marker.point, true
}

// SetMarker replaces the meeting marker. If the map cannot produce a marker
// yet, the call does nothing.
func (p *Picker) SetMarker(opts MarkerOptions) {
	point := MeetingPoint{
		Draggable: true,
		Title:     DefaultTitle,
		Subtitle:  DefaultSubtitle,
	}
	if opts.Draggable != nil {
		point.Draggable = *opts.Draggable
	}
	if opts.Title != "" {
		point.Title = opts.Title
	}
	if opts.Subtitle != "" {
		point.Subtitle = opts.Subtitle
	}
	if opts.Coordinate != nil {
		point.Coordinate = *opts.Coordinate
	} else {
		center, err := p.widget.Center()
		if err != nil {
			p.logger.Debug("map not ready, marker not placed", zap.Error(err))
			return
		}
		point.Coordinate = center
	}
	p.place(point)
}

func (p *Picker) place(point MeetingPoint) {
	p.nextID++
	id := p.nextID

	overlay, err := p.widget.NewMarker(MarkerSpec{
		Coordinate:  point.Coordinate,
		Draggable:   point.Draggable,
		Title:       point.Title,
		Subtitle:    point.Subtitle,
		OnDragStart: func() { p.exec.Execute(func() { p.handleDragStart(id) }) },
		OnDragEnd: func(c geo.Coordinate) {
			p.exec.Execute(func() { p.handleDragEnd(id, c) })
		},
	})
	if err != nil {
		p.logger.Debug("marker construction failed", zap.Error(err))
		return
	}

	p.Remove()
	p.widget.AddChild(overlay)
	p.marker = &liveMarker{id: id, overlay: overlay, point: point, armed: true}
}

// OnDragEnd handles the release of a drag on the current marker.
func (p *Picker) OnDragEnd(c geo.Coordinate) {
	if p.marker == nil {
		return
	}
	p.handleDragEnd(p.marker.id, c)
}

func (p *Picker) handleDragStart(id uint64) {
	if !p.running || p.marker == nil || p.marker.id != id {
		return
	}
	p.marker.armed = true
}

func (p *Picker) handleDragEnd(id uint64, c geo.Coordinate) {
	if !p.running || p.marker == nil || p.marker.id != id || !p.marker.armed {
		return
	}
	p.marker.armed = false
	p.marker.point.Coordinate = c

	p.pending.Publish(c)
	p.controls.RevealConfirmation()
}

// ChooseOnMap hides the confirmation controls so the user can keep dragging.
func (p *Picker) ChooseOnMap() {
	p.controls.HideConfirmation()
}

// SetFromAddress centers the map on an address the user picked from the
// suggestions and pins a fixed marker there.
func (p *Picker) SetFromAddress(c geo.Coordinate) {
	p.widget.SetLocation(Location{Center: c, Zoom: DefaultZoom})
	fixed := false
	p.SetMarker(MarkerOptions{Coordinate: &c, Draggable: &fixed})
}

// Freeze swaps the marker for an identical one that cannot be dragged.
func (p *Picker) Freeze() {
	if p.marker == nil {
		return
	}
	point := p.marker.point
	point.Draggable = false
	p.place(point)
}

// Remove detaches the meeting marker. It is safe to call without one.
func (p *Picker) Remove() {
	if p.marker == nil {
		return
	}
	p.widget.RemoveChild(p.marker.overlay)
	p.marker = nil
}

// CenterOn moves the viewport without touching the marker.
func (p *Picker) CenterOn(c geo.Coordinate, zoom float64, duration time.Duration) {
	p.widget.SetLocation(Location{Center: c, Zoom: zoom, Duration: duration})
}

// LocateDevice asks the geolocator for the device position without blocking.
// On success the map centers there and shows a "you are here" marker; a
// missing permission or signal leaves the map as it is.
func (p *Picker) LocateDevice(ctx context.Context) {
	if p.geolocator == nil {
		return
	}
	p.locateID++
	id := p.locateID

	go func() {
		c, err := p.geolocator.CurrentPosition(ctx)
		p.exec.Execute(func() {
			if !p.running || id != p.locateID {
				return
			}
			if err != nil {
				p.logger.Debug("geolocation unavailable", zap.Error(err))
				return
			}
			p.showDevice(c)
		})
	}()
}

func (p *Picker) showDevice(c geo.Coordinate) {
	p.widget.SetLocation(Location{Center: c, Zoom: DefaultZoom})

	overlay, err := p.widget.NewMarker(MarkerSpec{Coordinate: c, Title: DeviceTitle})
	if err != nil {
		p.logger.Debug("device marker construction failed", zap.Error(err))
		return
	}
	if p.device != nil {
		p.widget.RemoveChild(p.device)
	}
	p.widget.AddChild(overlay)
	p.device = overlay
}
