package picker

import (
	"context"
	"time"

	"github.com/meetpoint/service-meeting/pkg/geo"
)

// Overlay is an opaque handle to something drawn on the map.
type Overlay interface{}

// MarkerSpec describes a marker to construct.
type MarkerSpec struct {
	Coordinate geo.Coordinate
	Draggable  bool
	Title      string
	Subtitle   string
	// OnDragStart is called when the user grabs the marker. May be nil.
	OnDragStart func()
	// OnDragEnd is called when the user releases the marker. May be nil.
	OnDragEnd func(geo.Coordinate)
}

// Location is a viewport request.
type Location struct {
	Center geo.Coordinate
	Zoom   float64
	// Duration animates the transition; zero jumps.
	Duration time.Duration
}

// MapWidget is the subset of the map SDK the picker drives.
type MapWidget interface {
	// Center returns the current viewport center. It fails while the map is initializing.
	Center() (geo.Coordinate, error)
	SetLocation(loc Location)
	// NewMarker constructs a marker. It fails while the marker module is not loaded.
	NewMarker(spec MarkerSpec) (Overlay, error)
	AddChild(o Overlay)
	RemoveChild(o Overlay)
}

// Controls shows and hides the "confirm this location" affordance.
type Controls interface {
	RevealConfirmation()
	HideConfirmation()
}

// Geolocator yields the device position once.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (geo.Coordinate, error)
}
