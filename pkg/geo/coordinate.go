package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusMeters = 6371000.0

// Coordinate is an immutable (longitude, latitude) pair in decimal degrees.
type Coordinate struct {
	lng float64
	lat float64
}

// NewCoordinate creates a Coordinate from longitude and latitude.
func NewCoordinate(lng, lat float64) Coordinate {
	return Coordinate{lng: lng, lat: lat}
}

// Lng returns the longitude.
func (c Coordinate) Lng() float64 { return c.lng }

// Lat returns the latitude.
func (c Coordinate) Lat() float64 { return c.lat }

// Valid reports whether both components are within their WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.lng >= -180 && c.lng <= 180 && c.lat >= -90 && c.lat <= 90 &&
		!math.IsNaN(c.lng) && !math.IsNaN(c.lat)
}

// String formats the coordinate as "lng,lat", the form geocoders accept.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.lat, 'f', -1, 64)
}

// Pair returns the coordinate as a [lng, lat] array.
func (c Coordinate) Pair() [2]float64 {
	return [2]float64{c.lng, c.lat}
}

// ParsePosition parses a space separated "lng lat" position string.
func ParsePosition(pos string) (Coordinate, error) {
	parts := strings.Fields(pos)
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid position %q", pos)
	}
	lng, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid longitude in %q: %w", pos, err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid latitude in %q: %w", pos, err)
	}
	return NewCoordinate(lng, lat), nil
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	dLat := degreesToRadians(b.lat - a.lat)
	dLng := degreesToRadians(b.lng - a.lng)

	lat1Rad := degreesToRadians(a.lat)
	lat2Rad := degreesToRadians(b.lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bounds is a rectangular area given by its upper-left and lower-right corners.
type Bounds struct {
	UpperLeft  Coordinate
	LowerRight Coordinate
}

// BoundsAround returns a box that contains every point within radius meters of center.
func BoundsAround(center Coordinate, radiusMeters float64) Bounds {
	dLat := radiusMeters / earthRadiusMeters * 180 / math.Pi
	cosLat := math.Cos(degreesToRadians(center.lat))
	dLng := 180.0
	if cosLat > 1e-9 {
		dLng = math.Min(180, dLat/cosLat)
	}
	return Bounds{
		UpperLeft:  NewCoordinate(center.lng-dLng, center.lat+dLat),
		LowerRight: NewCoordinate(center.lng+dLng, center.lat-dLat),
	}
}

// Contains reports whether c lies inside the box, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.lng >= b.UpperLeft.lng && c.lng <= b.LowerRight.lng &&
		c.lat <= b.UpperLeft.lat && c.lat >= b.LowerRight.lat
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// MarshalJSON encodes the coordinate as a [lng, lat] array.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Pair())
}

// UnmarshalJSON decodes a [lng, lat] array.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinate must be a [lng, lat] array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must have 2 elements, got %d", len(pair))
	}
	*c = NewCoordinate(pair[0], pair[1])
	return nil
}
