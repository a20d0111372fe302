// Package geo builds SORA safety-zone polygons around drone flight routes.
//
// All functions are pure: inputs are never mutated and no state is kept
// between calls, so the package is safe for concurrent use.
package geo

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// GeoPoint is a geographic coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// IsFinite reports whether both coordinates are finite numbers.
func (p GeoPoint) IsFinite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}

// IsNullIsland reports whether the point is exactly (0, 0), the placeholder
// emitted by GPS units and forms without a fix.
func (p GeoPoint) IsNullIsland() bool {
	return p.Lat == 0 && p.Lng == 0
}

// PlanarPoint is a position in meters on a local tangent plane.
type PlanarPoint struct {
	X float64
	Y float64
}

func (p PlanarPoint) add(q PlanarPoint) PlanarPoint { return PlanarPoint{p.X + q.X, p.Y + q.Y} }
func (p PlanarPoint) sub(q PlanarPoint) PlanarPoint { return PlanarPoint{p.X - q.X, p.Y - q.Y} }
func (p PlanarPoint) scale(s float64) PlanarPoint { return PlanarPoint{p.X * s, p.Y * s} }
func (p PlanarPoint) dot(q PlanarPoint) float64 { return p.X*q.X + p.Y*q.Y }
func (p PlanarPoint) cross(q PlanarPoint) float64 { return p.X*q.Y - p.Y*q.X }
func (p PlanarPoint) length() float64 { return math.Hypot(p.X, p.Y) }
func (p PlanarPoint) angle() float64 { return math.Atan2(p.Y, p.X) }

func polar(center PlanarPoint, r, theta float64) PlanarPoint {
	return PlanarPoint{center.X + r*math.Cos(theta), center.Y + r*math.Sin(theta)}
}

// BufferMode selects how a route is turned into a zone polygon.
type BufferMode int

const (
	// ModeAuto picks ModeConvexHull for closed routes and ModeCorridor otherwise.
	ModeAuto BufferMode = iota
	// ModeCorridor buffers the route as an open polyline.
	ModeCorridor
	// ModeConvexHull buffers the convex hull of the route.
	ModeConvexHull
)

// String returns the config/wire name of the mode.
func (m BufferMode) String() string {
	switch m {
	case ModeCorridor:
		return "corridor"
	case ModeConvexHull:
		return "convex_hull"
	default:
		return "auto"
	}
}

// ParseBufferMode parses a mode name. The empty string maps to ModeAuto.
func ParseBufferMode(s string) (BufferMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "corridor", "line":
		return ModeCorridor, nil
	case "convex_hull", "convexhull", "hull", "area":
		return ModeConvexHull, nil
	}
	return ModeAuto, eris.Wrapf(ErrInvalidInput, "geo: unknown buffer mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m BufferMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *BufferMode) UnmarshalText(text []byte) error {
	parsed, err := ParseBufferMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ZoneLabel names one of the three nested SORA zones.
type ZoneLabel int

const (
	// FlightGeography is the innermost zone around the planned route.
	FlightGeography ZoneLabel = iota
	// Contingency surrounds the flight geography.
	Contingency
	// GroundRiskBuffer is the outermost zone.
	GroundRiskBuffer
)

// String returns the snake_case identifier used in exports and APIs.
func (l ZoneLabel) String() string {
	switch l {
	case FlightGeography:
		return "flight_geography"
	case Contingency:
		return "contingency"
	case GroundRiskBuffer:
		return "ground_risk_buffer"
	}
	return "unknown"
}

// DisplayName returns the human-readable zone name.
func (l ZoneLabel) DisplayName() string {
	switch l {
	case FlightGeography:
		return "Flight Geography"
	case Contingency:
		return "Contingency Area"
	case GroundRiskBuffer:
		return "Ground Risk Buffer"
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (l ZoneLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ZoneLabel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "flight_geography":
		*l = FlightGeography
	case "contingency":
		*l = Contingency
	case "ground_risk_buffer":
		*l = GroundRiskBuffer
	default:
		return eris.Wrapf(ErrInvalidInput, "geo: unknown zone label %q", text)
	}
	return nil
}

// ZoneSettings holds the regulatory distances (meters) for each zone ring.
// Distances are per-ring; the composer accumulates them outward.
type ZoneSettings struct {
	FlightGeographyM float64    `json:"flight_geography_m" yaml:"flight_geography_m"`
	ContingencyM     float64    `json:"contingency_m" yaml:"contingency_m"`
	GroundRiskM      float64    `json:"ground_risk_m" yaml:"ground_risk_m"`
	Mode             BufferMode `json:"mode" yaml:"mode"`
}

// Validate checks that all distances are finite and non-negative.
func (s ZoneSettings) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"flight_geography_m", s.FlightGeographyM},
		{"contingency_m", s.ContingencyM},
		{"ground_risk_m", s.GroundRiskM},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return eris.Wrapf(ErrInvalidInput, "geo: %s must be a non-negative number, got %v", f.name, f.v)
		}
	}
	return nil
}

// Zone is one labeled buffer ring produced by Compose.
type Zone struct {
	Label               ZoneLabel  `json:"label"`
	Polygon             []GeoPoint `json:"polygon"`
	CumulativeDistanceM float64    `json:"cumulative_distance_m"`
}

func allFinite(points []GeoPoint) bool {
	for _, p := range points {
		if !p.IsFinite() {
			return false
		}
	}
	return true
}
