package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// MetersPerDegreeLat is the length of one degree of latitude used by the
// local projection.
const MetersPerDegreeLat = 111320.0

// minCosLat keeps the longitude scale invertible near the poles.
const minCosLat = 1e-12

// Projector maps geographic points onto a local equirectangular tangent
// plane anchored at a reference point. The longitude scale comes from the
// average latitude of the point set it was built for, which keeps distortion
// low across the whole route rather than only at the anchor.
type Projector struct {
	ref      GeoPoint
	latScale float64
	lngScale float64
}

// NewProjector builds a projector anchored at ref whose longitude scale is
// taken from the mean latitude of points (ref.Lat when points is empty).
func NewProjector(points []GeoPoint, ref GeoPoint) Projector {
	avgLat := ref.Lat
	if len(points) > 0 {
		var sum float64
		for _, p := range points {
			sum += p.Lat
		}
		avgLat = sum / float64(len(points))
	}
	cosLat := math.Cos(avgLat * math.Pi / 180)
	if math.Abs(cosLat) < minCosLat {
		cosLat = minCosLat
	}
	return Projector{
		ref:      ref,
		latScale: MetersPerDegreeLat,
		lngScale: MetersPerDegreeLat * cosLat,
	}
}

// Reference returns the anchor point.
func (p Projector) Reference() GeoPoint { return p.ref }

// Forward projects one geographic point to meters.
func (p Projector) Forward(g GeoPoint) PlanarPoint {
	return PlanarPoint{
		X: (g.Lng - p.ref.Lng) * p.lngScale,
		Y: (g.Lat - p.ref.Lat) * p.latScale,
	}
}

// Inverse maps a planar point back to degrees.
func (p Projector) Inverse(q PlanarPoint) GeoPoint {
	return GeoPoint{
		Lat: p.ref.Lat + q.Y/p.latScale,
		Lng: p.ref.Lng + q.X/p.lngScale,
	}
}

// ForwardAll projects every point.
func (p Projector) ForwardAll(points []GeoPoint) []PlanarPoint {
	out := make([]PlanarPoint, len(points))
	for i, g := range points {
		out[i] = p.Forward(g)
	}
	return out
}

// InverseAll unprojects every point.
func (p Projector) InverseAll(points []PlanarPoint) []GeoPoint {
	out := make([]GeoPoint, len(points))
	for i, q := range points {
		out[i] = p.Inverse(q)
	}
	return out
}

// Project converts points to the tangent plane anchored at ref. It refuses
// non-finite input with ErrInvalidInput; buffering callers respond to that
// by handing the original points back untouched.
func Project(points []GeoPoint, ref GeoPoint) ([]PlanarPoint, Projector, error) {
	if !ref.IsFinite() || !allFinite(points) {
		return nil, Projector{}, eris.Wrap(ErrInvalidInput, "geo: project: non-finite coordinate")
	}
	proj := NewProjector(points, ref)
	return proj.ForwardAll(points), proj, nil
}

// Unproject is the inverse of Project for the same projector.
func Unproject(points []PlanarPoint, proj Projector) []GeoPoint {
	return proj.InverseAll(points)
}
