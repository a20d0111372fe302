package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// OffsetOptions tunes OffsetPolygon.
type OffsetOptions struct {
	// Join is JoinMiter (edge lines re-intersected) or JoinRound (arcs of
	// radius d around each original vertex). JoinBevel cuts the corner with
	// a single edge.
	Join JoinStyle
	// ArcSegments is the number of segments per half circle for JoinRound
	// (default DefaultCapSegments).
	ArcSegments int
}

func (o OffsetOptions) arcSegments() int {
	if o.ArcSegments <= 0 {
		return DefaultCapSegments
	}
	return o.ArcSegments
}

// BufferPolygon grows a convex ring outward by distanceM meters with mitered
// corners. Non-positive distances, rings with fewer than three points and
// rings that cannot be offset are returned unchanged.
func BufferPolygon(hull []GeoPoint, distanceM float64) []GeoPoint {
	out, err := OffsetPolygon(hull, distanceM, OffsetOptions{})
	if err != nil {
		return hull
	}
	return out
}

// OffsetPolygon is the error-reporting form of BufferPolygon.
//
// The ring is projected, oriented counter-clockwise, and every edge is
// translated by distanceM along its outward normal. Consecutive offset lines
// are intersected to form the new vertices; parallel pairs produce no vertex.
// The input must be convex; concave rings return ErrUnsupportedShape.
func OffsetPolygon(hull []GeoPoint, distanceM float64, opts OffsetOptions) ([]GeoPoint, error) {
	if math.IsNaN(distanceM) || math.IsInf(distanceM, 0) {
		return nil, eris.Wrapf(ErrInvalidInput, "geo: offset: distance %v", distanceM)
	}
	if distanceM <= 0 {
		return hull, nil
	}
	if len(hull) < 3 {
		return nil, eris.Wrapf(ErrDegenerateGeometry, "geo: offset: %d vertices", len(hull))
	}
	pl, proj, err := Project(hull, hull[0])
	if err != nil {
		return nil, eris.Wrap(err, "geo: offset")
	}

	ring := dropRepeats(pl)
	if len(ring) < 3 {
		return nil, eris.Wrapf(ErrDegenerateGeometry, "geo: offset: %d distinct vertices", len(ring))
	}
	area := signedArea(ring)
	if math.Abs(area) < 1e-9 {
		return nil, eris.Wrap(ErrDegenerateGeometry, "geo: offset: zero area ring")
	}
	if area < 0 {
		reverse(ring)
	}
	if !isConvex(ring) {
		return nil, eris.Wrap(ErrUnsupportedShape, "geo: offset: ring is not convex")
	}

	n := len(ring)
	dirs := make([]PlanarPoint, n)
	norms := make([]PlanarPoint, n)
	for i := range ring {
		e := ring[(i+1)%n].sub(ring[i])
		t := e.scale(1 / e.length())
		dirs[i] = t
		norms[i] = PlanarPoint{X: t.Y, Y: -t.X}
	}

	out := make([]PlanarPoint, 0, n)
	for i := range ring {
		prev := (i + n - 1) % n
		switch opts.Join {
		case JoinRound, JoinBevel:
			a, b := norms[prev], norms[i]
			if a.cross(b) < 1e-12 {
				out = append(out, ring[i].add(b.scale(distanceM)))
				continue
			}
			if opts.Join == JoinBevel {
				out = append(out, ring[i].add(a.scale(distanceM)), ring[i].add(b.scale(distanceM)))
				continue
			}
			out = append(out, outerJoin(ring[i], a, b, distanceM, JoinRound, opts.arcSegments())...)
		default:
			p, ok := lineIntersection(
				ring[prev].add(norms[prev].scale(distanceM)), dirs[prev],
				ring[i].add(norms[i].scale(distanceM)), dirs[i],
			)
			if !ok {
				continue
			}
			out = append(out, p)
		}
	}
	if len(out) < 3 {
		return nil, eris.Wrapf(ErrDegenerateGeometry, "geo: offset: %d offset vertices", len(out))
	}
	return proj.InverseAll(out), nil
}

// lineIntersection intersects the lines a + s·da and b + t·db. It reports
// false when the directions are parallel.
func lineIntersection(a, da, b, db PlanarPoint) (PlanarPoint, bool) {
	denom := da.cross(db)
	if math.Abs(denom) < 1e-9*da.length()*db.length() {
		return PlanarPoint{}, false
	}
	s := b.sub(a).cross(db) / denom
	return a.add(da.scale(s)), true
}

// signedArea is the shoelace area; positive for counter-clockwise rings.
func signedArea(ring []PlanarPoint) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// isConvex reports whether a counter-clockwise ring never turns right.
// Collinear vertices are allowed.
func isConvex(ring []PlanarPoint) bool {
	n := len(ring)
	for i := range ring {
		e1 := ring[(i+1)%n].sub(ring[i])
		e2 := ring[(i+2)%n].sub(ring[(i+1)%n])
		if e1.cross(e2) < -1e-9*e1.length()*e2.length() {
			return false
		}
	}
	return true
}

// dropRepeats removes consecutive coincident vertices, including a closing
// vertex equal to the first.
func dropRepeats(pl []PlanarPoint) []PlanarPoint {
	out := make([]PlanarPoint, 0, len(pl))
	for _, p := range pl {
		if len(out) > 0 && p.sub(out[len(out)-1]).length() < minSegmentLength {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0].sub(out[len(out)-1]).length() < minSegmentLength {
		out = out[:len(out)-1]
	}
	return out
}

func reverse(pl []PlanarPoint) {
	for i, j := 0, len(pl)-1; i < j; i, j = i+1, j-1 {
		pl[i], pl[j] = pl[j], pl[i]
	}
}
