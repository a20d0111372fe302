package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// DefaultCapSegments is the number of arc segments used for a half circle.
const DefaultCapSegments = 16

// miterClampFactor bounds the bisector offset at sharp interior turns.
const miterClampFactor = 3.0

// minSegmentLength is the length (meters) below which a segment is treated
// as a repeated point and inherits the previous segment's normal.
const minSegmentLength = 1e-9

// JoinStyle controls how offset edges meet at a vertex.
type JoinStyle int

const (
	// JoinMiter extends the offsets to their intersection. Corridors clamp
	// the spike to 3x the buffer distance; polygon offsets do not need to.
	JoinMiter JoinStyle = iota
	// JoinBevel connects the two offset points on the outside of a turn
	// with a straight edge.
	JoinBevel
	// JoinRound connects them with a circular arc around the vertex.
	JoinRound
)

// String returns the config name of the join style.
func (j JoinStyle) String() string {
	switch j {
	case JoinBevel:
		return "bevel"
	case JoinRound:
		return "round"
	default:
		return "miter"
	}
}

// ParseJoinStyle parses miter, bevel or round. The empty string is miter.
func ParseJoinStyle(s string) (JoinStyle, error) {
	switch s {
	case "", "miter":
		return JoinMiter, nil
	case "bevel":
		return JoinBevel, nil
	case "round":
		return JoinRound, nil
	}
	return JoinMiter, eris.Wrapf(ErrInvalidInput, "geo: unknown join style %q", s)
}

// CorridorOptions tunes Corridor. The zero value matches BufferPolyline's
// defaults.
type CorridorOptions struct {
	// CapSegments is the number of segments per half circle (default 16).
	CapSegments int
	// Join selects the outer-side join at interior vertices.
	Join JoinStyle
}

func (o CorridorOptions) capSegments() int {
	if o.CapSegments <= 0 {
		return DefaultCapSegments
	}
	return o.CapSegments
}

// BufferPolyline returns a round-capped corridor polygon around an open
// polyline at distanceM meters. Zero or negative distances, empty input and
// non-finite coordinates return points unchanged.
func BufferPolyline(points []GeoPoint, distanceM float64, capSegments int) []GeoPoint {
	out, err := Corridor(points, distanceM, CorridorOptions{CapSegments: capSegments})
	if err != nil {
		return points
	}
	return out
}

// Corridor is the error-reporting form of BufferPolyline.
//
// The ring runs along the right-hand offsets from the first vertex to the
// last, around a counter-clockwise cap at the last vertex, back along the
// left-hand offsets, and around a cap at the first vertex. A single point
// yields a full circle of 2*CapSegments vertices.
func Corridor(points []GeoPoint, distanceM float64, opts CorridorOptions) ([]GeoPoint, error) {
	if math.IsNaN(distanceM) || math.IsInf(distanceM, 0) {
		return nil, eris.Wrapf(ErrInvalidInput, "geo: corridor: distance %v", distanceM)
	}
	if distanceM <= 0 || len(points) == 0 {
		return points, nil
	}
	pl, proj, err := Project(points, points[0])
	if err != nil {
		return nil, eris.Wrap(err, "geo: corridor")
	}

	caps := opts.capSegments()
	if len(points) == 1 {
		return proj.InverseAll(circle(pl[0], distanceM, 2*caps)), nil
	}

	normals := segmentNormals(pl)
	last := len(pl) - 1

	right := make([]PlanarPoint, 0, len(pl)+2)
	left := make([]PlanarPoint, 0, len(pl)+2)
	for i, p := range pl {
		switch i {
		case 0:
			n := normals[0].scale(distanceM)
			right = append(right, p.sub(n))
			left = append(left, p.add(n))
		case last:
			n := normals[last-1].scale(distanceM)
			right = append(right, p.sub(n))
			left = append(left, p.add(n))
		default:
			r, l := joinOffsets(p, normals[i-1], normals[i], distanceM, opts.Join, caps)
			right = append(right, r...)
			left = append(left, l...)
		}
	}

	ring := make([]PlanarPoint, 0, len(right)+len(left)+2*caps)
	ring = append(ring, right...)
	ring = appendCap(ring, pl[last], distanceM,
		right[len(right)-1].sub(pl[last]).angle(),
		left[len(left)-1].sub(pl[last]).angle(), caps)
	for i := len(left) - 1; i >= 0; i-- {
		ring = append(ring, left[i])
	}
	ring = appendCap(ring, pl[0], distanceM,
		left[0].sub(pl[0]).angle(),
		right[0].sub(pl[0]).angle(), caps)

	return proj.InverseAll(ring), nil
}

// segmentNormals returns the unit left-hand normal (-dy, dx)/len of every
// segment. Degenerate segments reuse the previous normal, and (0, 1) when
// the very first segment is degenerate.
func segmentNormals(pl []PlanarPoint) []PlanarPoint {
	normals := make([]PlanarPoint, len(pl)-1)
	prev := PlanarPoint{X: 0, Y: 1}
	for i := 0; i < len(pl)-1; i++ {
		d := pl[i+1].sub(pl[i])
		l := d.length()
		if l < minSegmentLength {
			normals[i] = prev
			continue
		}
		normals[i] = PlanarPoint{X: -d.Y / l, Y: d.X / l}
		prev = normals[i]
	}
	return normals
}

// joinOffsets returns the right-side and left-side offset points for an
// interior vertex, both in forward (first-to-last) order.
func joinOffsets(p, n1, n2 PlanarPoint, d float64, join JoinStyle, caps int) (right, left []PlanarPoint) {
	bisector, scale := miterBisector(n1, n2, d)
	miterRight := p.sub(bisector.scale(scale))
	miterLeft := p.add(bisector.scale(scale))

	turn := n1.cross(n2)
	if join == JoinMiter || math.Abs(turn) < 1e-12 {
		return []PlanarPoint{miterRight}, []PlanarPoint{miterLeft}
	}

	// The outer side of a left turn is the right side, and vice versa.
	if turn > 0 {
		outer := outerJoin(p, n1.scale(-1), n2.scale(-1), d, join, caps)
		return outer, []PlanarPoint{miterLeft}
	}
	outer := outerJoin(p, n1, n2, d, join, caps)
	return []PlanarPoint{miterRight}, outer
}

// miterBisector averages two unit normals and returns the bisector together
// with the offset length that keeps the perpendicular distance at d.
func miterBisector(n1, n2 PlanarPoint, d float64) (PlanarPoint, float64) {
	sum := n1.add(n2)
	l := sum.length()
	if l < 1e-12 {
		// Full reversal: no bisector exists, fall back to the incoming normal.
		return n1, d
	}
	bisector := sum.scale(1 / l)
	maxScale := miterClampFactor * d
	halfCos := math.Sqrt((n1.dot(n2) + 1) / 2)
	if halfCos < 1e-12 {
		return bisector, maxScale
	}
	return bisector, math.Min(d/halfCos, maxScale)
}

// outerJoin emits the points on the outside of a turn from direction a to
// direction b (unit vectors from the vertex toward each offset edge).
func outerJoin(p, a, b PlanarPoint, d float64, join JoinStyle, caps int) []PlanarPoint {
	start := p.add(a.scale(d))
	end := p.add(b.scale(d))
	if join == JoinBevel {
		return []PlanarPoint{start, end}
	}
	sweep := math.Atan2(a.cross(b), a.dot(b))
	segments := int(math.Round(float64(caps) * math.Abs(sweep) / math.Pi))
	if segments < 1 {
		segments = 1
	}
	out := make([]PlanarPoint, 0, segments+1)
	out = append(out, start)
	base := a.angle()
	for k := 1; k < segments; k++ {
		out = append(out, polar(p, d, base+sweep*float64(k)/float64(segments)))
	}
	return append(out, end)
}

// appendCap appends the interior points of a counter-clockwise arc around
// center from angle from to angle to. The arc endpoints are already part of
// the ring as side offsets.
func appendCap(ring []PlanarPoint, center PlanarPoint, r, from, to float64, caps int) []PlanarPoint {
	sweep := normalizeAngle(to - from)
	segments := int(math.Round(float64(caps) * sweep / math.Pi))
	if segments < 2 {
		segments = 2
	}
	for k := 1; k < segments; k++ {
		ring = append(ring, polar(center, r, from+sweep*float64(k)/float64(segments)))
	}
	return ring
}

// normalizeAngle maps a to [0, 2*pi).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// circle returns n points evenly spaced on a full circle.
func circle(center PlanarPoint, r float64, n int) []PlanarPoint {
	out := make([]PlanarPoint, n)
	for k := range out {
		out[k] = polar(center, r, 2*math.Pi*float64(k)/float64(n))
	}
	return out
}
