package geo

import "math"

// PlanarArea returns the absolute area of a ring in square meters on the
// ring's own tangent plane. Rings with fewer than three finite points have
// zero area.
func PlanarArea(ring []GeoPoint) float64 {
	if len(ring) < 3 {
		return 0
	}
	pl, _, err := Project(ring, ring[0])
	if err != nil {
		return 0
	}
	return math.Abs(signedArea(pl))
}

// Perimeter returns the closed-ring length of ring in meters.
func Perimeter(ring []GeoPoint) float64 {
	if len(ring) < 2 {
		return 0
	}
	pl, _, err := Project(ring, ring[0])
	if err != nil {
		return 0
	}
	var sum float64
	for i := range pl {
		sum += pl[(i+1)%len(pl)].sub(pl[i]).length()
	}
	return sum
}

// PathLength returns the open-polyline length of points in meters.
func PathLength(points []GeoPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	pl, _, err := Project(points, points[0])
	if err != nil {
		return 0
	}
	var sum float64
	for i := 1; i < len(pl); i++ {
		sum += pl[i].sub(pl[i-1]).length()
	}
	return sum
}

// DistanceToPolyline returns the planar distance in meters from p to the
// nearest point of the open polyline line.
func DistanceToPolyline(p GeoPoint, line []GeoPoint) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	all := append([]GeoPoint{p}, line...)
	pl, _, err := Project(all, line[0])
	if err != nil {
		return math.NaN()
	}
	q := pl[0]
	if len(pl) == 2 {
		return q.sub(pl[1]).length()
	}
	best := math.Inf(1)
	for i := 1; i < len(pl)-1; i++ {
		best = math.Min(best, segmentDistance(q, pl[i], pl[i+1]))
	}
	return best
}

func segmentDistance(q, a, b PlanarPoint) float64 {
	ab := b.sub(a)
	l2 := ab.dot(ab)
	if l2 == 0 {
		return q.sub(a).length()
	}
	t := math.Max(0, math.Min(1, q.sub(a).dot(ab)/l2))
	return q.sub(a.add(ab.scale(t))).length()
}

// PointInPolygon reports whether p lies inside ring using an even-odd ray
// cast in degree space. Points exactly on an edge may fall either way.
func PointInPolygon(p GeoPoint, ring []GeoPoint) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
			if p.Lng < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PolygonsIntersect reports whether two rings overlap: an edge of one
// crosses an edge of the other, or one ring lies entirely inside the other.
func PolygonsIntersect(a, b []GeoPoint) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	for i := range a {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := range b {
			if segmentsIntersect(a1, a2, b[j], b[(j+1)%len(b)]) {
				return true
			}
		}
	}
	return PointInPolygon(a[0], b) || PointInPolygon(b[0], a)
}

func segmentsIntersect(p1, p2, q1, q2 GeoPoint) bool {
	d1 := hullCross(q1, q2, p1)
	d2 := hullCross(q1, q2, p2)
	d3 := hullCross(p1, p2, q1)
	d4 := hullCross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func onSegment(a, b, p GeoPoint) bool {
	return math.Min(a.Lat, b.Lat) <= p.Lat && p.Lat <= math.Max(a.Lat, b.Lat) &&
		math.Min(a.Lng, b.Lng) <= p.Lng && p.Lng <= math.Max(a.Lng, b.Lng)
}
