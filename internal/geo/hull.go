package geo

import (
	"math"
	"sort"
)

// ConvexHull returns the convex hull of points using a Graham scan.
//
// The pivot is the point with the smallest latitude (ties: smallest
// longitude) and the remaining points are ordered by
// atan2(lng-p0.lng, lat-p0.lat), i.e. the angle is measured from the
// latitude axis. The result is counter-clockwise in that (lat, lng) axis
// order, which is clockwise on a north-up map; BufferPolygon re-orients by
// signed area so either winding is accepted downstream.
//
// Fewer than three points are returned unchanged. Non-finite points and exact
// duplicates are dropped before the scan.
func ConvexHull(points []GeoPoint) []GeoPoint {
	if len(points) < 3 {
		return points
	}

	pts := uniqueFinite(points)
	if len(pts) < 3 {
		return pts
	}

	pivot := 0
	for i, p := range pts {
		if p.Lat < pts[pivot].Lat || (p.Lat == pts[pivot].Lat && p.Lng < pts[pivot].Lng) {
			pivot = i
		}
	}
	p0 := pts[pivot]

	rest := make([]GeoPoint, 0, len(pts)-1)
	rest = append(rest, pts[:pivot]...)
	rest = append(rest, pts[pivot+1:]...)

	sort.SliceStable(rest, func(i, j int) bool {
		ai := hullAngle(p0, rest[i])
		aj := hullAngle(p0, rest[j])
		if ai != aj {
			return ai < aj
		}
		return hullDist2(p0, rest[i]) < hullDist2(p0, rest[j])
	})

	stack := make([]GeoPoint, 0, len(pts))
	stack = append(stack, p0)
	for _, p := range rest {
		for len(stack) >= 2 && hullCross(stack[len(stack)-2], stack[len(stack)-1], p) <= 0 {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, p)
	}
	return stack
}

// hullCross is the z component of (a-o) x (b-o) with lat as the first axis
// and lng as the second. Positive means b is a left turn from o->a.
func hullCross(o, a, b GeoPoint) float64 {
	return (a.Lat-o.Lat)*(b.Lng-o.Lng) - (a.Lng-o.Lng)*(b.Lat-o.Lat)
}

func hullAngle(p0, p GeoPoint) float64 {
	return math.Atan2(p.Lng-p0.Lng, p.Lat-p0.Lat)
}

func hullDist2(p0, p GeoPoint) float64 {
	dl, dg := p.Lat-p0.Lat, p.Lng-p0.Lng
	return dl*dl + dg*dg
}

// IsCCWHull reports whether ring turns left at every vertex in the (lat, lng)
// frame ConvexHull uses. Collinear vertices count as left turns.
func IsCCWHull(ring []GeoPoint) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	for i := range ring {
		if hullCross(ring[i], ring[(i+1)%n], ring[(i+2)%n]) < 0 {
			return false
		}
	}
	return true
}

// uniqueFinite drops non-finite points and exact duplicates while keeping
// first-seen order.
func uniqueFinite(points []GeoPoint) []GeoPoint {
	seen := make(map[GeoPoint]struct{}, len(points))
	out := make([]GeoPoint, 0, len(points))
	for _, p := range points {
		if !p.IsFinite() {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
