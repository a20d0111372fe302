package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsPoint(set []GeoPoint, p GeoPoint) bool {
	for _, q := range set {
		if q == p {
			return true
		}
	}
	return false
}

// insideOrOnHull checks p against every edge of a ring that is CCW in the
// (lat, lng) frame.
func insideOrOnHull(p GeoPoint, hull []GeoPoint) bool {
	for i := range hull {
		if hullCross(hull[i], hull[(i+1)%len(hull)], p) < -1e-15 {
			return false
		}
	}
	return true
}

func TestConvexHull_Square(t *testing.T) {
	points := []GeoPoint{
		{Lat: 0.5, Lng: 0.5},
		{Lat: 0, Lng: 1},
		{Lat: 1, Lng: 1},
		{Lat: 0, Lng: 0},
		{Lat: 0.2, Lng: 0.7},
		{Lat: 1, Lng: 0},
	}
	hull := ConvexHull(points)

	assert.Equal(t, []GeoPoint{
		{Lat: 0, Lng: 0},
		{Lat: 1, Lng: 0},
		{Lat: 1, Lng: 1},
		{Lat: 0, Lng: 1},
	}, hull)
	assert.True(t, IsCCWHull(hull))
}

func TestConvexHull_Properties(t *testing.T) {
	points := []GeoPoint{
		{Lat: 59.900, Lng: 10.700},
		{Lat: 59.905, Lng: 10.712},
		{Lat: 59.912, Lng: 10.705},
		{Lat: 59.903, Lng: 10.690},
		{Lat: 59.907, Lng: 10.701},
		{Lat: 59.899, Lng: 10.708},
		{Lat: 59.915, Lng: 10.695},
		{Lat: 59.906, Lng: 10.704},
	}
	hull := ConvexHull(points)
	require.GreaterOrEqual(t, len(hull), 3)
	assert.True(t, IsCCWHull(hull))
	for _, h := range hull {
		assert.True(t, containsPoint(points, h), "hull vertex %v not in input", h)
	}
	for _, p := range points {
		assert.True(t, insideOrOnHull(p, hull), "point %v outside hull", p)
	}

	assert.Equal(t, hull, ConvexHull(points))
}

func TestConvexHull_Small(t *testing.T) {
	tests := []struct {
		name   string
		points []GeoPoint
	}{
		{"empty", nil},
		{"one", []GeoPoint{{Lat: 1, Lng: 2}}},
		{"two", []GeoPoint{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.points, ConvexHull(tt.points))
		})
	}
}

func TestConvexHull_ClosedRouteDropsDuplicate(t *testing.T) {
	route := []GeoPoint{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 0},
	}
	hull := ConvexHull(route)
	assert.Len(t, hull, 4)
}

func TestConvexHull_Collinear(t *testing.T) {
	hull := ConvexHull([]GeoPoint{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}})
	assert.Equal(t, []GeoPoint{{Lat: 0, Lng: 0}, {Lat: 2, Lng: 2}}, hull)
}

func TestConvexHull_DoesNotMutateInput(t *testing.T) {
	points := []GeoPoint{{Lat: 1, Lng: 1}, {Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 0, Lng: 1}}
	orig := append([]GeoPoint(nil), points...)
	_ = ConvexHull(points)
	assert.Equal(t, orig, points)
}
