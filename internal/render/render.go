// Package render turns composed zones into drawable and exportable forms:
// GeoJSON, KML, WKT, encoded polylines, EWKB, shapefiles and spreadsheet
// reports.
package render

import (
	"image/color"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/flightzone/internal/geo"
)

// SRID is the spatial reference of every exported geometry (WGS84).
const SRID = 4326

// Style is the fill and stroke a renderer uses for one zone.
type Style struct {
	Fill        color.RGBA `json:"fill"`
	Stroke      color.RGBA `json:"stroke"`
	StrokeWidth float64    `json:"stroke_width"`
}

// DefaultStyles returns one style per zone label: a faint red ground risk
// buffer, an amber contingency area and a green flight geography.
func DefaultStyles() map[geo.ZoneLabel]Style {
	return map[geo.ZoneLabel]Style{
		geo.GroundRiskBuffer: {
			Fill:        color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0x33},
			Stroke:      color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff},
			StrokeWidth: 1,
		},
		geo.Contingency: {
			Fill:        color.RGBA{R: 0xff, G: 0xa0, B: 0x00, A: 0x4d},
			Stroke:      color.RGBA{R: 0xff, G: 0xa0, B: 0x00, A: 0xff},
			StrokeWidth: 1.5,
		},
		geo.FlightGeography: {
			Fill:        color.RGBA{R: 0x38, G: 0x8e, B: 0x3c, A: 0x66},
			Stroke:      color.RGBA{R: 0x1b, G: 0x5e, B: 0x20, A: 0xff},
			StrokeWidth: 2,
		},
	}
}

// Renderer draws one zone at a time.
type Renderer interface {
	Draw(zone geo.Zone, style Style) error
}

// RenderAll draws zones in slice order, so the outer-to-inner output of
// geo.Compose layers the flight geography on top. Zones without a style
// entry use the zero Style.
func RenderAll(r Renderer, zones []geo.Zone, styles map[geo.ZoneLabel]Style) error {
	for _, z := range zones {
		if err := r.Draw(z, styles[z.Label]); err != nil {
			return eris.Wrapf(err, "render: draw %s", z.Label)
		}
	}
	return nil
}

// ZoneMetrics summarizes a zone for reports.
type ZoneMetrics struct {
	Label               geo.ZoneLabel `json:"label"`
	CumulativeDistanceM float64       `json:"cumulative_distance_m"`
	Vertices            int           `json:"vertices"`
	AreaM2              float64       `json:"area_m2"`
	PerimeterM          float64       `json:"perimeter_m"`
}

// Metrics returns planar area and perimeter of zone in meters.
func Metrics(zone geo.Zone) ZoneMetrics {
	return ZoneMetrics{
		Label:               zone.Label,
		CumulativeDistanceM: zone.CumulativeDistanceM,
		Vertices:            len(zone.Polygon),
		AreaM2:              geo.PlanarArea(zone.Polygon),
		PerimeterM:          geo.Perimeter(zone.Polygon),
	}
}

// Polygon converts a zone to a closed go-geom polygon in (lng, lat) order.
func Polygon(zone geo.Zone) (*geom.Polygon, error) {
	if len(zone.Polygon) < 3 {
		return nil, eris.Wrapf(geo.ErrDegenerateGeometry, "render: %s has %d vertices", zone.Label, len(zone.Polygon))
	}
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{closedRing(zone.Polygon)})
	if err != nil {
		return nil, eris.Wrapf(err, "render: build %s polygon", zone.Label)
	}
	return poly.SetSRID(SRID), nil
}

func closedRing(ring []geo.GeoPoint) []geom.Coord {
	coords := make([]geom.Coord, 0, len(ring)+1)
	for _, p := range ring {
		coords = append(coords, geom.Coord{p.Lng, p.Lat})
	}
	if ring[0] != ring[len(ring)-1] {
		coords = append(coords, geom.Coord{ring[0].Lng, ring[0].Lat})
	}
	return coords
}

// Rings returns the outer rings of a Polygon or MultiPolygon as geo points.
// Holes are ignored and other geometry types yield nil.
func Rings(g geom.T) [][]geo.GeoPoint {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		return [][]geo.GeoPoint{pointsFromCoords(t.LinearRing(0).Coords())}
	case *geom.MultiPolygon:
		var rings [][]geo.GeoPoint
		for i := 0; i < t.NumPolygons(); i++ {
			rings = append(rings, Rings(t.Polygon(i))...)
		}
		return rings
	}
	return nil
}

// pointsFromCoords converts an (lng, lat) ring back to geo points, dropping
// the closing vertex.
func pointsFromCoords(coords []geom.Coord) []geo.GeoPoint {
	if n := len(coords); n > 1 && coords[0].Equal(geom.XY, coords[n-1]) {
		coords = coords[:n-1]
	}
	pts := make([]geo.GeoPoint, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, geo.GeoPoint{Lat: c.Y(), Lng: c.X()})
	}
	return pts
}

// hexColor formats c as #rrggbbaa.
func hexColor(c color.RGBA) string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B, c.A} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0f]
	}
	return string(b)
}
