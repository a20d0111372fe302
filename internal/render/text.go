package render

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkt"
	"github.com/twpayne/go-polyline"

	"github.com/sells-group/flightzone/internal/geo"
)

// Line is one zone rendered as a single line of text.
type Line struct {
	Label geo.ZoneLabel `json:"label"`
	Text  string        `json:"text"`
}

// lineRenderer renders each zone to a string with encode.
type lineRenderer struct {
	encode func(geo.Zone) (string, error)
	lines  []Line
}

func (r *lineRenderer) Draw(zone geo.Zone, _ Style) error {
	text, err := r.encode(zone)
	if err != nil {
		return err
	}
	r.lines = append(r.lines, Line{Label: zone.Label, Text: text})
	return nil
}

// Lines returns the rendered lines in draw order.
func (r *lineRenderer) Lines() []Line {
	return r.lines
}

// WriteTo writes "label<TAB>text" lines.
func (r *lineRenderer) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, l := range r.lines {
		fmt.Fprintf(&b, "%s\t%s\n", l.Label, l.Text)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), eris.Wrap(err, "render: write lines")
}

// WKTRenderer renders zones as WKT polygons.
type WKTRenderer struct{ lineRenderer }

// NewWKTRenderer returns an empty WKT renderer.
func NewWKTRenderer() *WKTRenderer {
	return &WKTRenderer{lineRenderer{encode: EncodeWKT}}
}

// PolylineRenderer renders zone outlines as Google encoded polylines, the
// format most web map SDKs accept directly.
type PolylineRenderer struct{ lineRenderer }

// NewPolylineRenderer returns an empty polyline renderer.
func NewPolylineRenderer() *PolylineRenderer {
	return &PolylineRenderer{lineRenderer{encode: EncodePolyline}}
}

// EWKBRenderer renders zones as hex EWKB polygons with SRID 4326, ready
// for PostGIS.
type EWKBRenderer struct{ lineRenderer }

// NewEWKBRenderer returns an empty EWKB renderer.
func NewEWKBRenderer() *EWKBRenderer {
	return &EWKBRenderer{lineRenderer{encode: func(z geo.Zone) (string, error) {
		data, err := EncodeEWKB(z)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(data), nil
	}}}
}

// EncodeWKT returns zone as a WKT POLYGON.
func EncodeWKT(zone geo.Zone) (string, error) {
	poly, err := Polygon(zone)
	if err != nil {
		return "", err
	}
	s, err := wkt.Marshal(poly)
	if err != nil {
		return "", eris.Wrap(err, "render: encode wkt")
	}
	return s, nil
}

// EncodePolyline returns the closed outline of zone as an encoded polyline.
func EncodePolyline(zone geo.Zone) (string, error) {
	if len(zone.Polygon) < 3 {
		return "", eris.Wrapf(geo.ErrDegenerateGeometry, "render: %s has %d vertices", zone.Label, len(zone.Polygon))
	}
	ring := closedRing(zone.Polygon)
	coords := make([][]float64, 0, len(ring))
	for _, c := range ring {
		coords = append(coords, []float64{c[1], c[0]})
	}
	return string(polyline.EncodeCoords(coords)), nil
}

// EncodeEWKB returns zone as little-endian EWKB with SRID 4326.
func EncodeEWKB(zone geo.Zone) ([]byte, error) {
	poly, err := Polygon(zone)
	if err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(poly, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "render: encode ewkb")
	}
	return data, nil
}

// DecodeEWKB parses an EWKB Polygon or MultiPolygon into its outer rings.
func DecodeEWKB(data []byte) ([][]geo.GeoPoint, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "render: decode ewkb")
	}
	rings := Rings(g)
	if len(rings) == 0 {
		return nil, eris.Wrapf(geo.ErrUnsupportedShape, "render: ewkb %T has no polygon rings", g)
	}
	return rings, nil
}

func describe(zone geo.Zone) string {
	m := Metrics(zone)
	return fmt.Sprintf("%s: %.0f m buffer, %.0f m² area, %.0f m perimeter",
		zone.Label.DisplayName(), zone.CumulativeDistanceM, m.AreaM2, m.PerimeterM)
}
