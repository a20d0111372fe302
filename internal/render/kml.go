package render

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-kml"

	"github.com/sells-group/flightzone/internal/geo"
)

// KMLRenderer collects zones as KML placemarks with shared styles.
type KMLRenderer struct {
	name       string
	styles     []kml.Element
	placemarks []kml.Element
	seen       map[geo.ZoneLabel]bool
}

// NewKMLRenderer returns a renderer whose document is titled name.
func NewKMLRenderer(name string) *KMLRenderer {
	return &KMLRenderer{name: name, seen: make(map[geo.ZoneLabel]bool)}
}

// Draw appends zone as a polygon placemark. The first style drawn for a
// label becomes that label's shared style.
func (r *KMLRenderer) Draw(zone geo.Zone, style Style) error {
	if len(zone.Polygon) < 3 {
		return eris.Wrapf(geo.ErrDegenerateGeometry, "render: %s has %d vertices", zone.Label, len(zone.Polygon))
	}
	styleID := zone.Label.String()
	if !r.seen[zone.Label] {
		r.seen[zone.Label] = true
		r.styles = append(r.styles, kml.SharedStyle(styleID,
			kml.LineStyle(kml.Color(style.Stroke), kml.Width(style.StrokeWidth)),
			kml.PolyStyle(kml.Color(style.Fill)),
		))
	}

	coords := make([]kml.Coordinate, 0, len(zone.Polygon)+1)
	for _, c := range closedRing(zone.Polygon) {
		coords = append(coords, kml.Coordinate{Lon: c[0], Lat: c[1]})
	}
	r.placemarks = append(r.placemarks, kml.Placemark(
		kml.Name(zone.Label.DisplayName()),
		kml.Description(describe(zone)),
		kml.StyleURL("#"+styleID),
		kml.Polygon(
			kml.OuterBoundaryIs(kml.LinearRing(kml.Coordinates(coords...))),
		),
	))
	return nil
}

// WriteTo writes the KML document.
func (r *KMLRenderer) WriteTo(w io.Writer) (int64, error) {
	children := []kml.Element{kml.Name(r.name)}
	children = append(children, r.styles...)
	children = append(children, r.placemarks...)
	cw := &countingWriter{w: w}
	if err := kml.KML(kml.Document(children...)).WriteIndent(cw, "", "  "); err != nil {
		return cw.n, eris.Wrap(err, "render: write kml")
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
