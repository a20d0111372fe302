package render

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/flightzone/internal/geo"
)

// Shapefile attribute columns, in field order.
var shapeFields = []shp.Field{
	shp.StringField("LABEL", 32),
	shp.StringField("NAME", 64),
	shp.FloatField("DIST_M", 14, 2),
	shp.FloatField("AREA_M2", 18, 1),
	shp.FloatField("PERIM_M", 14, 1),
}

// WriteShapefile writes zones as a polygon shapefile at path (the .shp,
// .shx and .dbf siblings are created alongside). Degenerate zones are
// skipped and logged.
func WriteShapefile(path string, zones []geo.Zone) (int, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".shp") {
		path += ".shp"
	}
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return 0, eris.Wrapf(err, "render: create shapefile %s", path)
	}
	written, err := writeShapes(w, zones)
	w.Close()
	if err != nil {
		return written, err
	}

	// go-shp v0.1.1 names the attribute table "<base>dbf".
	base := path[:len(path)-len(".shp")]
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return written, eris.Wrap(err, "render: rename shapefile dbf")
	}
	return written, nil
}

func writeShapes(w *shp.Writer, zones []geo.Zone) (int, error) {
	if err := w.SetFields(shapeFields); err != nil {
		return 0, eris.Wrap(err, "render: shapefile fields")
	}

	var written int
	for _, z := range zones {
		if len(z.Polygon) < 3 {
			zap.L().Debug("render: skipping degenerate zone in shapefile",
				zap.String("zone", z.Label.String()),
				zap.Int("vertices", len(z.Polygon)),
			)
			continue
		}
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{shapeRing(z.Polygon)}))
		row := int(w.Write(&poly))

		m := Metrics(z)
		for i, v := range []any{z.Label.String(), z.Label.DisplayName(), z.CumulativeDistanceM, m.AreaM2, m.PerimeterM} {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return written, eris.Wrapf(err, "render: shapefile attribute %s", shapeFields[i].String())
			}
		}
		written++
	}
	return written, nil
}

// ReadShapefile reads polygon rings and their LABEL attribute back from a
// shapefile. Records without a polygon are skipped.
func ReadShapefile(path string) ([][]geo.GeoPoint, []string, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "render: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	labelIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "LABEL") || (strings.EqualFold(name, "NAME") && labelIdx < 0) {
			labelIdx = i
		}
	}

	var (
		rings  [][]geo.GeoPoint
		labels []string
	)
	for reader.Next() {
		n, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 {
			continue
		}
		end := int32(len(poly.Points))
		if poly.NumParts > 1 {
			end = poly.Parts[1]
		}
		ring := make([]geo.GeoPoint, 0, end)
		for _, p := range poly.Points[poly.Parts[0]:end] {
			ring = append(ring, geo.GeoPoint{Lat: p.Y, Lng: p.X})
		}
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		rings = append(rings, ring)

		label := ""
		if labelIdx >= 0 {
			label = strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(n, labelIdx), "\x00"))
		}
		labels = append(labels, label)
	}
	return rings, labels, nil
}

// shapeRing returns a closed, clockwise outer ring as shapefiles require.
func shapeRing(ring []geo.GeoPoint) []shp.Point {
	coords := closedRing(ring)
	pts := make([]shp.Point, len(coords))
	for i, c := range coords {
		pts[i] = shp.Point{X: c[0], Y: c[1]}
	}

	var area2 float64
	for i := 0; i < len(pts)-1; i++ {
		area2 += pts[i].X*pts[i+1].Y - pts[i+1].X*pts[i].Y
	}
	if area2 > 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}
