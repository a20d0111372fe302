package render

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/flightzone/internal/geo"
)

// GeoJSONRenderer collects zones as GeoJSON features. Styles are written
// as simplestyle properties.
type GeoJSONRenderer struct {
	features []*geojson.Feature
}

// NewGeoJSONRenderer returns an empty GeoJSON renderer.
func NewGeoJSONRenderer() *GeoJSONRenderer {
	return &GeoJSONRenderer{}
}

// Draw appends zone as a Polygon feature.
func (r *GeoJSONRenderer) Draw(zone geo.Zone, style Style) error {
	poly, err := Polygon(zone)
	if err != nil {
		return err
	}
	m := Metrics(zone)
	r.features = append(r.features, &geojson.Feature{
		ID:       zone.Label.String(),
		Geometry: poly,
		Properties: map[string]any{
			"label":                 zone.Label.String(),
			"name":                  zone.Label.DisplayName(),
			"cumulative_distance_m": zone.CumulativeDistanceM,
			"area_m2":               m.AreaM2,
			"perimeter_m":           m.PerimeterM,
			"fill":                  hexColor(style.Fill)[:7],
			"fill-opacity":          float64(style.Fill.A) / 255,
			"stroke":                hexColor(style.Stroke)[:7],
			"stroke-opacity":        float64(style.Stroke.A) / 255,
			"stroke-width":          style.StrokeWidth,
		},
	})
	return nil
}

// Features returns the features drawn so far.
func (r *GeoJSONRenderer) Features() []*geojson.Feature {
	return r.features
}

// FeatureCollection returns the drawn zones as a feature collection.
func (r *GeoJSONRenderer) FeatureCollection() *geojson.FeatureCollection {
	return &geojson.FeatureCollection{Features: r.features}
}

// WriteTo writes the feature collection as JSON.
func (r *GeoJSONRenderer) WriteTo(w io.Writer) (int64, error) {
	data, err := json.Marshal(r.FeatureCollection())
	if err != nil {
		return 0, eris.Wrap(err, "render: marshal geojson")
	}
	n, err := w.Write(data)
	return int64(n), eris.Wrap(err, "render: write geojson")
}
