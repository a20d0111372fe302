// Package route reads flight routes and their zone settings from YAML or
// JSON documents.
package route

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-polyline"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/flightzone/internal/geo"
)

// ErrNoRoute is returned when a document has neither route points nor an
// encoded polyline.
var ErrNoRoute = eris.New("route: document has no route")

// Document is a single route file. Route and Polyline are alternatives;
// when both are set the explicit points win.
type Document struct {
	Name         string            `yaml:"name" json:"name,omitempty"`
	Route        []geo.GeoPoint    `yaml:"route" json:"route,omitempty"`
	Polyline     string            `yaml:"polyline" json:"polyline,omitempty"`
	ZoneSettings *geo.ZoneSettings `yaml:"zone_settings" json:"zone_settings,omitempty"`
}

// Points returns the document's route, decoding the polyline if needed.
func (d Document) Points() ([]geo.GeoPoint, error) {
	if len(d.Route) > 0 {
		return d.Route, nil
	}
	if strings.TrimSpace(d.Polyline) == "" {
		return nil, ErrNoRoute
	}
	return DecodePolyline(d.Polyline)
}

// Settings returns the document's zone settings, or defaults when the
// document carries none.
func (d Document) Settings(defaults geo.ZoneSettings) geo.ZoneSettings {
	if d.ZoneSettings == nil {
		return defaults
	}
	return *d.ZoneSettings
}

// Parse decodes a single route document. JSON input is accepted as YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "route: parse")
	}
	if _, err := doc.Points(); err != nil {
		return nil, err
	}
	if doc.ZoneSettings != nil {
		if err := doc.ZoneSettings.Validate(); err != nil {
			return nil, eris.Wrap(err, "route: zone_settings")
		}
	}
	return &doc, nil
}

// ParseAll decodes either a single document or a `missions:` list of them.
func ParseAll(data []byte) ([]Document, error) {
	var batch struct {
		Missions []Document `yaml:"missions"`
	}
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, eris.Wrap(err, "route: parse")
	}
	if len(batch.Missions) == 0 {
		doc, err := Parse(data)
		if err != nil {
			return nil, err
		}
		return []Document{*doc}, nil
	}
	for i, doc := range batch.Missions {
		if _, err := doc.Points(); err != nil {
			return nil, eris.Wrapf(err, "route: missions[%d]", i)
		}
		if doc.ZoneSettings != nil {
			if err := doc.ZoneSettings.Validate(); err != nil {
				return nil, eris.Wrapf(err, "route: missions[%d].zone_settings", i)
			}
		}
	}
	return batch.Missions, nil
}

// Load reads and parses the route document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "route: read %s", path)
	}
	return Parse(data)
}

// LoadAll reads and parses every document in the file at path.
func LoadAll(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "route: read %s", path)
	}
	return ParseAll(data)
}

// DecodePolyline decodes a Google encoded polyline (precision 5).
func DecodePolyline(encoded string) ([]geo.GeoPoint, error) {
	coords, _, err := polyline.DecodeCoords([]byte(strings.TrimSpace(encoded)))
	if err != nil {
		return nil, eris.Wrap(err, "route: decode polyline")
	}
	points := make([]geo.GeoPoint, 0, len(coords))
	for _, c := range coords {
		points = append(points, geo.GeoPoint{Lat: c[0], Lng: c[1]})
	}
	return points, nil
}

// EncodePolyline encodes points as a Google encoded polyline.
func EncodePolyline(points []geo.GeoPoint) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}
