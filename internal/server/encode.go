package server

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/render"
)

// Response formats for zone endpoints.
const (
	FormatGeoJSON  = "geojson"
	FormatKML      = "kml"
	FormatWKT      = "wkt"
	FormatPolyline = "polyline"
	FormatEWKB     = "ewkb"
)

func parseFormat(s string) (string, error) {
	switch s {
	case "":
		return FormatGeoJSON, nil
	case FormatGeoJSON, FormatKML, FormatWKT, FormatPolyline, FormatEWKB:
		return s, nil
	}
	return "", eris.Errorf("unknown format %q", s)
}

type skipJSON struct {
	Label  geo.ZoneLabel `json:"label"`
	Reason string        `json:"reason"`
}

type featureResponse struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
	Mode     geo.BufferMode     `json:"mode"`
	Skipped  []skipJSON         `json:"skipped"`
}

type lineResponse struct {
	Format  string         `json:"format"`
	Mode    geo.BufferMode `json:"mode"`
	Zones   []render.Line  `json:"zones"`
	Skipped []skipJSON     `json:"skipped"`
}

func skips(res geo.Result) []skipJSON {
	out := make([]skipJSON, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		reason := ""
		if s.Reason != nil {
			reason = s.Reason.Error()
		}
		out = append(out, skipJSON{Label: s.Label, Reason: reason})
	}
	return out
}

// encodeZones renders res in format and returns the body and content type.
func encodeZones(format, name string, res geo.Result) ([]byte, string, error) {
	styles := render.DefaultStyles()

	switch format {
	case FormatKML:
		if name == "" {
			name = "zones"
		}
		kr := render.NewKMLRenderer(name)
		if err := render.RenderAll(kr, res.Zones, styles); err != nil {
			return nil, "", err
		}
		var buf bytes.Buffer
		if _, err := kr.WriteTo(&buf); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/vnd.google-earth.kml+xml", nil

	case FormatWKT, FormatPolyline, FormatEWKB:
		var lines interface {
			render.Renderer
			Lines() []render.Line
		}
		switch format {
		case FormatWKT:
			lines = render.NewWKTRenderer()
		case FormatPolyline:
			lines = render.NewPolylineRenderer()
		default:
			lines = render.NewEWKBRenderer()
		}
		if err := render.RenderAll(lines, res.Zones, styles); err != nil {
			return nil, "", err
		}
		zones := lines.Lines()
		if zones == nil {
			zones = []render.Line{}
		}
		body, err := json.Marshal(lineResponse{Format: format, Mode: res.Mode, Zones: zones, Skipped: skips(res)})
		if err != nil {
			return nil, "", eris.Wrap(err, "server: marshal zones")
		}
		return body, "application/json", nil
	}

	gr := render.NewGeoJSONRenderer()
	if err := render.RenderAll(gr, res.Zones, styles); err != nil {
		return nil, "", err
	}
	features := gr.Features()
	if features == nil {
		features = []*geojson.Feature{}
	}
	body, err := json.Marshal(featureResponse{
		Type:     "FeatureCollection",
		Features: features,
		Mode:     res.Mode,
		Skipped:  skips(res),
	})
	if err != nil {
		return nil, "", eris.Wrap(err, "server: marshal zones")
	}
	return body, "application/geo+json", nil
}
