// Package airspace loads third-party airspace restriction polygons and
// checks composed zones against them.
package airspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/render"
)

// Restriction is a named no-fly or restricted area.
type Restriction struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Kind    string         `json:"kind,omitempty"`
	Polygon []geo.GeoPoint `json:"polygon"`
}

// Conflict reports a restriction that overlaps one or more zones.
type Conflict struct {
	Restriction Restriction     `json:"restriction"`
	Zones       []geo.ZoneLabel `json:"zones"`
	// Innermost is the most critical zone the restriction reaches.
	Innermost geo.ZoneLabel `json:"innermost"`
}

// Conflicts returns every restriction that intersects at least one zone,
// in restriction order.
func Conflicts(zones []geo.Zone, restrictions []Restriction) []Conflict {
	var out []Conflict
	for _, r := range restrictions {
		var hit []geo.ZoneLabel
		for _, z := range zones {
			if geo.PolygonsIntersect(z.Polygon, r.Polygon) {
				hit = append(hit, z.Label)
			}
		}
		if len(hit) == 0 {
			continue
		}
		sort.Slice(hit, func(i, j int) bool { return hit[i] < hit[j] })
		out = append(out, Conflict{Restriction: r, Zones: hit, Innermost: hit[0]})
	}
	return out
}

// DecodeGeoJSON parses a FeatureCollection of restriction polygons. Each
// member of a MultiPolygon becomes its own restriction. Features without
// polygon geometry are skipped.
func DecodeGeoJSON(data []byte) ([]Restriction, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "airspace: decode geojson")
	}

	var out []Restriction
	for i, f := range fc.Features {
		rings := render.Rings(f.Geometry)
		if len(rings) == 0 {
			zap.L().Debug("airspace: skipping feature without polygon", zap.Int("index", i))
			continue
		}
		id := f.ID
		if id == "" {
			id = stringProp(f.Properties, "id")
		}
		if id == "" {
			id = fmt.Sprintf("feature-%d", i)
		}
		name := stringProp(f.Properties, "name")
		kind := stringProp(f.Properties, "type")
		for j, ring := range rings {
			rid := id
			if len(rings) > 1 {
				rid = fmt.Sprintf("%s/%d", id, j)
			}
			out = append(out, Restriction{ID: rid, Name: name, Kind: kind, Polygon: ring})
		}
	}
	return out, nil
}

// LoadShapefile reads restriction polygons from a shapefile, naming each
// from its LABEL or NAME attribute.
func LoadShapefile(path string) ([]Restriction, error) {
	rings, labels, err := render.ReadShapefile(path)
	if err != nil {
		return nil, eris.Wrap(err, "airspace: load shapefile")
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := make([]Restriction, 0, len(rings))
	for i, ring := range rings {
		out = append(out, Restriction{
			ID:      fmt.Sprintf("%s-%d", base, i),
			Name:    labels[i],
			Polygon: ring,
		})
	}
	return out, nil
}

// LoadFile reads restrictions from a local .shp or GeoJSON file.
func LoadFile(path string) ([]Restriction, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return LoadShapefile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "airspace: read %s", path)
	}
	return DecodeGeoJSON(data)
}

func stringProp(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
