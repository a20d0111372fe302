package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/render"
)

// documentRenderer is a renderer that can serialize what it has drawn.
type documentRenderer interface {
	render.Renderer
	io.WriterTo
}

func newRenderer(format, name string) (documentRenderer, error) {
	switch format {
	case "", "geojson":
		return render.NewGeoJSONRenderer(), nil
	case "kml":
		if name == "" {
			name = "zones"
		}
		return render.NewKMLRenderer(name), nil
	case "wkt":
		return render.NewWKTRenderer(), nil
	case "polyline":
		return render.NewPolylineRenderer(), nil
	case "ewkb":
		return render.NewEWKBRenderer(), nil
	}
	return nil, eris.Errorf("unknown format %q (want geojson, kml, wkt, polyline or ewkb)", format)
}

// writeZones renders zones in format to out, or to stdout when out is empty.
func writeZones(out, format, name string, zones []geo.Zone) error {
	r, err := newRenderer(format, name)
	if err != nil {
		return err
	}
	if err := render.RenderAll(r, zones, render.DefaultStyles()); err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	_, err = r.WriteTo(w)
	return err
}
