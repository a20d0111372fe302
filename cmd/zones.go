package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/render"
	"github.com/sells-group/flightzone/internal/route"
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Build safety zones for a route file",
}

var (
	zonesRoutePath   string
	zonesFormat      string
	zonesExportFmt   string
	zonesOut         string
	zonesFG          float64
	zonesContingency float64
	zonesGroundRisk  float64
	zonesMode        string
	zonesCaps        int
	zonesParallel    bool
)

// -- zones compute --

var zonesComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute zones and write them as GeoJSON, KML, WKT, polyline or EWKB",
	RunE: func(cmd *cobra.Command, _ []string) error {
		doc, res, err := computeRouteZones(cmd, zonesRoutePath)
		if err != nil {
			return err
		}
		if err := writeZones(zonesOut, zonesFormat, doc.Name, res.Zones); err != nil {
			return eris.Wrap(err, "zones compute")
		}
		logResult(doc.Name, res.Result)
		return nil
	},
}

// -- zones export --

var zonesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export zones to a shapefile or an XLSX report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if zonesOut == "" {
			return eris.New("--out is required")
		}
		doc, res, err := computeRouteZones(cmd, zonesRoutePath)
		if err != nil {
			return err
		}

		switch zonesExportFmt {
		case "shp":
			n, err := render.WriteShapefile(zonesOut, res.Zones)
			if err != nil {
				return eris.Wrap(err, "zones export")
			}
			zap.L().Info("shapefile written", zap.String("path", zonesOut), zap.Int("zones", n))
		case "xlsx":
			points, _ := doc.Points()
			name := doc.Name
			if name == "" {
				name = filepath.Base(zonesRoutePath)
			}
			rep := render.Report{Mission: name, Route: points, Settings: res.settings, Result: res.Result}
			if err := render.WriteXLSXReport(zonesOut, rep); err != nil {
				return eris.Wrap(err, "zones export")
			}
			zap.L().Info("report written", zap.String("path", zonesOut))
		default:
			return eris.Errorf("unknown export format %q (want shp or xlsx)", zonesExportFmt)
		}
		logResult(doc.Name, res.Result)
		return nil
	},
}

// routeResult carries the composed zones with the settings they were built
// from.
type routeResult struct {
	geo.Result
	settings geo.ZoneSettings
}

// computeRouteZones loads the route at path and builds its zones, applying
// any distance or mode flags set on cmd over the document and config.
func computeRouteZones(cmd *cobra.Command, path string) (*route.Document, routeResult, error) {
	if path == "" {
		return nil, routeResult{}, eris.New("--route is required")
	}
	if err := cfg.Validate("zones"); err != nil {
		return nil, routeResult{}, err
	}
	doc, err := route.Load(path)
	if err != nil {
		return nil, routeResult{}, err
	}
	defaults, err := cfg.Zones.Settings()
	if err != nil {
		return nil, routeResult{}, err
	}
	settings, err := overrideSettings(cmd, doc.Settings(defaults))
	if err != nil {
		return nil, routeResult{}, err
	}
	opts, err := zoneOptions(cmd)
	if err != nil {
		return nil, routeResult{}, err
	}

	points, _ := doc.Points()
	res := geo.Compose(points, settings, opts...)
	return doc, routeResult{Result: res, settings: settings}, nil
}

func overrideSettings(cmd *cobra.Command, s geo.ZoneSettings) (geo.ZoneSettings, error) {
	flags := cmd.Flags()
	if flags.Changed("fg") {
		s.FlightGeographyM = zonesFG
	}
	if flags.Changed("contingency") {
		s.ContingencyM = zonesContingency
	}
	if flags.Changed("ground-risk") {
		s.GroundRiskM = zonesGroundRisk
	}
	if flags.Changed("mode") {
		mode, err := geo.ParseBufferMode(zonesMode)
		if err != nil {
			return s, err
		}
		s.Mode = mode
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func zoneOptions(cmd *cobra.Command) ([]geo.ComposeOption, error) {
	opts, err := cfg.Zones.Options()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("caps") {
		if zonesCaps < 1 {
			return nil, eris.New("--caps must be >= 1")
		}
		opts = append(opts, geo.WithCapSegments(zonesCaps))
	}
	if cmd.Flags().Changed("parallel") {
		opts = append(opts, geo.WithParallel(zonesParallel))
	}
	return opts, nil
}

func logResult(name string, res geo.Result) {
	for _, s := range res.Skipped {
		zap.L().Warn("zone skipped",
			zap.String("route", name),
			zap.String("zone", s.Label.String()),
			zap.Error(s.Reason),
		)
	}
	zap.L().Info("zones built",
		zap.String("route", name),
		zap.String("mode", res.Mode.String()),
		zap.Int("zones", len(res.Zones)),
		zap.Int("skipped", len(res.Skipped)),
	)
}

func addZoneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&zonesRoutePath, "route", "", "path to a route YAML or JSON file (required)")
	cmd.Flags().StringVar(&zonesOut, "out", "", "output path")
	cmd.Flags().Float64Var(&zonesFG, "fg", 0, "flight geography distance in meters")
	cmd.Flags().Float64Var(&zonesContingency, "contingency", 0, "contingency distance in meters")
	cmd.Flags().Float64Var(&zonesGroundRisk, "ground-risk", 0, "ground risk buffer distance in meters")
	cmd.Flags().StringVar(&zonesMode, "mode", "", "buffer mode: auto, corridor or convex_hull")
	cmd.Flags().IntVar(&zonesCaps, "caps", 0, "arc segments per half circle")
	cmd.Flags().BoolVar(&zonesParallel, "parallel", false, "build the three zones concurrently")
}

func init() {
	addZoneFlags(zonesComputeCmd)
	zonesComputeCmd.Flags().StringVar(&zonesFormat, "format", "geojson", "output format: geojson, kml, wkt, polyline or ewkb")
	addZoneFlags(zonesExportCmd)
	zonesExportCmd.Flags().StringVar(&zonesExportFmt, "format", "shp", "export format: shp or xlsx")

	zonesCmd.AddCommand(zonesComputeCmd, zonesExportCmd)
	rootCmd.AddCommand(zonesCmd)
}
