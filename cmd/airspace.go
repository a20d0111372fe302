package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/flightzone/internal/airspace"
)

var airspaceCmd = &cobra.Command{
	Use:   "airspace",
	Short: "Check zones against airspace restrictions",
}

var (
	airspaceSource         string
	airspaceJSON           bool
	airspaceFailOnConflict bool
)

var airspaceCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report restrictions that overlap a route's zones",
	Long:  "Builds the route's zones and intersects them with restriction polygons read from --source (an http(s) GeoJSON feed, a GeoJSON file or a shapefile), or from airspace.url when --source is not set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		doc, res, err := computeRouteZones(cmd, zonesRoutePath)
		if err != nil {
			return err
		}
		restrictions, err := loadRestrictions(ctx, airspaceSource)
		if err != nil {
			return err
		}

		conflicts := airspace.Conflicts(res.Zones, restrictions)
		zap.L().Info("airspace check complete",
			zap.String("route", doc.Name),
			zap.Int("restrictions", len(restrictions)),
			zap.Int("conflicts", len(conflicts)),
		)

		if airspaceJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(conflicts); err != nil {
				return err
			}
		} else if len(conflicts) == 0 {
			fmt.Fprintln(os.Stderr, "No conflicts found.")
		} else {
			formatConflicts(cmd.OutOrStdout(), conflicts)
		}

		if airspaceFailOnConflict && len(conflicts) > 0 {
			return eris.Errorf("%d airspace conflicts", len(conflicts))
		}
		return nil
	},
}

func loadRestrictions(ctx context.Context, source string) ([]airspace.Restriction, error) {
	switch {
	case source == "":
		if err := cfg.Validate("airspace"); err != nil {
			return nil, err
		}
		return airspace.NewClient(cfg.Airspace).Fetch(ctx)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return airspace.NewClient(cfg.Airspace).FetchURL(ctx, source)
	default:
		return airspace.LoadFile(source)
	}
}

func formatConflicts(out io.Writer, conflicts []airspace.Conflict) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tKIND\tINNERMOST\tZONES")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t---------\t-----")

	for _, c := range conflicts {
		labels := make([]string, 0, len(c.Zones))
		for _, z := range c.Zones {
			labels = append(labels, z.String())
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.Restriction.ID,
			c.Restriction.Name,
			c.Restriction.Kind,
			c.Innermost,
			strings.Join(labels, ","),
		)
	}
	_ = w.Flush()
}

func init() {
	addZoneFlags(airspaceCheckCmd)
	airspaceCheckCmd.Flags().StringVar(&airspaceSource, "source", "", "restriction feed URL, GeoJSON file or shapefile (default airspace.url)")
	airspaceCheckCmd.Flags().BoolVar(&airspaceJSON, "json", false, "print conflicts as JSON")
	airspaceCheckCmd.Flags().BoolVar(&airspaceFailOnConflict, "fail-on-conflict", false, "exit non-zero when any restriction overlaps a zone")

	airspaceCmd.AddCommand(airspaceCheckCmd)
	rootCmd.AddCommand(airspaceCmd)
}
