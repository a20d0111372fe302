package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/flightzone/internal/geo"
	"github.com/sells-group/flightzone/internal/mission"
	"github.com/sells-group/flightzone/internal/route"
	"github.com/sells-group/flightzone/internal/store"
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Manage stored missions",
	Long:  "Commands for migrating the mission store, importing route files, listing missions and building their zones.",
}

// initStore validates the store config and opens a migrated store.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("mission"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

// -- mission migrate --

var missionMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the missions schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("mission store migrated", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

// -- mission import --

var missionImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import missions from a route YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		docs, err := route.LoadAll(args[0])
		if err != nil {
			return err
		}
		defaults, err := cfg.Zones.Settings()
		if err != nil {
			return err
		}
		missions, err := missionsFromDocuments(docs, defaults, args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ImportMissions(ctx, missions)
		if err != nil {
			return eris.Wrap(err, "mission import")
		}
		zap.L().Info("import complete",
			zap.String("file", args[0]),
			zap.Int("documents", len(docs)),
			zap.Int64("rows", n),
		)
		return nil
	},
}

// missionsFromDocuments converts route documents into missions. Unnamed
// documents are named after the source file and their position.
func missionsFromDocuments(docs []route.Document, defaults geo.ZoneSettings, source string) ([]mission.Mission, error) {
	base := filepath.Base(source)
	missions := make([]mission.Mission, 0, len(docs))
	for i, doc := range docs {
		points, err := doc.Points()
		if err != nil {
			return nil, eris.Wrapf(err, "document %d", i)
		}
		name := doc.Name
		if name == "" {
			name = base
			if len(docs) > 1 {
				name = fmt.Sprintf("%s#%d", base, i+1)
			}
		}
		missions = append(missions, mission.Mission{
			Name:     name,
			Route:    points,
			Settings: doc.Settings(defaults),
		})
	}
	return missions, nil
}

// -- mission list --

var (
	missionListName   string
	missionListLimit  int
	missionListOffset int
	missionListJSON   bool
)

var missionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored missions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		missions, err := st.ListMissions(ctx, store.MissionFilter{
			NameContains: missionListName,
			Limit:        missionListLimit,
			Offset:       missionListOffset,
		})
		if err != nil {
			return eris.Wrap(err, "mission list")
		}

		if missionListJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(missions)
		}
		if len(missions) == 0 {
			fmt.Fprintln(os.Stderr, "No missions found.")
			return nil
		}
		formatMissionList(cmd.OutOrStdout(), missions)
		return nil
	},
}

func formatMissionList(out io.Writer, missions []mission.Mission) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPOINTS\tMODE\tFG_M\tC_M\tGRB_M\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----\t----\t---\t-----\t-------")

	for _, m := range missions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.0f\t%.0f\t%.0f\t%s\n",
			m.ID,
			m.Name,
			len(m.Route),
			m.Settings.Mode,
			m.Settings.FlightGeographyM,
			m.Settings.ContingencyM,
			m.Settings.GroundRiskM,
			m.UpdatedAt.Format(time.RFC3339),
		)
	}
	_ = w.Flush()
}

// -- mission zones --

var (
	missionZonesAll     bool
	missionZonesFormat  string
	missionZonesOut     string
	missionZonesWorkers int
)

var missionZonesCmd = &cobra.Command{
	Use:   "zones [mission-id]",
	Short: "Build zones for a stored mission, or for every mission with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !missionZonesAll && len(args) == 0 {
			return eris.New("a mission id or --all is required")
		}
		if _, err := newRenderer(missionZonesFormat, ""); err != nil {
			return err
		}
		opts, err := cfg.Zones.Options()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if !missionZonesAll {
			m, err := st.GetMission(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "mission zones")
			}
			res := m.Zones(opts...)
			logResult(m.Name, res)
			return writeZones(missionZonesOut, missionZonesFormat, m.Name, res.Zones)
		}
		return buildAllMissionZones(ctx, st, opts)
	},
}

// buildAllMissionZones writes one file per stored mission into the
// --out directory, building up to --workers missions at a time.
func buildAllMissionZones(ctx context.Context, st store.Store, opts []geo.ComposeOption) error {
	if missionZonesOut == "" {
		return eris.New("--out directory is required with --all")
	}
	if err := os.MkdirAll(missionZonesOut, 0o755); err != nil {
		return eris.Wrapf(err, "create %s", missionZonesOut)
	}

	missions, err := allMissions(ctx, st)
	if err != nil {
		return err
	}

	ext := "txt"
	switch missionZonesFormat {
	case "", "geojson":
		ext = "geojson"
	case "kml":
		ext = "kml"
	}

	var built, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(missionZonesWorkers, 1))
	for _, m := range missions {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res := m.Zones(opts...)
			built.Add(int64(len(res.Zones)))
			skipped.Add(int64(len(res.Skipped)))
			out := filepath.Join(missionZonesOut, m.ID+"."+ext)
			if err := writeZones(out, missionZonesFormat, m.Name, res.Zones); err != nil {
				return eris.Wrapf(err, "mission %s", m.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("mission zones written",
		zap.String("dir", missionZonesOut),
		zap.Int("missions", len(missions)),
		zap.Int64("zones", built.Load()),
		zap.Int64("skipped", skipped.Load()),
	)
	return nil
}

// allMissions pages through every stored mission.
func allMissions(ctx context.Context, st store.Store) ([]mission.Mission, error) {
	const page = 500
	var out []mission.Mission
	for offset := 0; ; offset += page {
		batch, err := st.ListMissions(ctx, store.MissionFilter{Limit: page, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "list missions")
		}
		out = append(out, batch...)
		if len(batch) < page {
			return out, nil
		}
	}
}

func init() {
	missionListCmd.Flags().StringVar(&missionListName, "name", "", "filter by name substring")
	missionListCmd.Flags().IntVar(&missionListLimit, "limit", 100, "max missions to list")
	missionListCmd.Flags().IntVar(&missionListOffset, "offset", 0, "missions to skip")
	missionListCmd.Flags().BoolVar(&missionListJSON, "json", false, "print missions as JSON")

	missionZonesCmd.Flags().BoolVar(&missionZonesAll, "all", false, "build zones for every stored mission")
	missionZonesCmd.Flags().StringVar(&missionZonesFormat, "format", "geojson", "output format: geojson, kml, wkt, polyline or ewkb")
	missionZonesCmd.Flags().StringVar(&missionZonesOut, "out", "", "output file, or output directory with --all")
	missionZonesCmd.Flags().IntVar(&missionZonesWorkers, "workers", 4, "concurrent missions with --all")

	missionCmd.AddCommand(missionMigrateCmd, missionImportCmd, missionListCmd, missionZonesCmd)
	rootCmd.AddCommand(missionCmd)
}
