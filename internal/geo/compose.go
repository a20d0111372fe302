package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MinFlightGeographyM is the smallest buffer distance the composer draws, so
// a zero-width flight geography still renders as a thin ribbon.
const MinFlightGeographyM = 1.0

// Skip records a zone that could not be built and why.
type Skip struct {
	Label  ZoneLabel `json:"label"`
	Reason error     `json:"-"`
}

// Result is the output of Compose: the zones that were built, outer to
// inner, and the zones that were skipped.
type Result struct {
	Zones   []Zone     `json:"zones"`
	Skipped []Skip     `json:"skipped,omitempty"`
	Mode    BufferMode `json:"mode"`
}

// Zone returns the built zone with the given label.
func (r Result) Zone(label ZoneLabel) (Zone, bool) {
	for _, z := range r.Zones {
		if z.Label == label {
			return z, true
		}
	}
	return Zone{}, false
}

type composeConfig struct {
	corridor CorridorOptions
	hull     OffsetOptions
	parallel bool
}

// ComposeOption configures Compose.
type ComposeOption func(*composeConfig)

// WithCapSegments sets the arc resolution (segments per half circle) for
// corridor caps and round polygon joins.
func WithCapSegments(n int) ComposeOption {
	return func(c *composeConfig) {
		c.corridor.CapSegments = n
		c.hull.ArcSegments = n
	}
}

// WithCorridorJoin sets the outer join used at interior corridor vertices.
func WithCorridorJoin(j JoinStyle) ComposeOption {
	return func(c *composeConfig) { c.corridor.Join = j }
}

// WithHullJoin sets the corner join used when offsetting hulls.
func WithHullJoin(j JoinStyle) ComposeOption {
	return func(c *composeConfig) { c.hull.Join = j }
}

// WithParallel builds the three zones concurrently. Output order does not
// change.
func WithParallel(on bool) ComposeOption {
	return func(c *composeConfig) { c.parallel = on }
}

// CleanRoute drops non-finite points and (0, 0) placeholders.
func CleanRoute(route []GeoPoint) []GeoPoint {
	out := make([]GeoPoint, 0, len(route))
	for _, p := range route {
		if !p.IsFinite() || p.IsNullIsland() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsClosed reports whether route has at least three points and ends where
// it starts.
func IsClosed(route []GeoPoint) bool {
	return len(route) >= 3 && route[0] == route[len(route)-1]
}

// ResolveMode returns mode unless it is ModeAuto, in which case closed
// routes buffer their convex hull and open routes buffer as a corridor.
func ResolveMode(route []GeoPoint, mode BufferMode) BufferMode {
	if mode != ModeAuto {
		return mode
	}
	if IsClosed(route) {
		return ModeConvexHull
	}
	return ModeCorridor
}

// ComposeZones returns the built zones of Compose, outer to inner.
func ComposeZones(route []GeoPoint, settings ZoneSettings, opts ...ComposeOption) []Zone {
	return Compose(route, settings, opts...).Zones
}

type zoneJob struct {
	label    ZoneLabel
	distance float64
}

type zoneOutcome struct {
	zone Zone
	err  error
}

// Compose builds the Ground Risk Buffer, Contingency and Flight Geography
// zones for route, in that order.
//
// Distances accumulate outward: flight geography at fg, contingency at
// fg+c, ground risk at fg+c+g, each floored at MinFlightGeographyM. Every
// zone is buffered from the cleaned route itself, never from another zone.
// A zone that fails lands in Result.Skipped and the others are still built.
func Compose(route []GeoPoint, settings ZoneSettings, opts ...ComposeOption) Result {
	var cfg composeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	clean := CleanRoute(route)
	res := Result{Mode: ResolveMode(clean, settings.Mode)}

	fg := settings.FlightGeographyM
	jobs := []zoneJob{
		{GroundRiskBuffer, effectiveDistance(fg + settings.ContingencyM + settings.GroundRiskM)},
		{Contingency, effectiveDistance(fg + settings.ContingencyM)},
		{FlightGeography, effectiveDistance(fg)},
	}

	if err := settings.Validate(); err != nil {
		return skipAll(res, jobs, err)
	}
	if len(clean) == 0 {
		return skipAll(res, jobs, eris.Wrap(ErrInvalidInput, "geo: compose: route has no usable points"))
	}

	hull := clean
	if res.Mode == ModeConvexHull {
		hull = ConvexHull(clean)
		if len(hull) < 3 {
			zap.L().Debug("geo: hull degenerate, buffering as corridor",
				zap.Int("route_points", len(clean)),
				zap.Int("hull_points", len(hull)),
			)
		}
	}

	build := func(j zoneJob) zoneOutcome {
		var (
			poly []GeoPoint
			err  error
		)
		if res.Mode == ModeConvexHull && len(hull) >= 3 {
			poly, err = OffsetPolygon(hull, j.distance, cfg.hull)
		} else {
			poly, err = Corridor(clean, j.distance, cfg.corridor)
		}
		if err != nil {
			return zoneOutcome{err: eris.Wrapf(err, "geo: compose %s", j.label)}
		}
		return zoneOutcome{zone: Zone{Label: j.label, Polygon: poly, CumulativeDistanceM: j.distance}}
	}

	outcomes := make([]zoneOutcome, len(jobs))
	if cfg.parallel {
		var g errgroup.Group
		for i, j := range jobs {
			g.Go(func() error {
				outcomes[i] = build(j)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, j := range jobs {
			outcomes[i] = build(j)
		}
	}

	for i, o := range outcomes {
		if o.err != nil {
			zap.L().Debug("geo: zone skipped",
				zap.String("zone", jobs[i].label.String()),
				zap.Float64("distance_m", jobs[i].distance),
				zap.Error(o.err),
			)
			res.Skipped = append(res.Skipped, Skip{Label: jobs[i].label, Reason: o.err})
			continue
		}
		res.Zones = append(res.Zones, o.zone)
	}
	return res
}

func effectiveDistance(d float64) float64 {
	return math.Max(d, MinFlightGeographyM)
}

func skipAll(res Result, jobs []zoneJob, err error) Result {
	for _, j := range jobs {
		res.Skipped = append(res.Skipped, Skip{Label: j.label, Reason: err})
	}
	zap.L().Debug("geo: all zones skipped", zap.Error(err))
	return res
}
