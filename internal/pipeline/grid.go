package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/intersect"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/observability"
	"github.com/paulmach/orb/geojson"
)

// GridReport summarizes a grid run.
type GridReport struct {
	Paths             int
	SkippedFeatures   int
	Cells             int
	PointsOutOfBounds int
	WithElevation     int
}

// Grid turns input paths into the set of grid cells they pass through.
type Grid struct {
	intersector *intersect.Intersector
	projector   *intersect.Projector
	elevation   domain.ElevationLookup
	logger      *slog.Logger
	metrics     *observability.Metrics
	status      *Status
}

// NewGrid creates a grid job. elevation may be nil to skip enrichment.
func NewGrid(in *intersect.Intersector, proj *intersect.Projector, elevation domain.ElevationLookup, logger *slog.Logger, metrics *observability.Metrics) *Grid {
	return &Grid{
		intersector: in,
		projector:   proj,
		elevation:   elevation,
		logger:      logger,
		metrics:     metrics,
		status:      NewStatus("grid"),
	}
}

// Status reports the progress of the current run, counted in cells.
func (p *Grid) Status() *Status { return p.status }

// Run intersects the LineString features of fc with the grid and returns the
// touched cells as polygon features. Other geometries are logged and skipped.
func (p *Grid) Run(ctx context.Context, fc *geojson.FeatureCollection) (*geojson.FeatureCollection, GridReport, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var report GridReport
	paths, errs := intersect.Paths(fc)
	for _, err := range errs {
		p.logger.Warn("skipping feature", "error", err)
	}
	report.Paths = len(paths)
	report.SkippedFeatures = len(errs)
	if len(paths) == 0 {
		return nil, report, errors.New("input has no LineString features")
	}

	res, err := p.intersector.IntersectPaths(paths)
	if err != nil {
		return nil, report, err
	}
	report.Cells = len(res.Cells)
	report.PointsOutOfBounds = res.OutOfBounds
	p.status.begin(len(res.Cells))
	p.metrics.TargetCells.Set(float64(len(res.Cells)))
	p.metrics.PointsOutOfBounds.Add(float64(res.OutOfBounds))
	if res.OutOfBounds > 0 {
		p.logger.Warn("points outside grid excluded", "points", res.OutOfBounds)
	}

	sites := make([]domain.CellSite, 0, len(res.Cells))
	for _, c := range res.Cells {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		site, err := p.projector.Site(c)
		if err != nil {
			return nil, report, err
		}
		site = domain.EnrichWithElevation(ctx, site, p.elevation, p.logger)
		if site.HasElevation {
			report.WithElevation++
		}
		sites = append(sites, site)
		p.status.done.Add(1)
	}

	out, err := p.projector.FeatureCollection(sites)
	if err != nil {
		return nil, report, err
	}
	p.status.finished.Store(true)
	p.logger.Info("grid cells selected",
		"paths", report.Paths,
		"skipped_features", report.SkippedFeatures,
		"cells", report.Cells,
		"points_out_of_bounds", report.PointsOutOfBounds,
		"with_elevation", report.WithElevation,
	)
	return out, report, nil
}
