// Command ndfd-grid selects the NDFD grid cells that a set of paths passes
// through and writes them as a GeoJSON collection of cell polygons.
//
// Usage:
//
//	ndfd-grid -in trail.geojson -out cells.geojson
//
// Set NWS_ENABLED=true (with NWS_USER_AGENT) to attach the NWS gridpoint
// elevation of each cell as the "ele" property.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/nws"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/command"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/intersect"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/pipeline"
	"github.com/paulmach/orb/geojson"
)

func main() {
	in := flag.String("in", "", "input GeoJSON feature collection of LineStrings")
	out := flag.String("out", "", "output GeoJSON path for the selected cells")
	fill := flag.Bool("fill", false, "select cells inside the geometry, not only under its vertices")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	env, err := command.Setup()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg, logger := env.Config, env.Logger

	g, err := grid.NewNDFD()
	if err != nil {
		logger.Error("invalid grid", "error", err)
		os.Exit(1)
	}
	intersector, err := intersect.New(g, cfg.SourceCRS, intersect.Options{Fill: *fill})
	if err != nil {
		logger.Error("invalid source CRS", "error", err)
		os.Exit(1)
	}
	projector, err := intersect.NewProjector(g, cfg.OutputCRS)
	if err != nil {
		logger.Error("invalid output CRS", "error", err)
		os.Exit(1)
	}

	// Elevation enrichment is feature-flagged via NWS_ENABLED.
	var elevation domain.ElevationLookup
	if cfg.ElevationEnabled {
		client := nws.NewClient(nws.Options{
			BaseURL:   cfg.ElevationBaseURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.ElevationTimeout,
			Interval:  cfg.ElevationInterval,
		}, env.Metrics, logger)
		cached, err := nws.NewCachedLookup(client, cfg.ElevationCacheSize, env.Metrics)
		if err != nil {
			logger.Error("invalid elevation cache", "error", err)
			os.Exit(1)
		}
		elevation = cached
		env.Metrics.ElevationEnabled.Set(1)
		logger.Info("nws elevation enabled", "cache_size", cfg.ElevationCacheSize, "interval", cfg.ElevationInterval)
	} else {
		logger.Info("nws elevation disabled")
	}

	job := pipeline.NewGrid(intersector, projector, elevation, logger, env.Metrics)
	os.Exit(env.Run("grid", job.Status(), func(ctx context.Context) error {
		fc, err := readCollection(*in)
		if err != nil {
			return err
		}
		cells, _, err := job.Run(ctx, fc)
		if err != nil {
			return err
		}
		return writeCollection(*out, cells)
	}))
}

func readCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func writeCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode cells: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
