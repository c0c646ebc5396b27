// Command ndfd-extract reads the cells selected by ndfd-grid from NDFD GRIB2
// rasters and writes one Parquet observation batch per raster.
//
// Usage:
//
//	ndfd-extract -cells cells.geojson -out data/batches \
//	  archive/HAS011421999.tar data/YEUZ98_KWBN_201901011200
//
// Tarballs are read in place through GDAL; only members of the SERIES product
// series (default Z98) are extracted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/gdal"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/command"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/intersect"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/pipeline"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/raster"
	"github.com/paulmach/orb/geojson"
)

func main() {
	cellsPath := flag.String("cells", "", "cells GeoJSON written by ndfd-grid")
	out := flag.String("out", "", "output directory for per-file batches")
	flag.Parse()

	if *cellsPath == "" || *out == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ndfd-extract -cells cells.geojson -out dir raster-or-tarball...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	env, err := command.Setup()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg, logger := env.Config, env.Logger

	cells, err := loadCells(*cellsPath)
	if err != nil {
		logger.Error("failed to load cells", "path", *cellsPath, "error", err)
		os.Exit(1)
	}
	ex, err := raster.NewExtractor(cells)
	if err != nil {
		logger.Error("invalid cells", "error", err)
		os.Exit(1)
	}
	env.Metrics.TargetCells.Set(float64(len(cells)))

	sources, err := pipeline.ExpandSources(flag.Args(), cfg.Series, logger)
	if err != nil {
		logger.Error("failed to list sources", "error", err)
		os.Exit(1)
	}
	logger.Info("sources listed", "files", len(sources), "series", cfg.Series, "cells", len(cells))

	gdal.Register()
	job := pipeline.NewExtract(ex, gdal.Open, parquetstore.New(), *out, cfg.ExtractWorkers, logger, env.Metrics)

	os.Exit(env.Run("extract", job.Status(), func(ctx context.Context) error {
		report, err := job.Run(ctx, sources)
		for _, s := range report.Skipped {
			logger.Info("skipped file", "file", s.Name, "error", s.Err)
		}
		return err
	}))
}

// loadCells reads the cell list and checks every cell lies on the NDFD grid.
func loadCells(path string) ([]grid.Cell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cells, err := intersect.Cells(fc)
	if err != nil {
		return nil, err
	}

	g, err := grid.NewNDFD()
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, c := range cells {
		if !g.Contains(c) {
			errs = append(errs, fmt.Errorf("%w: cell %s", grid.ErrOutOfBounds, c))
		}
	}
	return cells, errors.Join(errs...)
}
