package domain

import (
	"context"
	"errors"
	"log/slog"
)

// EnrichWithElevation attempts to attach the ground elevation to a cell site.
// If lookup is nil or the lookup fails, the site is returned without an
// elevation and ElevationSource set accordingly (graceful degradation).
func EnrichWithElevation(ctx context.Context, site CellSite, lookup ElevationLookup, logger *slog.Logger) CellSite {
	if lookup == nil {
		return site
	}

	meters, err := lookup.Elevation(ctx, site.Lat, site.Lon)
	switch {
	case errors.Is(err, ErrNoCoverage):
		site.ElevationSource = "no_coverage"
	case err != nil:
		logger.Warn("elevation lookup failed",
			"x", site.X,
			"y", site.Y,
			"lat", site.Lat,
			"lon", site.Lon,
			"error", err,
		)
		site.ElevationSource = "failed"
	default:
		site.Elevation = meters
		site.HasElevation = true
		site.ElevationSource = "nws"
	}
	return site
}
