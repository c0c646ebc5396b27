package domain

import (
	"context"
	"errors"
)

// ErrNoCoverage is returned by an ElevationLookup for points the provider does
// not cover (outside the United States for the NWS API).
var ErrNoCoverage = errors.New("point outside provider coverage")

// ElevationLookup resolves the ground elevation, in meters, of a point.
type ElevationLookup interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}

// CellSite is a grid cell with its geographic center.
type CellSite struct {
	X   int
	Y   int
	Lat float64
	Lon float64

	Elevation       float64
	HasElevation    bool
	ElevationSource string // "nws", "no_coverage", "failed", or "" when not looked up
}
