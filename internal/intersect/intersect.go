// Package intersect maps geographic geometries onto cells of the reference grid.
package intersect

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
)

var (
	// ErrUnsupportedGeometry is returned for input features that are not single LineStrings.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	// ErrFillUnsupported is returned when interior fill is requested.
	ErrFillUnsupported = errors.New("interior fill is not supported")
)

// Options controls how geometries are rasterized.
type Options struct {
	// Fill selects every cell inside the geometry's bounding box instead of
	// only the cells under its vertices. Not implemented yet.
	Fill bool
}

// Result is the deduplicated cell set touched by the input.
type Result struct {
	// Cells is sorted by row, then column.
	Cells []grid.Cell
	// OutOfBounds counts input points that fell outside the grid.
	OutOfBounds int
}

// Intersector reprojects points from a source CRS into grid cells.
type Intersector struct {
	grid   *grid.Grid
	toGrid proj.Transformer
	opts   Options
}

// New builds an Intersector for points expressed in sourceCRS.
// A missing or unparsable CRS is a configuration error.
func New(g *grid.Grid, sourceCRS string, opts Options) (*Intersector, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", grid.ErrConfig)
	}
	toGrid, err := g.TransformFrom(sourceCRS)
	if err != nil {
		return nil, err
	}
	return &Intersector{grid: g, toGrid: toGrid, opts: opts}, nil
}

// Intersect returns the cells containing each point. Points outside the grid
// are counted and excluded.
func (in *Intersector) Intersect(points []orb.Point) (Result, error) {
	if in.opts.Fill {
		return Result{}, ErrFillUnsupported
	}

	seen := make(map[grid.Cell]struct{}, len(points))
	var res Result
	for i, p := range points {
		x, y, err := in.toGrid(p.X(), p.Y())
		if err != nil {
			return Result{}, fmt.Errorf("reproject point %d (%g, %g): %w", i, p.X(), p.Y(), err)
		}
		cell, err := in.grid.ToIndex(x, y)
		if errors.Is(err, grid.ErrOutOfBounds) {
			res.OutOfBounds++
			continue
		}
		if err != nil {
			return Result{}, err
		}
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		res.Cells = append(res.Cells, cell)
	}

	SortCells(res.Cells)
	return res, nil
}

// IntersectPaths intersects the vertices of every path.
func (in *Intersector) IntersectPaths(paths []orb.LineString) (Result, error) {
	var n int
	for _, ls := range paths {
		n += len(ls)
	}
	points := make([]orb.Point, 0, n)
	for _, ls := range paths {
		points = append(points, ls...)
	}
	return in.Intersect(points)
}

// SortCells orders cells by row, then column, matching raster scan order.
func SortCells(cells []grid.Cell) {
	slices.SortFunc(cells, func(a, b grid.Cell) int {
		if n := cmp.Compare(a.Y, b.Y); n != 0 {
			return n
		}
		return cmp.Compare(a.X, b.X)
	})
}
