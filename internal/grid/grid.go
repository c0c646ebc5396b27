package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

var (
	// ErrOutOfBounds is returned when a coordinate or cell falls outside the grid.
	ErrOutOfBounds = errors.New("outside grid bounds")
	// ErrConfig is returned for an unusable grid definition or CRS.
	ErrConfig = errors.New("invalid grid configuration")
)

// Cell addresses one grid cell by column (X) and row (Y).
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// Definition holds the constants of an affine-referenced raster grid.
// CellHeight is negative for north-up rasters.
type Definition struct {
	Proj       string
	OriginX    float64
	OriginY    float64
	CellWidth  float64
	CellHeight float64
	Columns    int
	Rows       int
}

// Grid is an immutable, validated Definition with its parsed CRS.
// It is safe for concurrent use.
type Grid struct {
	def Definition
	sr  *proj.SR
}

// New validates def and parses its projection.
func New(def Definition) (*Grid, error) {
	if def.Columns <= 0 || def.Rows <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d must be positive", ErrConfig, def.Columns, def.Rows)
	}
	if def.CellWidth == 0 || def.CellHeight == 0 {
		return nil, fmt.Errorf("%w: cell size must be non-zero", ErrConfig)
	}
	if def.Proj == "" {
		return nil, fmt.Errorf("%w: projection is required", ErrConfig)
	}
	sr, err := proj.Parse(def.Proj)
	if err != nil {
		return nil, fmt.Errorf("%w: parse projection %q: %w", ErrConfig, def.Proj, err)
	}
	return &Grid{def: def, sr: sr}, nil
}

// Definition returns a copy of the grid constants.
func (g *Grid) Definition() Definition { return g.def }

// Columns returns the number of cells along X.
func (g *Grid) Columns() int { return g.def.Columns }

// Rows returns the number of cells along Y.
func (g *Grid) Rows() int { return g.def.Rows }

// Contains reports whether c addresses a cell of the grid.
func (g *Grid) Contains(c Cell) bool {
	return c.X >= 0 && c.X < g.def.Columns && c.Y >= 0 && c.Y < g.def.Rows
}

// ToIndex maps a point in the grid's native CRS to the cell containing it.
// Points on a cell's lower edge belong to that cell. Points outside the grid
// return ErrOutOfBounds; they are never clamped to the edge.
func (g *Grid) ToIndex(x, y float64) (Cell, error) {
	col := math.Floor((x - g.def.OriginX) / g.def.CellWidth)
	row := math.Floor((y - g.def.OriginY) / g.def.CellHeight)

	if math.IsNaN(col) || math.IsNaN(row) ||
		col < 0 || col >= float64(g.def.Columns) ||
		row < 0 || row >= float64(g.def.Rows) {
		return Cell{}, fmt.Errorf("%w: point (%g, %g) maps to column %g, row %g", ErrOutOfBounds, x, y, col, row)
	}
	return Cell{X: int(col), Y: int(row)}, nil
}

// ToWorldBounds returns the extent of c in the grid's native CRS.
func (g *Grid) ToWorldBounds(c Cell) (*geom.Bounds, error) {
	if !g.Contains(c) {
		return nil, fmt.Errorf("%w: cell %s", ErrOutOfBounds, c)
	}
	x0 := g.def.OriginX + float64(c.X)*g.def.CellWidth
	x1 := x0 + g.def.CellWidth
	y0 := g.def.OriginY + float64(c.Y)*g.def.CellHeight
	y1 := y0 + g.def.CellHeight

	return &geom.Bounds{
		Min: geom.Point{X: math.Min(x0, x1), Y: math.Min(y0, y1)},
		Max: geom.Point{X: math.Max(x0, x1), Y: math.Max(y0, y1)},
	}, nil
}

// Center returns the midpoint of c in the grid's native CRS.
func (g *Grid) Center(c Cell) (geom.Point, error) {
	b, err := g.ToWorldBounds(c)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}, nil
}

// TransformFrom builds a transformer from the CRS described by src into the
// grid CRS. Geographic coordinates are in degrees.
func (g *Grid) TransformFrom(src string) (proj.Transformer, error) {
	sr, err := parseCRS(src)
	if err != nil {
		return nil, err
	}
	t, err := sr.NewTransform(g.sr)
	if err != nil {
		return nil, fmt.Errorf("%w: transform from %q: %w", ErrConfig, src, err)
	}
	return t, nil
}

// TransformTo builds a transformer from the grid CRS into the CRS described by dst.
func (g *Grid) TransformTo(dst string) (proj.Transformer, error) {
	sr, err := parseCRS(dst)
	if err != nil {
		return nil, err
	}
	t, err := g.sr.NewTransform(sr)
	if err != nil {
		return nil, fmt.Errorf("%w: transform to %q: %w", ErrConfig, dst, err)
	}
	return t, nil
}

func parseCRS(s string) (*proj.SR, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: CRS is required", ErrConfig)
	}
	sr, err := proj.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: parse CRS %q: %w", ErrConfig, s, err)
	}
	return sr, nil
}
