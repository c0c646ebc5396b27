package raster

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
)

// Extractor reads a fixed cell set from many datasets. The bounding window
// and buffer offsets are computed once. It is safe for concurrent use.
type Extractor struct {
	cells   []grid.Cell
	window  Window
	offsets []int
}

// NewExtractor prepares extraction of cells. The slice is copied.
func NewExtractor(cells []grid.Cell) (*Extractor, error) {
	w, err := BoundingWindow(cells)
	if err != nil {
		return nil, err
	}
	offsets := make([]int, len(cells))
	for i, c := range cells {
		offsets[i] = w.Offset(c)
	}
	return &Extractor{cells: slices.Clone(cells), window: w, offsets: offsets}, nil
}

// Window returns the region read from every dataset.
func (e *Extractor) Window() Window { return e.window }

// Cells returns the target cells in extraction order.
func (e *Extractor) Cells() []grid.Cell { return slices.Clone(e.cells) }

// Extract reads the target cells from ds with a single windowed read and
// returns one observation per cell, in cell order, stamped with the dataset's
// GRIB times. Malformed time tags wrap ErrTimeTag; a window that does not fit
// the dataset or an offset outside the read buffer wraps ErrInvariant.
func (e *Extractor) Extract(ds Dataset) ([]domain.Observation, error) {
	fcst, valid, err := ReadTimes(ds)
	if err != nil {
		return nil, err
	}

	values, err := e.ReadValues(ds)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Observation, len(e.cells))
	for i, c := range e.cells {
		out[i] = domain.Observation{
			X:         c.X,
			Y:         c.Y,
			ValidTime: valid,
			FcstTime:  fcst,
			Value:     values[i],
		}
	}
	return out, nil
}

// ReadValues returns the raw cell values of ds in cell order.
func (e *Extractor) ReadValues(ds Dataset) ([]float64, error) {
	cols, rows := ds.Size()
	if !e.window.Fits(cols, rows) {
		return nil, fmt.Errorf("%w: window %s outside %dx%d raster", ErrInvariant, e.window, cols, rows)
	}

	buf := make([]float64, e.window.Len())
	if err := ds.ReadWindow(e.window, buf); err != nil {
		return nil, fmt.Errorf("read window %s: %w", e.window, err)
	}

	values := make([]float64, 0, len(e.cells))
	for i, off := range e.offsets {
		if off < 0 || off >= len(buf) {
			return nil, fmt.Errorf("%w: cell %s at offset %d outside window %s", ErrInvariant, e.cells[i], off, e.window)
		}
		values = append(values, buf[off])
	}
	if len(values) != len(e.cells) {
		return nil, fmt.Errorf("%w: read %d values for %d cells", ErrInvariant, len(values), len(e.cells))
	}
	return values, nil
}
