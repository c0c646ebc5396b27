// Package raster extracts the values of a fixed set of grid cells from
// single-band rasters using one windowed read per file.
package raster

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
)

var (
	// ErrInvariant marks an internal inconsistency; the run must stop.
	ErrInvariant = errors.New("extraction invariant violated")
	// ErrTimeTag marks a missing or malformed GRIB time tag; the file is skipped.
	ErrTimeTag = errors.New("invalid GRIB time tag")
	// ErrNoCells is returned when an extractor is built without target cells.
	ErrNoCells = errors.New("no target cells")
)

// Band metadata keys written by the GDAL GRIB driver.
const (
	TagRefTime   = "GRIB_REF_TIME"
	TagValidTime = "GRIB_VALID_TIME"
)

// Dataset is a single-band raster opened for reading.
type Dataset interface {
	// Size returns the raster dimensions in cells.
	Size() (cols, rows int)
	// ReadWindow fills buf, row-major, with the values inside w.
	// len(buf) must be w.Width*w.Height.
	ReadWindow(w Window, buf []float64) error
	// Metadata returns a band metadata value, or "" if unset.
	Metadata(key string) string
	Close() error
}

// Window is a rectangular block of cells, origin at its top-left.
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Len returns the number of cells in the window.
func (w Window) Len() int { return w.Width * w.Height }

// Offset returns the row-major position of c inside the window's buffer.
func (w Window) Offset(c grid.Cell) int {
	return (c.Y-w.Y)*w.Width + (c.X - w.X)
}

// Fits reports whether the window lies within a cols x rows raster.
func (w Window) Fits(cols, rows int) bool {
	return w.X >= 0 && w.Y >= 0 && w.Width > 0 && w.Height > 0 &&
		w.X+w.Width <= cols && w.Y+w.Height <= rows
}

func (w Window) String() string {
	return fmt.Sprintf("[%d+%d, %d+%d]", w.X, w.Width, w.Y, w.Height)
}

// BoundingWindow returns the smallest window covering every cell.
func BoundingWindow(cells []grid.Cell) (Window, error) {
	if len(cells) == 0 {
		return Window{}, ErrNoCells
	}
	minX, maxX := cells[0].X, cells[0].X
	minY, maxY := cells[0].Y, cells[0].Y
	for _, c := range cells[1:] {
		minX = min(minX, c.X)
		maxX = max(maxX, c.X)
		minY = min(minY, c.Y)
		maxY = max(maxY, c.Y)
	}
	return Window{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}, nil
}

var gribTimePattern = regexp.MustCompile(`^(\d+)\s*sec\s*UTC$`)

// ParseGRIBTime parses a GDAL GRIB time tag such as "1546344000 sec UTC".
func ParseGRIBTime(tag, value string) (time.Time, error) {
	m := gribTimePattern.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q", ErrTimeTag, tag, value)
	}
	secs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q: %w", ErrTimeTag, tag, value, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// ReadTimes returns the issuance and validity times of a dataset.
func ReadTimes(ds Dataset) (fcst, valid time.Time, err error) {
	fcst, err = ParseGRIBTime(TagRefTime, ds.Metadata(TagRefTime))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	valid, err = ParseGRIBTime(TagValidTime, ds.Metadata(TagValidTime))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return fcst, valid, nil
}
