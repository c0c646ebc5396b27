// Package gdal opens GRIB2 and other GDAL-readable rasters as raster.Datasets.
package gdal

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/raster"
)

var registerOnce sync.Once

// Register loads the GDAL drivers. It is safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// Dataset reads the first band of a GDAL dataset.
type Dataset struct {
	ds   *godal.Dataset
	band godal.Band
}

// Open opens path, which may be a /vsitar/ path, for reading.
func Open(path string) (raster.Dataset, error) {
	Register()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		_ = ds.Close()
		return nil, fmt.Errorf("open %s: dataset has no bands", path)
	}
	return &Dataset{ds: ds, band: bands[0]}, nil
}

func (d *Dataset) Size() (int, int) {
	st := d.ds.Structure()
	return st.SizeX, st.SizeY
}

func (d *Dataset) ReadWindow(w raster.Window, buf []float64) error {
	if len(buf) != w.Len() {
		return fmt.Errorf("buffer holds %d values, window %s needs %d", len(buf), w, w.Len())
	}
	return d.band.Read(w.X, w.Y, buf, w.Width, w.Height)
}

func (d *Dataset) Metadata(key string) string {
	return d.band.Metadata(key)
}

func (d *Dataset) Close() error {
	return d.ds.Close()
}
