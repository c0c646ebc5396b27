package raster

import "fmt"

// MemDataset is an in-memory Dataset, used for synthetic fixtures and tests.
type MemDataset struct {
	cols, rows int
	values     []float64
	metadata   map[string]string
}

// NewMemDataset wraps row-major values of a cols x rows raster.
func NewMemDataset(cols, rows int, values []float64, metadata map[string]string) (*MemDataset, error) {
	if cols <= 0 || rows <= 0 || len(values) != cols*rows {
		return nil, fmt.Errorf("memory dataset: %d values for %dx%d raster", len(values), cols, rows)
	}
	return &MemDataset{cols: cols, rows: rows, values: values, metadata: metadata}, nil
}

func (m *MemDataset) Size() (int, int) { return m.cols, m.rows }

func (m *MemDataset) ReadWindow(w Window, buf []float64) error {
	if !w.Fits(m.cols, m.rows) {
		return fmt.Errorf("window %s outside %dx%d raster", w, m.cols, m.rows)
	}
	if len(buf) != w.Len() {
		return fmt.Errorf("buffer holds %d values, window needs %d", len(buf), w.Len())
	}
	for row := range w.Height {
		src := (w.Y+row)*m.cols + w.X
		copy(buf[row*w.Width:(row+1)*w.Width], m.values[src:src+w.Width])
	}
	return nil
}

func (m *MemDataset) Metadata(key string) string { return m.metadata[key] }

func (m *MemDataset) Close() error { return nil }
