// Package parquetstore persists observation batches, coalesced series and
// summaries as Parquet files.
package parquetstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// row is the on-disk schema shared by per-file batches, monthly partials and
// final coalesced series. Times are Unix seconds, UTC.
type row struct {
	X         int32   `parquet:"x"`
	Y         int32   `parquet:"y"`
	ValidTime int64   `parquet:"valid_time"`
	FcstTime  int64   `parquet:"fcst_time"`
	Value     float64 `parquet:"value"`
}

type summaryRow struct {
	X         int32   `parquet:"x"`
	Y         int32   `parquet:"y"`
	MonthHalf int32   `parquet:"month_half"`
	Count     int64   `parquet:"count"`
	Mean      float64 `parquet:"mean"`
	StdDev    float64 `parquet:"std"`
}

// Store reads and writes Parquet files on the local filesystem.
type Store struct{}

// New creates a Store.
func New() *Store { return &Store{} }

// WriteObservations writes one per-file observation batch.
func (s *Store) WriteObservations(path string, obs []domain.Observation) error {
	rows := make([]row, len(obs))
	for i, o := range obs {
		rows[i] = row{
			X:         int32(o.X),
			Y:         int32(o.Y),
			ValidTime: o.ValidTime.Unix(),
			FcstTime:  o.FcstTime.Unix(),
			Value:     o.Value,
		}
	}
	return writeFile(path, rows)
}

// WriteRecords writes a coalesced series.
func (s *Store) WriteRecords(path string, records []domain.CoalescedRecord) error {
	return s.WriteObservations(path, domain.RecordsToObservations(records))
}

// ReadObservations reads any file written by WriteObservations or WriteRecords.
func (s *Store) ReadObservations(path string) ([]domain.Observation, error) {
	rows, err := parquet.ReadFile[row](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := make([]domain.Observation, len(rows))
	for i, r := range rows {
		out[i] = domain.Observation{
			X:         int(r.X),
			Y:         int(r.Y),
			ValidTime: time.Unix(r.ValidTime, 0).UTC(),
			FcstTime:  time.Unix(r.FcstTime, 0).UTC(),
			Value:     r.Value,
		}
	}
	return out, nil
}

// ReadRecords reads a coalesced series.
func (s *Store) ReadRecords(path string) ([]domain.CoalescedRecord, error) {
	obs, err := s.ReadObservations(path)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CoalescedRecord, len(obs))
	for i, o := range obs {
		out[i] = domain.CoalescedRecord{X: o.X, Y: o.Y, ValidTime: o.ValidTime, Value: o.Value, FcstTime: o.FcstTime}
	}
	return out, nil
}

// WriteSummaries writes half-month summary statistics.
func (s *Store) WriteSummaries(path string, summaries []domain.Summary) error {
	rows := make([]summaryRow, len(summaries))
	for i, sm := range summaries {
		rows[i] = summaryRow{
			X:         int32(sm.X),
			Y:         int32(sm.Y),
			MonthHalf: int32(sm.MonthHalf),
			Count:     int64(sm.Count),
			Mean:      sm.Mean,
			StdDev:    sm.StdDev,
		}
	}
	return writeFile(path, rows)
}

// ReadSummaries reads a file written by WriteSummaries.
func (s *Store) ReadSummaries(path string) ([]domain.Summary, error) {
	rows, err := parquet.ReadFile[summaryRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := make([]domain.Summary, len(rows))
	for i, r := range rows {
		out[i] = domain.Summary{
			X:         int(r.X),
			Y:         int(r.Y),
			MonthHalf: int(r.MonthHalf),
			Count:     int(r.Count),
			Mean:      r.Mean,
			StdDev:    r.StdDev,
		}
	}
	return out, nil
}

// writeFile writes rows to a temporary file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeFile[T any](path string, rows []T) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finish %s: %w", path, err)
	}
	if err := errors.Join(f.Sync(), f.Close()); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
