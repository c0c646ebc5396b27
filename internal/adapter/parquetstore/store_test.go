package parquetstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservations_WriteRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "YEUZ98_KWBN_201901011200.parquet")
	valid := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	fcst := time.Date(2019, 1, 1, 12, 0, 0, 0, time.UTC)
	in := []domain.Observation{
		{X: 10, Y: 20, ValidTime: valid, FcstTime: fcst, Value: 271.5},
		{X: 11, Y: 20, ValidTime: valid, FcstTime: fcst, Value: 9999},
	}

	s := New()
	require.NoError(t, s.WriteObservations(path, in))

	got, err := s.ReadObservations(path)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file should be renamed away")
}

func TestRecords_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yeu.parquet")
	valid := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	in := []domain.CoalescedRecord{
		{X: 1, Y: 2, ValidTime: valid, Value: 3.25, FcstTime: valid.Add(-6 * time.Hour)},
	}

	s := New()
	require.NoError(t, s.WriteRecords(path, in))
	got, err := s.ReadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestSummaries_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yeu_summary.parquet")
	in := []domain.Summary{{X: 1, Y: 2, MonthHalf: 3, Count: 14, Mean: 270.1, StdDev: 2.5}}

	s := New()
	require.NoError(t, s.WriteSummaries(path, in))
	got, err := s.ReadSummaries(path)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestReadObservations_MissingFile(t *testing.T) {
	_, err := New().ReadObservations(filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.parquet")
}

func TestWriteObservations_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.parquet")
	s := New()
	valid := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WriteObservations(path, []domain.Observation{{X: 1, ValidTime: valid, FcstTime: valid, Value: 1}}))
	require.NoError(t, s.WriteObservations(path, []domain.Observation{{X: 2, ValidTime: valid, FcstTime: valid, Value: 2}}))

	got, err := s.ReadObservations(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].X)
}
