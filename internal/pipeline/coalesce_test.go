package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/coalesce"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLoader struct {
	element string
	records []domain.CoalescedRecord
	err     error
}

func (l *recordingLoader) LoadRecords(_ context.Context, element string, records []domain.CoalescedRecord) error {
	if l.err != nil {
		return l.err
	}
	l.element = element
	l.records = records
	return nil
}

func obs(x, y int, valid, fcst time.Time, v float64) domain.Observation {
	return domain.Observation{X: x, Y: y, ValidTime: valid, FcstTime: fcst, Value: v}
}

func writeBatch(t *testing.T, store *parquetstore.Store, dir, name string, batch []domain.Observation) string {
	t.Helper()
	path := filepath.Join(dir, name+".parquet")
	require.NoError(t, store.WriteObservations(path, batch))
	return path
}

func TestCoalesce_Run_AcrossMonths(t *testing.T) {
	fixed := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	store := parquetstore.New()
	in := t.TempDir()
	out := t.TempDir()

	jan31 := time.Date(2019, time.January, 31, 12, 0, 0, 0, time.UTC)
	feb1 := time.Date(2019, time.February, 1, 0, 0, 0, 0, time.UTC)
	feb2 := time.Date(2019, time.February, 2, 0, 0, 0, 0, time.UTC)

	inputs := []string{
		// January issuance forecasting into February.
		writeBatch(t, store, in, "YEUZ98_KWBN_201901311200", []domain.Observation{
			obs(1, 1, feb1, jan31, 10),
			obs(1, 1, feb2, jan31, 20),
			obs(2, 1, feb1, jan31, 9999),
		}),
		// A later February issuance supersedes the overlapping valid time.
		writeBatch(t, store, in, "YEUZ98_KWBN_201902010000", []domain.Observation{
			obs(1, 1, feb1, feb1, 12),
			obs(2, 1, feb1, feb1, 7),
		}),
		// A different element is coalesced separately.
		writeBatch(t, store, in, "YGUZ98_KWBN_201902010000", []domain.Observation{
			obs(1, 1, feb1, feb1, 3),
		}),
		filepath.Join(in, "README"),
	}

	loader := &recordingLoader{}
	metrics := newTestMetrics()
	job := pipeline.NewCoalesce(coalesce.New(coalesce.DefaultMissing), store, loader, discardLogger(), metrics)

	manifests, err := job.Run(context.Background(), inputs, out)
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, pipeline.StatusSnapshot{Job: "coalesce", Total: 4, Done: 3, Skipped: 1, Finished: true}, job.Status().Snapshot())

	yeu := manifests[0]
	assert.Equal(t, "YEU", yeu.Element)
	assert.Equal(t, filepath.Join(out, "yeu.parquet"), yeu.Output)
	assert.Equal(t, 2, yeu.Sources)
	assert.Equal(t, []string{"2019-01", "2019-02"}, yeu.Months)
	assert.Equal(t, 5, yeu.InputObservations)
	assert.Equal(t, 1, yeu.DroppedMissing)
	assert.Equal(t, 3, yeu.OutputRecords)
	assert.Equal(t, feb1, yeu.FirstValidTime)
	assert.Equal(t, feb2, yeu.LastValidTime)
	assert.Equal(t, fixed, yeu.GeneratedAt)

	got, err := store.ReadRecords(yeu.Output)
	require.NoError(t, err)
	want := []domain.CoalescedRecord{
		{X: 1, Y: 1, ValidTime: feb1, Value: 12, FcstTime: feb1},
		{X: 1, Y: 1, ValidTime: feb2, Value: 20, FcstTime: jan31},
		{X: 2, Y: 1, ValidTime: feb1, Value: 7, FcstTime: feb1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("coalesced series mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "YGU", manifests[1].Element)
	assert.Equal(t, 1, manifests[1].OutputRecords)

	// The loader sees the last element published.
	assert.Equal(t, "YGU", loader.element)
	assert.Len(t, loader.records, 1)
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.RecordsPublished))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.CoalesceInput.WithLabelValues("YEU")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CoalesceDroppedMissing.WithLabelValues("YEU")))
}

func TestCoalesce_Run_RemovesPartials(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	store := parquetstore.New()
	in := t.TempDir()
	inputs := []string{
		writeBatch(t, store, in, "YEUZ98_KWBN_201901011200", []domain.Observation{obs(0, 0, jan2, jan1, 1)}),
	}

	job := pipeline.NewCoalesce(coalesce.New(coalesce.DefaultMissing), store, nil, discardLogger(), newTestMetrics())
	_, err := job.Run(context.Background(), inputs, t.TempDir())
	require.NoError(t, err)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// failingStore delegates to a parquet store and fails selected calls.
type failingStore struct {
	*parquetstore.Store
	failReadOn  string // input path whose read fails
	failWriteIn string // directory whose writes fail
}

func (s *failingStore) ReadObservations(path string) ([]domain.Observation, error) {
	if path == s.failReadOn {
		return nil, errors.New("read interrupted")
	}
	return s.Store.ReadObservations(path)
}

func (s *failingStore) WriteRecords(path string, records []domain.CoalescedRecord) error {
	if s.failWriteIn != "" && filepath.Dir(path) == s.failWriteIn {
		return errors.New("output volume full")
	}
	return s.Store.WriteRecords(path, records)
}

func TestCoalesce_Run_RemovesPartialsOnFailure(t *testing.T) {
	in := t.TempDir()
	store := parquetstore.New()
	first := writeBatch(t, store, in, "YEUZ98_KWBN_201901011200", []domain.Observation{obs(0, 0, jan2, jan1, 1)})
	second := writeBatch(t, store, in, "YEUZ98_KWBN_201901011800", []domain.Observation{obs(0, 0, jan2, jan1.Add(6*time.Hour), 2)})
	feb := writeBatch(t, store, in, "YEUZ98_KWBN_201902011200", []domain.Observation{obs(0, 0, jan2.AddDate(0, 1, 0), jan1.AddDate(0, 1, 0), 3)})
	lateFeb := writeBatch(t, store, in, "YEUZ98_KWBN_201902011800", []domain.Observation{obs(0, 0, jan2.AddDate(0, 1, 0), jan1.AddDate(0, 1, 0).Add(6*time.Hour), 4)})
	out := t.TempDir()

	tests := []struct {
		name    string
		store   *failingStore
		wantErr string
	}{
		{"read fails partway through a later month", &failingStore{Store: store, failReadOn: lateFeb}, "read interrupted"},
		{"final write fails", &failingStore{Store: store, failWriteIn: out}, "output volume full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			t.Setenv("TMPDIR", tmp)

			job := pipeline.NewCoalesce(coalesce.New(coalesce.DefaultMissing), tt.store, nil, discardLogger(), newTestMetrics())
			_, err := job.Run(context.Background(), []string{first, second, feb, lateFeb}, out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			entries, err := os.ReadDir(tmp)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestCoalesce_Run_NoRecognizedInputs(t *testing.T) {
	job := pipeline.NewCoalesce(coalesce.New(coalesce.DefaultMissing), parquetstore.New(), nil, discardLogger(), newTestMetrics())
	_, err := job.Run(context.Background(), []string{"notes.txt"}, t.TempDir())
	require.Error(t, err)
}

func TestCoalesce_Run_InvalidObservationNamesGroup(t *testing.T) {
	store := parquetstore.New()
	in := t.TempDir()
	inputs := []string{
		writeBatch(t, store, in, "YEUZ98_KWBN_201901011200", []domain.Observation{obs(-1, 4, jan2, jan1, 1)}),
	}

	job := pipeline.NewCoalesce(coalesce.New(coalesce.DefaultMissing), store, nil, discardLogger(), newTestMetrics())
	_, err := job.Run(context.Background(), inputs, t.TempDir())
	require.ErrorIs(t, err, coalesce.ErrInvalidObservation)
	assert.Contains(t, err.Error(), "x=-1, y=4")
}

func TestCoalesce_Run_PublishError(t *testing.T) {
	store := parquetstore.New()
	in := t.TempDir()
	inputs := []string{
		writeBatch(t, store, in, "YEUZ98_KWBN_201901011200", []domain.Observation{obs(0, 0, jan2, jan1, 1)}),
	}

	loader := &recordingLoader{err: errors.New("broker down")}
	job := pipeline.NewCoalesce(coalesce.New(coalesce.DefaultMissing), store, loader, discardLogger(), newTestMetrics())
	_, err := job.Run(context.Background(), inputs, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
