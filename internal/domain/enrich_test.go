package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock elevation lookup ---

type mockElevation struct {
	meters float64
	err    error
	calls  int
}

func (m *mockElevation) Elevation(_ context.Context, _, _ float64) (float64, error) {
	m.calls++
	return m.meters, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestEnrichWithElevation_NilLookup(t *testing.T) {
	site := CellSite{X: 1, Y: 2, Lat: 39.7, Lon: -105}

	result := EnrichWithElevation(context.Background(), site, nil, discardLogger())

	assert.False(t, result.HasElevation)
	assert.Empty(t, result.ElevationSource)
}

func TestEnrichWithElevation_Success(t *testing.T) {
	lookup := &mockElevation{meters: 1609.3}
	site := CellSite{X: 1, Y: 2, Lat: 39.7, Lon: -105}

	result := EnrichWithElevation(context.Background(), site, lookup, discardLogger())

	assert.True(t, result.HasElevation)
	assert.Equal(t, 1609.3, result.Elevation)
	assert.Equal(t, "nws", result.ElevationSource)
	assert.Equal(t, 1, lookup.calls)
}

func TestEnrichWithElevation_NoCoverage(t *testing.T) {
	lookup := &mockElevation{err: fmt.Errorf("points 25.00,-110.00: %w", ErrNoCoverage)}
	site := CellSite{Lat: 25, Lon: -110}

	result := EnrichWithElevation(context.Background(), site, lookup, discardLogger())

	assert.False(t, result.HasElevation)
	assert.Equal(t, "no_coverage", result.ElevationSource)
}

func TestEnrichWithElevation_Failure(t *testing.T) {
	lookup := &mockElevation{err: errors.New("connection refused")}
	site := CellSite{Lat: 35, Lon: -97}

	result := EnrichWithElevation(context.Background(), site, lookup, discardLogger())

	assert.False(t, result.HasElevation)
	assert.Equal(t, "failed", result.ElevationSource)
}

func TestNewManifest_UsesClock(t *testing.T) {
	at := time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	defer SetClock(nil)

	m := NewManifest("YEU")
	assert.Equal(t, "YEU", m.Element)
	assert.Equal(t, at, m.GeneratedAt)
}

func TestManifest_ObserveRange(t *testing.T) {
	t1 := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)

	var m Manifest
	m.ObserveRange([]CoalescedRecord{{ValidTime: t2}, {ValidTime: t1}})
	m.ObserveRange([]CoalescedRecord{{ValidTime: t3}})

	assert.Equal(t, t1, m.FirstValidTime)
	assert.Equal(t, t3, m.LastValidTime)
}

func TestObservation_Validate(t *testing.T) {
	valid := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	ok := Observation{X: 1, Y: 2, ValidTime: valid, FcstTime: valid.Add(-time.Hour), Value: 3}
	require.NoError(t, ok.Validate())

	neg := ok
	neg.X = -1
	require.Error(t, neg.Validate())

	noFcst := ok
	noFcst.FcstTime = time.Time{}
	err := noFcst.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(1, 2)")
	assert.Contains(t, err.Error(), "fcst_time")
}

func TestRecordsToObservations(t *testing.T) {
	valid := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []CoalescedRecord{{X: 4, Y: 5, ValidTime: valid, Value: 7, FcstTime: valid.Add(-time.Hour)}}

	obs := RecordsToObservations(recs)
	require.Len(t, obs, 1)
	assert.Equal(t, Observation{X: 4, Y: 5, ValidTime: valid, FcstTime: valid.Add(-time.Hour), Value: 7}, obs[0])
}
