// Package coalesce reduces overlapping forecast issuances to one value per
// grid cell and valid time: the value from the latest issuance.
package coalesce

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
)

// ErrInvalidObservation is returned when an input observation cannot be grouped.
var ErrInvalidObservation = errors.New("invalid observation")

// DefaultMissing is the NDFD missing-value sentinel.
const DefaultMissing = 9999

// Stats counts what a Coalesce call consumed and produced.
type Stats struct {
	Input          int
	DroppedMissing int
	Output         int
}

// Coalescer keeps the most recent forecast per (x, y, valid_time).
// It holds no state between calls and is safe for concurrent use.
type Coalescer struct {
	missing float64
}

// New creates a Coalescer that drops values equal to missing.
// A NaN sentinel drops NaN values.
func New(missing float64) *Coalescer {
	return &Coalescer{missing: missing}
}

type seriesKey struct {
	x, y  int
	valid int64
}

// Coalesce merges the batches and returns one record per (x, y, valid_time),
// sorted by x, y, then valid time.
//
// Among observations sharing a key the one with the greatest fcst_time wins.
// When several share that fcst_time, the last one in input order (batch
// order, then position within the batch) wins.
// TODO: confirm against a full archive whether identical (cell, valid_time,
// fcst_time) triples ever occur across source files; if not, this can error
// instead.
//
// The inputs are not modified.
func (c *Coalescer) Coalesce(batches ...[]domain.Observation) ([]domain.CoalescedRecord, Stats, error) {
	var stats Stats
	winners := make(map[seriesKey]domain.Observation)

	for _, batch := range batches {
		for _, o := range batch {
			stats.Input++
			if err := o.Validate(); err != nil {
				return nil, stats, fmt.Errorf("%w: group (x=%d, y=%d, valid_time=%s): %w",
					ErrInvalidObservation, o.X, o.Y, formatTime(o.ValidTime), err)
			}
			if c.isMissing(o.Value) {
				stats.DroppedMissing++
				continue
			}

			k := seriesKey{x: o.X, y: o.Y, valid: o.ValidTime.UnixNano()}
			if cur, ok := winners[k]; ok && o.FcstTime.Before(cur.FcstTime) {
				continue
			}
			winners[k] = o
		}
	}

	out := make([]domain.CoalescedRecord, 0, len(winners))
	for _, o := range winners {
		out = append(out, domain.CoalescedRecord{
			X:         o.X,
			Y:         o.Y,
			ValidTime: o.ValidTime.UTC(),
			Value:     o.Value,
			FcstTime:  o.FcstTime.UTC(),
		})
	}
	SortRecords(out)
	stats.Output = len(out)
	return out, stats, nil
}

func (c *Coalescer) isMissing(v float64) bool {
	if math.IsNaN(c.missing) {
		return math.IsNaN(v)
	}
	return v == c.missing
}

// SortRecords orders records by x, y, then valid time.
func SortRecords(records []domain.CoalescedRecord) {
	slices.SortFunc(records, func(a, b domain.CoalescedRecord) int {
		if n := cmp.Compare(a.X, b.X); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Y, b.Y); n != 0 {
			return n
		}
		return a.ValidTime.Compare(b.ValidTime)
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "<zero>"
	}
	return t.UTC().Format(time.RFC3339)
}
