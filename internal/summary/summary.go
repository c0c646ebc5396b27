// Package summary computes per-cell climatology of coalesced forecasts.
package summary

import (
	"cmp"
	"slices"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"gonum.org/v1/gonum/stat"
)

type binKey struct {
	x, y, half int
}

// Summarize groups records by cell and half-month bin and returns the count,
// mean and sample standard deviation of each group, sorted by x, y, bin.
// A group with a single value has a NaN standard deviation.
func Summarize(records []domain.CoalescedRecord) []domain.Summary {
	groups := make(map[binKey][]float64)
	for _, r := range records {
		k := binKey{x: r.X, y: r.Y, half: domain.MonthHalf(r.ValidTime)}
		groups[k] = append(groups[k], r.Value)
	}

	out := make([]domain.Summary, 0, len(groups))
	for k, values := range groups {
		mean, std := stat.MeanStdDev(values, nil)
		out = append(out, domain.Summary{
			X:         k.x,
			Y:         k.y,
			MonthHalf: k.half,
			Count:     len(values),
			Mean:      mean,
			StdDev:    std,
		})
	}

	slices.SortFunc(out, func(a, b domain.Summary) int {
		if n := cmp.Compare(a.X, b.X); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Y, b.Y); n != 0 {
			return n
		}
		return cmp.Compare(a.MonthHalf, b.MonthHalf)
	})
	return out
}
