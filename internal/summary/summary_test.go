package summary

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(x, y int, date string, v float64) domain.CoalescedRecord {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic(err)
	}
	return domain.CoalescedRecord{X: x, Y: y, ValidTime: d, Value: v, FcstTime: d.Add(-time.Hour)}
}

func TestSummarize(t *testing.T) {
	got := Summarize([]domain.CoalescedRecord{
		rec(1, 1, "2019-01-02", 2),
		rec(1, 1, "2019-01-03", 4),
		rec(1, 1, "2019-01-04", 6),
		rec(1, 1, "2019-01-20", 10),
		rec(0, 5, "2019-03-01", 1),
	})

	require.Len(t, got, 3)

	assert.Equal(t, 0, got[0].X)
	assert.Equal(t, 5, got[0].MonthHalf)
	assert.Equal(t, 1, got[0].Count)
	assert.True(t, math.IsNaN(got[0].StdDev))

	assert.Equal(t, domain.Summary{X: 1, Y: 1, MonthHalf: 1, Count: 3, Mean: 4, StdDev: 2}, got[1])

	assert.Equal(t, 2, got[2].MonthHalf)
	assert.Equal(t, 10.0, got[2].Mean)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}
