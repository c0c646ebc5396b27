package grid

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := New(Definition{
		Proj:       NDFDProj,
		CellWidth:  10,
		CellHeight: 10,
		Columns:    5,
		Rows:       5,
	})
	require.NoError(t, err)
	return g
}

func TestToIndex(t *testing.T) {
	g := smallGrid(t)

	cell, err := g.ToIndex(23, 41)
	require.NoError(t, err)
	assert.Equal(t, Cell{X: 2, Y: 4}, cell)

	b, err := g.ToWorldBounds(cell)
	require.NoError(t, err)
	assert.Equal(t, 20.0, b.Min.X)
	assert.Equal(t, 40.0, b.Min.Y)
	assert.Equal(t, 30.0, b.Max.X)
	assert.Equal(t, 50.0, b.Max.Y)
}

func TestToIndex_LowerEdgeBelongsToCell(t *testing.T) {
	g := smallGrid(t)

	cell, err := g.ToIndex(10, 0)
	require.NoError(t, err)
	assert.Equal(t, Cell{X: 1, Y: 0}, cell)
}

func TestToIndex_OutOfBounds(t *testing.T) {
	g := smallGrid(t)

	tests := []struct {
		name string
		x, y float64
	}{
		{"negative x", -0.5, 10},
		{"negative y", 10, -0.01},
		{"x past last column", 50, 10},
		{"y past last row", 10, 50},
		{"far away", 1e9, -1e9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.ToIndex(tt.x, tt.y)
			require.ErrorIs(t, err, ErrOutOfBounds)
		})
	}
}

func TestToWorldBounds_InvalidCell(t *testing.T) {
	g := smallGrid(t)

	_, err := g.ToWorldBounds(Cell{X: 5, Y: 0})
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = g.ToWorldBounds(Cell{X: 0, Y: -1})
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestRoundTripContainment(t *testing.T) {
	g, err := NewNDFD()
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))

	for range 2000 {
		want := Cell{X: rng.IntN(g.Columns()), Y: rng.IntN(g.Rows())}
		b, err := g.ToWorldBounds(want)
		require.NoError(t, err)

		fx := 0.01 + 0.98*rng.Float64()
		fy := 0.01 + 0.98*rng.Float64()
		x := b.Min.X + fx*(b.Max.X-b.Min.X)
		y := b.Min.Y + fy*(b.Max.Y-b.Min.Y)

		got, err := g.ToIndex(x, y)
		require.NoError(t, err)
		require.Equal(t, want, got, "point (%f, %f)", x, y)
	}
}

func TestNDFDBoundsAreNorthUp(t *testing.T) {
	g, err := NewNDFD()
	require.NoError(t, err)

	b, err := g.ToWorldBounds(Cell{X: 0, Y: 0})
	require.NoError(t, err)
	assert.InDelta(t, -2764474.35, b.Min.X, 1e-6)
	assert.InDelta(t, 3232111.71, b.Max.Y, 1e-6)
	assert.InDelta(t, 3232111.71-2539.70, b.Min.Y, 1e-6)
}

func TestNew_InvalidDefinition(t *testing.T) {
	base := NDFD()

	tests := []struct {
		name   string
		modify func(*Definition)
	}{
		{"zero columns", func(d *Definition) { d.Columns = 0 }},
		{"negative rows", func(d *Definition) { d.Rows = -1 }},
		{"zero cell width", func(d *Definition) { d.CellWidth = 0 }},
		{"missing projection", func(d *Definition) { d.Proj = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base
			tt.modify(&def)
			_, err := New(def)
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestTransformFrom_WGS84(t *testing.T) {
	g, err := NewNDFD()
	require.NoError(t, err)

	toGrid, err := g.TransformFrom(WGS84)
	require.NoError(t, err)

	// The projection origin sits on the central meridian at 25N.
	x, y, err := toGrid(-95, 25)
	require.NoError(t, err)
	assert.InDelta(t, 0, x, 1)
	assert.InDelta(t, 0, y, 1)

	cell, err := g.ToIndex(x, y)
	require.NoError(t, err)
	assert.Equal(t, Cell{X: 1088, Y: 1272}, cell)
}

func TestTransformTo_RoundTrip(t *testing.T) {
	g, err := NewNDFD()
	require.NoError(t, err)

	toGrid, err := g.TransformFrom(WGS84)
	require.NoError(t, err)
	toGeo, err := g.TransformTo(WGS84)
	require.NoError(t, err)

	x, y, err := toGrid(-104.99, 39.74)
	require.NoError(t, err)
	lon, lat, err := toGeo(x, y)
	require.NoError(t, err)
	assert.InDelta(t, -104.99, lon, 1e-6)
	assert.InDelta(t, 39.74, lat, 1e-6)
}

func TestTransformFrom_EmptyCRS(t *testing.T) {
	g, err := NewNDFD()
	require.NoError(t, err)

	_, err = g.TransformFrom("")
	require.ErrorIs(t, err, ErrConfig)
}
