package intersect

import (
	"encoding/json"
	"testing"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ndfd(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.NewNDFD()
	require.NoError(t, err)
	return g
}

func TestNew_RequiresSourceCRS(t *testing.T) {
	_, err := New(ndfd(t), "", Options{})
	require.ErrorIs(t, err, grid.ErrConfig)
}

func TestIntersect_DeduplicatesAndCountsOutOfBounds(t *testing.T) {
	in, err := New(ndfd(t), grid.WGS84, Options{})
	require.NoError(t, err)

	res, err := in.Intersect([]orb.Point{
		{-95, 25},
		{-95.0001, 25.0001},
		{10, 50}, // central Europe
		{-95, 25},
	})
	require.NoError(t, err)

	assert.Equal(t, []grid.Cell{{X: 1088, Y: 1272}}, res.Cells)
	assert.Equal(t, 1, res.OutOfBounds)
}

func TestIntersectPaths_SortedByRowThenColumn(t *testing.T) {
	in, err := New(ndfd(t), grid.WGS84, Options{})
	require.NoError(t, err)

	// A north-south trail in Colorado crosses many rows.
	res, err := in.IntersectPaths([]orb.LineString{
		{{-105.60, 39.00}, {-105.60, 39.10}},
		{{-105.60, 39.20}, {-105.59, 39.20}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Cells)
	assert.Zero(t, res.OutOfBounds)

	for i := 1; i < len(res.Cells); i++ {
		prev, cur := res.Cells[i-1], res.Cells[i]
		assert.True(t, prev.Y < cur.Y || (prev.Y == cur.Y && prev.X < cur.X), "cells %s, %s out of order", prev, cur)
	}
}

func TestIntersect_FillUnsupported(t *testing.T) {
	in, err := New(ndfd(t), grid.WGS84, Options{Fill: true})
	require.NoError(t, err)

	res, err := in.Intersect([]orb.Point{{-95, 25}})
	require.ErrorIs(t, err, ErrFillUnsupported)
	assert.Empty(t, res.Cells)
}

func TestPaths_SkipsUnsupportedGeometry(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{-105, 39}, {-105.1, 39.1}}))
	fc.Append(geojson.NewFeature(orb.Point{-105, 39}))
	fc.Append(geojson.NewFeature(orb.MultiLineString{{{-105, 39}, {-105.1, 39.1}}}))

	paths, errs := Paths(fc)
	require.Len(t, paths, 1)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], ErrUnsupportedGeometry)
	assert.Contains(t, errs[0].Error(), "feature 1 is a Point")
	assert.Contains(t, errs[1].Error(), "MultiLineString")
}

func TestProjector_PolygonContainsSite(t *testing.T) {
	g := ndfd(t)
	p, err := NewProjector(g, grid.WGS84)
	require.NoError(t, err)

	cell := grid.Cell{X: 1088, Y: 1272}
	site, err := p.Site(cell)
	require.NoError(t, err)
	assert.InDelta(t, -95, site.Lon, 0.05)
	assert.InDelta(t, 25, site.Lat, 0.05)

	poly, err := p.Polygon(cell)
	require.NoError(t, err)
	require.Len(t, poly, 1)
	require.Len(t, poly[0], 5)
	assert.Equal(t, poly[0][0], poly[0][4], "ring must be closed")
	assert.True(t, planar.PolygonContains(poly, orb.Point{site.Lon, site.Lat}))
}

func TestProjector_InvalidCell(t *testing.T) {
	p, err := NewProjector(ndfd(t), grid.WGS84)
	require.NoError(t, err)

	_, err = p.Polygon(grid.Cell{X: -1, Y: 0})
	require.ErrorIs(t, err, grid.ErrOutOfBounds)
}

func TestFeatureCollection_RoundTrip(t *testing.T) {
	p, err := NewProjector(ndfd(t), grid.WGS84)
	require.NoError(t, err)

	sites := []domain.CellSite{
		{X: 500, Y: 600},
		{X: 501, Y: 600, Elevation: 1609.3, HasElevation: true},
	}
	fc, err := p.FeatureCollection(sites)
	require.NoError(t, err)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	decoded, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)

	cells, err := Cells(decoded)
	require.NoError(t, err)
	assert.Equal(t, []grid.Cell{{X: 500, Y: 600}, {X: 501, Y: 600}}, cells)

	_, ok := decoded.Features[0].Properties[PropElevation]
	assert.False(t, ok)
	assert.InDelta(t, 1609.3, decoded.Features[1].Properties.MustFloat64(PropElevation), 1e-9)
	assert.Equal(t, orb.Polygon{}.GeoJSONType(), decoded.Features[0].Geometry.GeoJSONType())
}

func TestCells_MissingProperty(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties[PropX] = 3
	fc.Append(f)

	_, err := Cells(fc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y" missing`)
}
