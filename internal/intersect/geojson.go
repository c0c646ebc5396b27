package intersect

import (
	"fmt"
	"math"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature property keys of a cells collection.
const (
	PropX         = "x"
	PropY         = "y"
	PropElevation = "ele"
)

// Paths returns the LineString features of fc. Every other geometry yields an
// error wrapping ErrUnsupportedGeometry that names the feature; those features
// are skipped, never converted.
func Paths(fc *geojson.FeatureCollection) ([]orb.LineString, []error) {
	var (
		paths []orb.LineString
		errs  []error
	)
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			paths = append(paths, g)
		case nil:
			errs = append(errs, fmt.Errorf("%w: feature %d has no geometry", ErrUnsupportedGeometry, i))
		default:
			errs = append(errs, fmt.Errorf("%w: feature %d is a %s", ErrUnsupportedGeometry, i, g.GeoJSONType()))
		}
	}
	return paths, errs
}

// Projector converts grid cells into geographic shapes.
type Projector struct {
	grid  *grid.Grid
	toGeo proj.Transformer
}

// NewProjector builds a Projector emitting coordinates in outputCRS.
func NewProjector(g *grid.Grid, outputCRS string) (*Projector, error) {
	toGeo, err := g.TransformTo(outputCRS)
	if err != nil {
		return nil, err
	}
	return &Projector{grid: g, toGeo: toGeo}, nil
}

// Site returns c with its center in the output CRS.
func (p *Projector) Site(c grid.Cell) (domain.CellSite, error) {
	center, err := p.grid.Center(c)
	if err != nil {
		return domain.CellSite{}, err
	}
	lon, lat, err := p.toGeo(center.X, center.Y)
	if err != nil {
		return domain.CellSite{}, fmt.Errorf("reproject center of cell %s: %w", c, err)
	}
	return domain.CellSite{X: c.X, Y: c.Y, Lat: lat, Lon: lon}, nil
}

// Polygon returns the closed outline of c in the output CRS.
func (p *Projector) Polygon(c grid.Cell) (orb.Polygon, error) {
	b, err := p.grid.ToWorldBounds(c)
	if err != nil {
		return nil, err
	}
	corners := [...][2]float64{
		{b.Min.X, b.Min.Y},
		{b.Max.X, b.Min.Y},
		{b.Max.X, b.Max.Y},
		{b.Min.X, b.Max.Y},
	}
	ring := make(orb.Ring, 0, len(corners)+1)
	for _, xy := range corners {
		lon, lat, err := p.toGeo(xy[0], xy[1])
		if err != nil {
			return nil, fmt.Errorf("reproject corner of cell %s: %w", c, err)
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}, nil
}

// FeatureCollection renders sites as polygon features with x, y and, when
// known, ele properties.
func (p *Projector) FeatureCollection(sites []domain.CellSite) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, s := range sites {
		poly, err := p.Polygon(grid.Cell{X: s.X, Y: s.Y})
		if err != nil {
			return nil, err
		}
		f := geojson.NewFeature(poly)
		f.Properties[PropX] = s.X
		f.Properties[PropY] = s.Y
		if s.HasElevation {
			f.Properties[PropElevation] = s.Elevation
		}
		fc.Append(f)
	}
	return fc, nil
}

// Cells reads the x and y properties of a cells collection.
func Cells(fc *geojson.FeatureCollection) ([]grid.Cell, error) {
	cells := make([]grid.Cell, 0, len(fc.Features))
	for i, f := range fc.Features {
		x, err := intProperty(f.Properties, PropX)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		y, err := intProperty(f.Properties, PropY)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		cells = append(cells, grid.Cell{X: x, Y: y})
	}
	return cells, nil
}

func intProperty(props geojson.Properties, key string) (int, error) {
	switch v := props[key].(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("property %q is not an integer: %v", key, v)
		}
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("property %q missing", key)
	default:
		return 0, fmt.Errorf("property %q has type %T", key, v)
	}
}
