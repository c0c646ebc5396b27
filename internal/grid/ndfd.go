package grid

// WGS84 is the geographic CRS used for geometry input and cell output.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// NDFDProj is the Lambert Conformal Conic projection of the NDFD CONUS grid on
// a sphere of radius 6,371,200 m.
const NDFDProj = "+proj=lcc +lat_0=25 +lon_0=265 +lat_1=25 +lat_2=25 +x_0=0 +y_0=0 +a=6371200 +b=6371200 +units=m +no_defs"

// NDFD returns the definition of the National Digital Forecast Database
// CONUS 2.5 km grid. The constants match the GeoTransform GDAL reports for
// NDFD GRIB2 files.
func NDFD() Definition {
	return Definition{
		Proj:       NDFDProj,
		OriginX:    -2764474.35,
		OriginY:    3232111.71,
		CellWidth:  2539.70,
		CellHeight: -2539.70,
		Columns:    2145,
		Rows:       1377,
	}
}

// NewNDFD builds the NDFD CONUS grid.
func NewNDFD() (*Grid, error) {
	return New(NDFD())
}
