// Package domain models National Digital Forecast Database (NDFD) forecast
// values and the files they arrive in.
//
// # Data Source
//
// NDFD forecasts are archived by NCEI as tarballs of GRIB2 files, one file per
// forecast element, product series and issuance. Every file covers the same
// CONUS 2.5 km grid (see package grid), so a cell's (x, y) index is stable
// across files and across years.
//
// # File Naming
//
//	"<element>Z<series>_<office>_<YYYYMMDDHHMM>"  →  e.g. "YEUZ98_KWBN_201901011200"
//
//	element: three-letter product code, e.g. YEU (max temperature),
//	         YGU (min temperature), YAU (hourly temperature).
//	series:  Z98 covers days 1-3, Z97 covers days 4-7.
//	office:  issuing center, KWBN for the national mosaic.
//	time:    approximate issuance minute, UTC.
//
// The name is only used to group files by element and month. The exact
// issuance and validity times come from the GRIB2 band metadata:
//
//	GRIB_REF_TIME   "1546344000 sec UTC"  →  forecast issuance (fcst_time)
//	GRIB_VALID_TIME "1546387200 sec UTC"  →  time the value applies (valid_time)
//
// # Forecast Overlap
//
// A single valid time is forecast many times: daily maximum temperature is
// reissued hourly, so one cell can carry 24 or more values for the same day.
// Coalescing keeps, per cell and valid time, the value from the latest
// issuance. Values equal to the missing sentinel (9999 in the temperature
// products) are dropped before the comparison.
//
// # Elevation
//
// Cell sites can optionally be enriched with ground elevation from the NWS
// points API. Points outside NWS coverage (Mexico, Canada, open water) carry
// no elevation rather than an error.
package domain
