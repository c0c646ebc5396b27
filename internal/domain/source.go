package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrSourceName is returned when a file name does not follow the NDFD naming scheme.
var ErrSourceName = errors.New("unrecognized source file name")

// sourceNamePattern matches names like "YEUZ98_KWBN_201901011200"; any suffix
// (".parquet", ".bin") is ignored.
var sourceNamePattern = regexp.MustCompile(`^([A-Z]{3})Z(\d{2})_([A-Z]{4})_(\d{12})`)

// SourceName is the metadata encoded in an NDFD product file name.
// Issued comes from the name and is only approximate; the GRIB reference
// time is authoritative.
type SourceName struct {
	Name    string
	Element string
	Series  string
	Office  string
	Issued  time.Time
}

// ParseSourceName parses the base name of path.
func ParseSourceName(path string) (SourceName, error) {
	base := filepath.Base(path)
	m := sourceNamePattern.FindStringSubmatch(base)
	if m == nil {
		return SourceName{}, fmt.Errorf("%w: %q", ErrSourceName, base)
	}

	issued, err := time.ParseInLocation("200601021504", m[4], time.UTC)
	if err != nil {
		return SourceName{}, fmt.Errorf("%w: %q: timestamp %s: %w", ErrSourceName, base, m[4], err)
	}

	return SourceName{
		Name:    base,
		Element: m[1],
		Series:  "Z" + m[2],
		Office:  m[3],
		Issued:  issued,
	}, nil
}

// Month returns the first instant of the calendar month the file was issued in.
func (s SourceName) Month() time.Time {
	return time.Date(s.Issued.Year(), s.Issued.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// OutputName is the file name of the coalesced series for an element, e.g. "yeu.parquet".
func OutputName(element string) string {
	return strings.ToLower(element) + ".parquet"
}

// MatchesSeries reports whether a tar member name belongs to the given product
// series. NDFD archives put the series code at characters 3-5, so "YEUZ98_..."
// belongs to "Z98".
func MatchesSeries(member, series string) bool {
	base := filepath.Base(member)
	return len(base) >= 6 && base[3:6] == series
}
