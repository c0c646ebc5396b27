// Package tarball lists the forecast members of NDFD archive tarballs.
package tarball

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
)

// IsArchive reports whether path looks like a tarball.
func IsArchive(path string) bool {
	for _, ext := range []string{".tar", ".tar.gz", ".tgz"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Members returns the names of regular-file members of the archive at path
// that belong to the given product series (e.g. "Z98"), sorted by name.
func Members(path, series string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var names []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive %s: %w", path, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if domain.MatchesSeries(hdr.Name, series) {
			names = append(names, hdr.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// VSIPath addresses a member of a tarball through GDAL's virtual filesystem,
// so members are read without extracting the archive.
func VSIPath(archive, member string) string {
	return "/vsitar/" + archive + "/" + strings.TrimPrefix(member, "./")
}
