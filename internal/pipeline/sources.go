package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/tarball"
)

// Source is one raster to extract.
type Source struct {
	// Name identifies the raster and names its output batch.
	Name string
	// Path is what the dataset opener receives; tar members use a /vsitar/ path.
	Path string
}

// ExpandSources turns command-line paths into raster sources. Tarballs expand
// to their members of the given series, directories to their regular files,
// anything else is taken as a single raster. The result is sorted by name.
// Names must be unique because they name the output batches: when two inputs
// carry the same name, the one listed first is kept and the other is logged
// and dropped.
func ExpandSources(paths []string, series string, logger *slog.Logger) ([]Source, error) {
	var out []Source
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat source: %w", err)
		}

		switch {
		case info.IsDir():
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", p, err)
			}
			for _, e := range entries {
				if e.Type().IsRegular() {
					full := filepath.Join(p, e.Name())
					out = append(out, Source{Name: e.Name(), Path: full})
				}
			}
		case tarball.IsArchive(p):
			members, err := tarball.Members(p, series)
			if err != nil {
				return nil, err
			}
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", p, err)
			}
			for _, m := range members {
				out = append(out, Source{Name: filepath.Base(m), Path: tarball.VSIPath(abs, m)})
			}
		default:
			out = append(out, Source{Name: filepath.Base(p), Path: p})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	uniq := out[:0]
	for _, s := range out {
		if n := len(uniq); n > 0 && uniq[n-1].Name == s.Name {
			logger.Warn("dropping duplicate source", "file", s.Name, "path", s.Path, "kept", uniq[n-1].Path)
			continue
		}
		uniq = append(uniq, s)
	}
	return uniq, nil
}
