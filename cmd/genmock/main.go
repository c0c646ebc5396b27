// Command genmock generates synthetic NDFD per-file observation batches for
// exercising ndfd-coalesce, ndfd-summarize and validate without GDAL or a
// real archive. Rasters are built in memory and read through the same
// extractor the extract job uses, so the batches match real pipeline output.
// It also writes the expected coalesced series and a manifest fixture.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/batches \
//	  -expected data/mock/expected \
//	  -days 4 -size 8
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/coalesce"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/grid"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/raster"
	"github.com/jonboulle/clockwork"
)

// The first issuance is two days before a month boundary so the batches span
// two months and the coalesce job writes more than one partial.
var baseIssuance = time.Date(2019, time.January, 30, 0, 0, 0, 0, time.UTC)

const (
	issuanceStep = 6 * time.Hour
	validStep    = 6 * time.Hour
	horizonSteps = 12 // 72 hours, the Z98 series range
	missingRate  = 0.05
)

type options struct {
	out      string
	expected string
	element  string
	days     int
	size     int
	seed     uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.out, "out", "", "output directory for per-file parquet batches")
	flag.StringVar(&opts.expected, "expected", "", "output directory for the expected coalesced series and manifest")
	flag.StringVar(&opts.element, "element", "YEU", "three-letter forecast element prefix")
	flag.IntVar(&opts.days, "days", 4, "days of issuances to generate")
	flag.IntVar(&opts.size, "size", 8, "side length of the synthetic raster, in cells")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.Parse()

	if opts.out == "" || opts.expected == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -expected")
	}
	if len(opts.element) != 3 || opts.size < 2 || opts.days < 1 {
		return fmt.Errorf("invalid flags: element=%q size=%d days=%d", opts.element, opts.size, opts.days)
	}

	// Fixed clock for a reproducible manifest.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2019, time.February, 10, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	ex, err := raster.NewExtractor(targetCells(opts.size))
	if err != nil {
		return err
	}
	store := parquetstore.New()
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	var (
		batches [][]domain.Observation
		files   int
		values  int
		missing int
	)
	issuances := opts.days * int(24*time.Hour/issuanceStep)
	for i := range issuances {
		issued := baseIssuance.Add(time.Duration(i) * issuanceStep)
		for step := 1; step <= horizonSteps; step++ {
			valid := issued.Add(time.Duration(step) * validStep)
			ds, err := synthRaster(rng, opts.size, issued, valid)
			if err != nil {
				return err
			}
			obs, err := ex.Extract(ds)
			if err != nil {
				return fmt.Errorf("extract %s: %w", issued, err)
			}

			name := fmt.Sprintf("%sZ98_KWBN_%s_f%03d", opts.element, issued.Format("200601021504"), step*int(validStep/time.Hour))
			if err := store.WriteObservations(filepath.Join(opts.out, name+".parquet"), obs); err != nil {
				return err
			}
			batches = append(batches, obs)
			files++
			values += len(obs)
			for _, o := range obs {
				if o.Value == coalesce.DefaultMissing {
					missing++
				}
			}
		}
	}
	log.Printf("wrote %d batches (%d observations, %d missing) to %s", files, values, missing, opts.out)

	records, stats, err := coalesce.New(coalesce.DefaultMissing).Coalesce(batches...)
	if err != nil {
		return fmt.Errorf("coalesce: %w", err)
	}
	manifest := domain.NewManifest(opts.element)
	manifest.Output = filepath.Join(opts.expected, domain.OutputName(opts.element))
	manifest.Sources = files
	manifest.Months = months(issuances)
	manifest.InputObservations = stats.Input
	manifest.DroppedMissing = stats.DroppedMissing
	manifest.OutputRecords = stats.Output
	manifest.ObserveRange(records)

	if err := store.WriteRecords(manifest.Output, records); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(opts.expected, "manifest.json"), manifest); err != nil {
		return fmt.Errorf("writing manifest fixture: %w", err)
	}
	log.Printf("wrote expected series: %s", manifest.Output)

	printStats(manifest, records)
	return nil
}

// targetCells selects a sparse diagonal pattern so the extract window is
// larger than the cell set.
func targetCells(size int) []grid.Cell {
	var cells []grid.Cell
	for y := range size {
		for x := range size {
			if (x+y)%3 == 0 {
				cells = append(cells, grid.Cell{X: x, Y: y})
			}
		}
	}
	return cells
}

// synthRaster builds one forecast raster: a diurnal temperature cycle plus a
// per-cell offset and noise, with a fraction of cells set to the sentinel.
func synthRaster(rng *rand.Rand, size int, issued, valid time.Time) (*raster.MemDataset, error) {
	hour := float64(valid.Hour())
	diurnal := 8 * math.Sin((hour-9)/24*2*math.Pi)
	lead := valid.Sub(issued).Hours()

	values := make([]float64, size*size)
	for y := range size {
		for x := range size {
			if rng.Float64() < missingRate {
				values[y*size+x] = coalesce.DefaultMissing
				continue
			}
			noise := rng.NormFloat64() * (0.5 + lead/48)
			v := 2 + diurnal + 0.3*float64(x) - 0.2*float64(y) + noise
			values[y*size+x] = math.Round(v*10) / 10
		}
	}
	return raster.NewMemDataset(size, size, values, map[string]string{
		raster.TagRefTime:   fmt.Sprintf("%d sec UTC", issued.Unix()),
		raster.TagValidTime: fmt.Sprintf("%d sec UTC", valid.Unix()),
	})
}

func months(issuances int) []string {
	var out []string
	seen := map[string]bool{}
	for i := range issuances {
		m := baseIssuance.Add(time.Duration(i) * issuanceStep).Format("2006-01")
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(m domain.Manifest, records []domain.CoalescedRecord) {
	cells := map[grid.Cell]int{}
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, r := range records {
		cells[grid.Cell{X: r.X, Y: r.Y}]++
		minV = min(minV, r.Value)
		maxV = max(maxV, r.Value)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Sources: %d (months %v)\n", m.Sources, m.Months)
	fmt.Printf("Input observations: %d\n", m.InputObservations)
	fmt.Printf("Dropped missing: %d\n", m.DroppedMissing)
	fmt.Printf("Output records: %d over %d cells\n", m.OutputRecords, len(cells))
	fmt.Printf("Valid time range: %s .. %s\n", m.FirstValidTime.Format(time.RFC3339), m.LastValidTime.Format(time.RFC3339))
	if len(records) > 0 {
		fmt.Printf("Value range: %.1f .. %.1f\n", minV, maxV)
	}
}
