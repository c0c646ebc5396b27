// Command validate performs integrity checks on a coalesced NDFD series
// against the per-file batches it was built from: key uniqueness and order,
// sentinel absence, most-recent-wins, and consistency with the run manifest.
// Optionally it compares the series to an expected fixture from genmock.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -batches data/mock/batches \
//	  -series data/out/yeu.parquet \
//	  -manifest data/out/manifest.json \
//	  -expected data/mock/expected/yeu.parquet
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/coalesce"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

// maxErrors caps the detail printed per phase; the count is always exact.
const maxErrors = 50

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type key struct {
	x, y  int
	valid int64
}

func (k key) String() string {
	return fmt.Sprintf("(x=%d, y=%d, valid_time=%s)", k.x, k.y, time.Unix(k.valid, 0).UTC().Format(time.RFC3339))
}

func main() {
	batchDir := flag.String("batches", "", "directory of per-file parquet batches")
	seriesPath := flag.String("series", "", "coalesced parquet series to validate")
	manifestPath := flag.String("manifest", "", "optional run manifest JSON")
	expectedPath := flag.String("expected", "", "optional expected coalesced series")
	missing := flag.Float64("missing", coalesce.DefaultMissing, "missing-value sentinel")
	flag.Parse()

	if *batchDir == "" || *seriesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*batchDir, *seriesPath, *manifestPath, *expectedPath, *missing); code != 0 {
		os.Exit(code)
	}
}

func run(batchDir, seriesPath, manifestPath, expectedPath string, missing float64) int {
	fmt.Println("=== NDFD Series Integrity Validation ===")
	fmt.Println()

	store := parquetstore.New()

	series, err := store.ReadRecords(seriesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load series: %v\n", err)
		return 1
	}
	element := strings.ToUpper(strings.TrimSuffix(filepath.Base(seriesPath), filepath.Ext(seriesPath)))

	raw, files, err := loadBatches(store, batchDir, element)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load batches: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSeries(series, missing),
		validateMostRecentWins(series, raw, missing),
	}
	if manifestPath != "" {
		m, err := loadManifest(manifestPath, element)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load manifest: %v\n", err)
			return 1
		}
		phases = append(phases, validateManifest(m, series, raw, files, missing))
	}
	if expectedPath != "" {
		expected, err := store.ReadRecords(expectedPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load expected series: %v\n", err)
			return 1
		}
		phases = append(phases, validateExpected(series, expected))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-48s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Element %s: %d batch files, %d raw observations, %d coalesced records\n",
		element, files, len(raw), len(series))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors[:min(len(p.errors), maxErrors)] {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		if len(p.errors) > maxErrors {
			fmt.Printf("  ... and %d more\n", len(p.errors)-maxErrors)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadBatches reads every batch of element from dir, in name order.
func loadBatches(store *parquetstore.Store, dir, element string) ([]domain.Observation, int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, element+"*.parquet"))
	if err != nil {
		return nil, 0, err
	}
	if len(paths) == 0 {
		return nil, 0, fmt.Errorf("no %s batches in %s", element, dir)
	}
	sort.Strings(paths)

	var all []domain.Observation
	for _, p := range paths {
		obs, err := store.ReadObservations(p)
		if err != nil {
			return nil, 0, err
		}
		all = append(all, obs...)
	}
	return all, len(paths), nil
}

// loadManifest accepts a single manifest or the list ndfd-coalesce writes.
func loadManifest(path, element string) (domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, err
	}
	var list []domain.Manifest
	if err := json.Unmarshal(data, &list); err != nil {
		var one domain.Manifest
		if err := json.Unmarshal(data, &one); err != nil {
			return domain.Manifest{}, err
		}
		list = []domain.Manifest{one}
	}
	for _, m := range list {
		if m.Element == element {
			return m, nil
		}
	}
	return domain.Manifest{}, fmt.Errorf("no manifest for element %s", element)
}

func isMissing(v, missing float64) bool {
	if math.IsNaN(missing) {
		return math.IsNaN(v)
	}
	return v == missing
}

// ── Phase 1: Series integrity ──

func validateSeries(series []domain.CoalescedRecord, missing float64) *phase {
	p := &phase{name: "Phase 1: Series Integrity (keys, order, sentinel)"}

	seen := make(map[key]bool, len(series))
	for i, r := range series {
		k := key{r.X, r.Y, r.ValidTime.Unix()}
		if seen[k] {
			p.errorf("record %d: duplicate key %s", i, k)
		}
		seen[k] = true

		if isMissing(r.Value, missing) {
			p.errorf("record %d %s: sentinel value %g survived coalescing", i, k, r.Value)
		}
		if err := r.Observation().Validate(); err != nil {
			p.errorf("record %d: %v", i, err)
		}
		if i > 0 && !less(series[i-1], r) {
			p.errorf("record %d %s: out of order after %s", i, k, key{series[i-1].X, series[i-1].Y, series[i-1].ValidTime.Unix()})
		}
	}
	return p
}

func less(a, b domain.CoalescedRecord) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.ValidTime.Before(b.ValidTime)
}

// ── Phase 2: Most recent wins ──
// Recomputes, from the raw batches, the latest issuance of every key and the
// values it forecast, and checks the series against them.

type latest struct {
	fcst   int64
	values []float64
}

func validateMostRecentWins(series []domain.CoalescedRecord, raw []domain.Observation, missing float64) *phase {
	p := &phase{name: "Phase 2: Most Recent Wins (series vs batches)"}

	want := make(map[key]*latest)
	for _, o := range raw {
		if isMissing(o.Value, missing) {
			continue
		}
		k := key{o.X, o.Y, o.ValidTime.Unix()}
		cur, ok := want[k]
		switch {
		case !ok || o.FcstTime.Unix() > cur.fcst:
			want[k] = &latest{fcst: o.FcstTime.Unix(), values: []float64{o.Value}}
		case o.FcstTime.Unix() == cur.fcst:
			cur.values = append(cur.values, o.Value)
		}
	}

	got := make(map[key]bool, len(series))
	for _, r := range series {
		k := key{r.X, r.Y, r.ValidTime.Unix()}
		got[k] = true

		w, ok := want[k]
		if !ok {
			p.errorf("%s: in series but not in any batch", k)
			continue
		}
		if r.FcstTime.Unix() != w.fcst {
			p.errorf("%s: fcst_time %s, latest issuance is %s", k,
				r.FcstTime.Format(time.RFC3339), time.Unix(w.fcst, 0).UTC().Format(time.RFC3339))
			continue
		}
		if !containsFloat(w.values, r.Value) {
			p.errorf("%s: value %g not forecast by the latest issuance %v", k, r.Value, w.values)
		}
	}

	for k := range want {
		if !got[k] {
			p.errorf("%s: forecast in batches but missing from series", k)
		}
	}
	return p
}

func containsFloat(values []float64, v float64) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ── Phase 3: Manifest ──

func validateManifest(m domain.Manifest, series []domain.CoalescedRecord, raw []domain.Observation, files int, missing float64) *phase {
	p := &phase{name: "Phase 3: Manifest Consistency"}

	if m.OutputRecords != len(series) {
		p.errorf("output_records: manifest %d, series %d", m.OutputRecords, len(series))
	}
	if m.Sources != files {
		p.errorf("sources: manifest %d, batch files %d", m.Sources, files)
	}
	if m.InputObservations != len(raw) {
		p.errorf("input_observations: manifest %d, batches %d", m.InputObservations, len(raw))
	}

	var dropped int
	for _, o := range raw {
		if isMissing(o.Value, missing) {
			dropped++
		}
	}
	if m.DroppedMissing != dropped {
		p.errorf("dropped_missing: manifest %d, batches %d", m.DroppedMissing, dropped)
	}

	var check domain.Manifest
	check.ObserveRange(series)
	if !m.FirstValidTime.Equal(check.FirstValidTime) || !m.LastValidTime.Equal(check.LastValidTime) {
		p.errorf("valid time range: manifest %s..%s, series %s..%s",
			m.FirstValidTime.Format(time.RFC3339), m.LastValidTime.Format(time.RFC3339),
			check.FirstValidTime.Format(time.RFC3339), check.LastValidTime.Format(time.RFC3339))
	}
	return p
}

// ── Phase 4: Expected fixture ──

func validateExpected(series, expected []domain.CoalescedRecord) *phase {
	p := &phase{name: "Phase 4: Expected Fixture"}
	if diff := cmp.Diff(expected, series); diff != "" {
		p.errorf("series differs from fixture (-expected +got):\n%s", diff)
	}
	return p
}
