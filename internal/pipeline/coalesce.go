package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/coalesce"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/observability"
)

// ObservationStore reads per-file batches and writes coalesced series.
type ObservationStore interface {
	ReadObservations(path string) ([]domain.Observation, error)
	WriteRecords(path string, records []domain.CoalescedRecord) error
}

// RecordLoader publishes a coalesced series downstream.
type RecordLoader interface {
	LoadRecords(ctx context.Context, element string, records []domain.CoalescedRecord) error
}

// Coalesce reduces per-file batches to one series per forecast element.
// Batches are coalesced one issuance month at a time into temporary partials,
// then the partials are coalesced into the final output, which bounds memory
// to one month of batches plus the partial series.
type Coalesce struct {
	coalescer *coalesce.Coalescer
	store     ObservationStore
	loader    RecordLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	status    *Status
}

// NewCoalesce creates a coalesce job. loader may be nil to skip publication.
func NewCoalesce(c *coalesce.Coalescer, store ObservationStore, loader RecordLoader, logger *slog.Logger, metrics *observability.Metrics) *Coalesce {
	return &Coalesce{
		coalescer: c,
		store:     store,
		loader:    loader,
		logger:    logger,
		metrics:   metrics,
		status:    NewStatus("coalesce"),
	}
}

// Status reports the progress of the current run, counted in batch files.
func (p *Coalesce) Status() *Status { return p.status }

type monthBatches struct {
	month string
	paths []string
}

// Run coalesces the batch files in inputs and writes one Parquet file per
// element into outDir. Inputs whose names are not NDFD product names are
// skipped with a warning. Manifests are returned sorted by element.
func (p *Coalesce) Run(ctx context.Context, inputs []string, outDir string) ([]domain.Manifest, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.status.begin(len(inputs))

	byElement := make(map[string]map[string][]string)
	for _, in := range inputs {
		name, err := domain.ParseSourceName(in)
		if err != nil {
			p.logger.Warn("skipping input", "path", in, "error", err)
			p.status.skipped.Add(1)
			continue
		}
		month := name.Month().Format("2006-01")
		if byElement[name.Element] == nil {
			byElement[name.Element] = make(map[string][]string)
		}
		byElement[name.Element][month] = append(byElement[name.Element][month], in)
	}
	if len(byElement) == 0 {
		return nil, errors.New("no NDFD batch files among inputs")
	}

	elements := make([]string, 0, len(byElement))
	for e := range byElement {
		elements = append(elements, e)
	}
	sort.Strings(elements)

	manifests := make([]domain.Manifest, 0, len(elements))
	for _, element := range elements {
		months := make([]monthBatches, 0, len(byElement[element]))
		for m, paths := range byElement[element] {
			sort.Strings(paths)
			months = append(months, monthBatches{month: m, paths: paths})
		}
		sort.Slice(months, func(i, j int) bool { return months[i].month < months[j].month })

		m, err := p.runElement(ctx, element, months, outDir)
		if err != nil {
			return manifests, fmt.Errorf("coalesce %s: %w", element, err)
		}
		manifests = append(manifests, m)
	}
	p.status.finished.Store(true)
	return manifests, nil
}

func (p *Coalesce) runElement(ctx context.Context, element string, months []monthBatches, outDir string) (domain.Manifest, error) {
	start := time.Now()
	manifest := domain.NewManifest(element)
	manifest.Output = filepath.Join(outDir, domain.OutputName(element))

	tmp, err := os.MkdirTemp("", "ndfd-coalesce-"+element+"-")
	if err != nil {
		return manifest, fmt.Errorf("create partial dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	partials := make([]string, 0, len(months))
	for _, mb := range months {
		if err := ctx.Err(); err != nil {
			return manifest, err
		}

		batches := make([][]domain.Observation, 0, len(mb.paths))
		for _, path := range mb.paths {
			obs, err := p.store.ReadObservations(path)
			if err != nil {
				return manifest, err
			}
			batches = append(batches, obs)
		}

		records, stats, err := p.coalescer.Coalesce(batches...)
		if err != nil {
			return manifest, fmt.Errorf("month %s: %w", mb.month, err)
		}

		partial := filepath.Join(tmp, mb.month+".parquet")
		if err := p.store.WriteRecords(partial, records); err != nil {
			return manifest, err
		}
		partials = append(partials, partial)

		p.status.done.Add(int64(len(mb.paths)))
		manifest.Sources += len(mb.paths)
		manifest.Months = append(manifest.Months, mb.month)
		manifest.InputObservations += stats.Input
		manifest.DroppedMissing += stats.DroppedMissing
		p.logger.Info("month coalesced",
			"element", element,
			"month", mb.month,
			"files", len(mb.paths),
			"input", stats.Input,
			"dropped_missing", stats.DroppedMissing,
			"output", stats.Output,
		)
	}

	// Partials hold no sentinel values, so the final pass only resolves
	// overlaps between months.
	batches := make([][]domain.Observation, 0, len(partials))
	for _, path := range partials {
		obs, err := p.store.ReadObservations(path)
		if err != nil {
			return manifest, err
		}
		batches = append(batches, obs)
	}
	records, _, err := p.coalescer.Coalesce(batches...)
	if err != nil {
		return manifest, err
	}

	if err := p.store.WriteRecords(manifest.Output, records); err != nil {
		return manifest, err
	}
	manifest.OutputRecords = len(records)
	manifest.ObserveRange(records)

	p.metrics.CoalesceInput.WithLabelValues(element).Add(float64(manifest.InputObservations))
	p.metrics.CoalesceDroppedMissing.WithLabelValues(element).Add(float64(manifest.DroppedMissing))
	p.metrics.CoalesceOutput.WithLabelValues(element).Add(float64(manifest.OutputRecords))
	p.metrics.CoalesceDuration.WithLabelValues(element).Observe(time.Since(start).Seconds())

	if p.loader != nil {
		if err := p.loader.LoadRecords(ctx, element, records); err != nil {
			return manifest, fmt.Errorf("publish: %w", err)
		}
		p.metrics.RecordsPublished.Add(float64(len(records)))
	}

	p.logger.Info("element coalesced",
		"element", element,
		"output", manifest.Output,
		"sources", manifest.Sources,
		"records", manifest.OutputRecords,
	)
	return manifest, nil
}
