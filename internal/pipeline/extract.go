package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/observability"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/raster"
	"golang.org/x/sync/errgroup"
)

// Opener opens a raster for reading.
type Opener func(path string) (raster.Dataset, error)

// BatchWriter persists one per-file observation batch.
type BatchWriter interface {
	WriteObservations(path string, obs []domain.Observation) error
}

// SkippedFile records a source that was reported and skipped.
type SkippedFile struct {
	Name string
	Err  error
}

// ExtractReport summarizes an extract run.
type ExtractReport struct {
	Extracted    int
	Observations int
	Skipped      []SkippedFile
}

// Extract reads the target cells from every source raster with a bounded
// worker pool and writes one Parquet batch per source.
type Extract struct {
	extractor *raster.Extractor
	open      Opener
	writer    BatchWriter
	outDir    string
	workers   int
	logger    *slog.Logger
	metrics   *observability.Metrics
	status    *Status
}

// NewExtract creates an extract job writing batches into outDir.
func NewExtract(ex *raster.Extractor, open Opener, w BatchWriter, outDir string, workers int, logger *slog.Logger, metrics *observability.Metrics) *Extract {
	return &Extract{
		extractor: ex,
		open:      open,
		writer:    w,
		outDir:    outDir,
		workers:   max(workers, 1),
		logger:    logger,
		metrics:   metrics,
		status:    NewStatus("extract"),
	}
}

// Status reports the progress of the current run.
func (p *Extract) Status() *Status { return p.status }

// Run extracts every source. Files with unrecognized names, unreadable files
// and files with malformed time tags are skipped and reported. Invariant violations, output write failures
// and cancellation stop the run.
func (p *Extract) Run(ctx context.Context, sources []Source) (ExtractReport, error) {
	p.logger.Info("extract started", "files", len(sources), "workers", p.workers, "window", p.extractor.Window().String())
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	p.status.begin(len(sources))

	var (
		mu     sync.Mutex
		report ExtractReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, err := p.extractOne(gctx, src)
			if err != nil {
				if errors.Is(err, raster.ErrInvariant) || errors.Is(err, errWrite) || gctx.Err() != nil {
					return fmt.Errorf("%s: %w", src.Name, err)
				}
				p.logger.Warn("skipping file", "file", src.Name, "error", err)
				p.metrics.FilesSkipped.WithLabelValues(skipReason(err)).Inc()
				p.status.skipped.Add(1)
				mu.Lock()
				report.Skipped = append(report.Skipped, SkippedFile{Name: src.Name, Err: err})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report.Extracted++
			report.Observations += n
			mu.Unlock()
			return nil
		})
	}

	// Wait cancels gctx on return, so only the caller's context tells a
	// cancelled run apart from a finished one.
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	sort.Slice(report.Skipped, func(i, j int) bool { return report.Skipped[i].Name < report.Skipped[j].Name })

	if err != nil {
		return report, err
	}
	p.status.finished.Store(true)
	p.logger.Info("extract finished",
		"extracted", report.Extracted,
		"skipped", len(report.Skipped),
		"observations", report.Observations,
	)
	return report, nil
}

var errWrite = errors.New("write batch")

func (p *Extract) extractOne(ctx context.Context, src Source) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := domain.ParseSourceName(src.Name); err != nil {
		return 0, err
	}
	start := time.Now()

	ds, err := p.open(src.Path)
	if err != nil {
		return 0, err
	}
	obs, err := p.extractor.Extract(ds)
	if cerr := ds.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	if err != nil {
		return 0, err
	}

	out := filepath.Join(p.outDir, src.Name+".parquet")
	if err := p.writer.WriteObservations(out, obs); err != nil {
		return 0, fmt.Errorf("%w %s: %w", errWrite, out, err)
	}

	p.metrics.FilesExtracted.Inc()
	p.metrics.ObservationsExtracted.Add(float64(len(obs)))
	p.metrics.ExtractDuration.Observe(time.Since(start).Seconds())
	p.status.done.Add(1)
	p.logger.Debug("file extracted", "file", src.Name, "observations", len(obs))
	return len(obs), nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSourceName):
		return "name"
	case errors.Is(err, raster.ErrTimeTag):
		return "time_tag"
	default:
		return "read"
	}
}
