// Command ndfd-summarize computes half-month statistics (count, mean and
// sample standard deviation per cell) of a coalesced series.
//
// Usage:
//
//	ndfd-summarize -in data/series/yeu.parquet -out data/series/yeu_summary.parquet
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/config"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	in := flag.String("in", "", "coalesced series written by ndfd-coalesce")
	out := flag.String("out", "", "output parquet path for the summary")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	n, err := pipeline.SummarizeFile(parquetstore.New(), *in, *out)
	if err != nil {
		logger.Error("summarize failed", "in", *in, "error", err)
		os.Exit(1)
	}
	logger.Info("summary written", "out", *out, "rows", n)
}
