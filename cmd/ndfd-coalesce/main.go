// Command ndfd-coalesce merges the per-file batches written by ndfd-extract
// into one series per forecast element, keeping the most recent forecast for
// every cell and valid time.
//
// Usage:
//
//	ndfd-coalesce -out data/series -manifest data/series/manifest.json data/batches
//
// Inputs may be batch files or directories of them. With KAFKA_BROKERS set,
// every coalesced record is also published to KAFKA_SINK_TOPIC.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	kafkaadapter "github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/parquetstore"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/coalesce"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/command"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/pipeline"
)

func main() {
	out := flag.String("out", "", "output directory for coalesced series")
	manifestPath := flag.String("manifest", "", "optional path for the run manifest JSON")
	flag.Parse()

	if *out == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ndfd-coalesce -out dir [-manifest file] batch-file-or-dir...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	env, err := command.Setup()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg, logger := env.Config, env.Logger

	inputs, err := expandInputs(flag.Args())
	if err != nil {
		logger.Error("failed to list inputs", "error", err)
		os.Exit(1)
	}

	var loader pipeline.RecordLoader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		logger.Info("kafka publication enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	job := pipeline.NewCoalesce(coalesce.New(cfg.MissingValue), parquetstore.New(), loader, logger, env.Metrics)
	code := env.Run("coalesce", job.Status(), func(ctx context.Context) error {
		manifests, err := job.Run(ctx, inputs, *out)
		if err != nil {
			return err
		}
		if *manifestPath != "" {
			return writeManifest(*manifestPath, manifests)
		}
		return nil
	})

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	os.Exit(code)
}

// expandInputs replaces directories with the Parquet files they contain.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.parquet"))
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, matches...)
	}
	return inputs, nil
}

func writeManifest(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
