package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NiranjGaurav/AutomationReader/internal/config"
	"github.com/NiranjGaurav/AutomationReader/internal/metrics"
	"github.com/NiranjGaurav/AutomationReader/internal/metrics/datadog"
	"github.com/NiranjGaurav/AutomationReader/internal/metrics/prompush"
	"github.com/NiranjGaurav/AutomationReader/internal/pipeline"

	// register all sink backends with the storage factory.
	_ "github.com/NiranjGaurav/AutomationReader/internal/storage/all"
)

const usage = `Usage: pipeline [flags] [input_path] [required_columns] [chunk_size]

Positional arguments (all optional, override the config file):
  input_path        directory scanned for *.parquet / *.csv query logs
  required_columns  comma-separated list; first four are statement type,
                    client application, execution status, join key
  chunk_size        rows per chunk (positive integer)

Flags:
`

// main loads the run configuration, optionally initializes a metrics backend,
// and executes the analysis pipeline.
func main() {
	var (
		cfgPath           string
		outputDir         string
		catalogPath       string
		sinkKind          string
		sinkDSN           string
		sinkTable         string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (optional)")
	flag.StringVar(&outputDir, "output", "", "output directory (overrides config)")
	flag.StringVar(&catalogPath, "catalog", "", "unsupported-function catalog file (overrides embedded list)")
	flag.StringVar(&sinkKind, "sink", "", "summary sink backend (none, sqlite, postgres)")
	flag.StringVar(&sinkDSN, "dsn", "", "sink connection string")
	flag.StringVar(&sinkTable, "table", "", "sink table name")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fatalf("load config: %v", err)
		}
	}

	cfg, err := cfg.With(buildOverrides(flag.Args(), outputDir, catalogPath, sinkKind, sinkDSN, sinkTable))
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintln(os.Stderr, iss.Error())
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		fatalf("configuration is invalid")
	}
	if validate {
		log.Printf("configuration is valid")
		return
	}

	runID := uuid.NewString()
	setupMetrics(metricsBackendFlg, pushGatewayURLFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	if *verbose {
		log.Printf("pipeline: run=%s input=%s output=%s chunk_size=%d sink=%s",
			runID, cfg.InputPath, cfg.OutputDir, cfg.ChunkSize, cfg.Sink.Kind)
	}

	start := time.Now()
	summary, err := pipeline.Run(context.Background(), cfg, runID)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("completed in %s: %d file(s), %d chunk(s), %d matched row(s), %d failure(s)",
		time.Since(start).Truncate(time.Millisecond),
		summary.FilesProcessed, summary.ChunksProcessed, summary.RowsMatched, len(summary.Failures))
}

// buildOverrides maps the CLI surface onto config.Overrides. Positional
// arguments follow the original invocation shape: input path, column list,
// chunk size.
func buildOverrides(args []string, outputDir, catalogPath, sinkKind, sinkDSN, sinkTable string) config.Overrides {
	var o config.Overrides

	if len(args) > 0 {
		o.InputPath = &args[0]
	}
	if len(args) > 1 {
		cols := strings.Split(args[1], ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		o.RequiredColumns = cols
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			fatalf("chunk size %q is not a number", args[2])
		}
		o.ChunkSize = &n
	}
	if len(args) > 3 {
		fatalf("too many arguments (%d); expected at most 3", len(args))
	}

	if outputDir != "" {
		o.OutputDir = &outputDir
	}
	if catalogPath != "" {
		o.CatalogPath = &catalogPath
	}
	if sinkKind != "" {
		o.Sink = &config.Sink{Kind: sinkKind, DSN: sinkDSN, Table: sinkTable}
	}
	return o
}

// setupMetrics installs the requested metrics backend. Resolution order for
// each setting is flag, then environment, then default; failures downgrade to
// the nop backend rather than aborting the run.
func setupMetrics(backendName, gatewayURL string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "pushgateway":
		if gatewayURL == "" {
			gatewayURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gatewayURL == "" {
			gatewayURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("query-analysis", gatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s", gatewayURL)
		metrics.SetBackend(b)

	case "datadog":
		addr := os.Getenv("DD_AGENT_ADDR")
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      addr,
			Namespace: "query_analysis.",
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s", addr)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
