// Command churnetl runs the customer-churn ETL pipeline stages.
//
// Subcommands:
//
//	transform -raw <path>   clean and feature-engineer a raw export into the staged CSV
//	analyze                 fetch the loaded table and write the analysis artifacts
//	validate                cross-check the staged file against the remote store
//	probe -path <file>      profile a raw CSV column by column
//
// Configuration (store URL/key, table, directories) comes from the
// environment or a .env file; see internal/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"churnetl/internal/analysis"
	"churnetl/internal/config"
	"churnetl/internal/metrics"
	"churnetl/internal/metrics/datadog"
	"churnetl/internal/metrics/prompush"
	"churnetl/internal/probe"
	"churnetl/internal/store"
	"churnetl/internal/transform"
	"churnetl/internal/validation"
)

const job = "churnetl"

// commonFlags are shared by every subcommand.
type commonFlags struct {
	metricsBackend string
	pushGatewayURL string
	statsdAddr     string
	verbose        bool
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.metricsBackend, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	fs.StringVar(&c.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&c.statsdAddr, "statsd-addr", "", "DogStatsD address for the datadog backend")
	fs.BoolVar(&c.verbose, "v", false, "enable verbose logs")
	return c
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "transform":
		err = runTransform(os.Args[2:])
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "probe":
		err = runProbe(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: churnetl <subcommand> [flags]

subcommands:
  transform -raw <path>    transform a raw export into the staged CSV
  analyze   [-limit N]     fetch the table and write analysis artifacts
  validate                 check the staged file against the remote store
  probe     -path <file>   profile a raw CSV column by column
`)
}

func runTransform(args []string) error {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	rawPath := fs.String("raw", "", "path of the raw customer CSV (required)")
	common := registerCommon(fs)
	fs.Parse(args)

	if *rawPath == "" {
		return fmt.Errorf("transform: -raw is required")
	}

	cfg := loadConfig(false)
	flush := setupMetrics(common, cfg)
	defer flush()

	start := time.Now()
	res, err := transform.Stage{StagedPath: cfg.StagedPath()}.Run(*rawPath)
	metrics.RecordStage(job, "transform", err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordRows(job, "staged", int64(res.Rows))

	fmt.Println(res.StagedPath)
	return nil
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	limit := fs.Int("limit", 0, "cap the number of rows fetched (0 = all)")
	charts := fs.Bool("charts", true, "render chart images alongside the CSV artifacts")
	common := registerCommon(fs)
	fs.Parse(args)

	cfg := loadConfig(true)
	flush := setupMetrics(common, cfg)
	defer flush()

	ctx := context.Background()
	client, closeStore, err := newStoreClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	stage := analysis.Stage{
		Store:        client,
		Table:        cfg.Table,
		ProcessedDir: cfg.ProcessedDir,
		Limit:        *limit,
		Charts:       *charts,
	}

	start := time.Now()
	err = stage.Run(ctx)
	metrics.RecordStage(job, "analyze", err, time.Since(start))
	return err
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	common := registerCommon(fs)
	fs.Parse(args)

	cfg := loadConfig(true)
	flush := setupMetrics(common, cfg)
	defer flush()

	ctx := context.Background()
	client, closeStore, err := newStoreClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	stage := validation.Stage{
		StagedPath: cfg.StagedPath(),
		Store:      client,
		Table:      cfg.Table,
	}

	start := time.Now()
	report, err := stage.Run(ctx)
	metrics.RecordStage(job, "validate", err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordRows(job, "validated", int64(report.Rows))
	metrics.RecordFindings(job, int64(report.Failures()))

	// Findings are reported, not raised; the exit code stays zero.
	report.Print(os.Stdout)
	return nil
}

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	path := fs.String("path", "", "path of the raw CSV to profile (required)")
	rows := fs.Int("rows", 0, "cap the number of rows sampled (0 = all)")
	registerCommon(fs)
	fs.Parse(args)

	if *path == "" {
		return fmt.Errorf("probe: -path is required")
	}

	profiles, err := probe.Profile(*path, probe.Options{MaxRows: *rows})
	if err != nil {
		return err
	}
	probe.WriteTable(os.Stdout, profiles)
	return nil
}

// loadConfig resolves and validates the configuration, exiting before any
// network call when a required setting is missing.
func loadConfig(needStore bool) config.Config {
	cfg := config.Load()

	issues := config.Validate(cfg, needStore)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		fatalf("configuration is invalid")
	}
	return cfg
}

// newStoreClient builds the store client selected by the configuration. The
// returned func releases any connection pool.
func newStoreClient(ctx context.Context, cfg config.Config) (store.Client, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return store.NewPostgresClient(ctx, cfg.DatabaseDSN)
	default:
		c := store.NewRESTClient(store.RESTConfig{
			BaseURL: cfg.SupabaseURL,
			APIKey:  cfg.SupabaseKey,
		})
		return c, func() {}, nil
	}
}

// setupMetrics installs the selected metrics backend and returns the flush
// func to defer. Backend choice: flag → env → disabled.
func setupMetrics(common *commonFlags, cfg config.Config) func() {
	backendName := common.metricsBackend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "pushgateway":
		gwURL := common.pushGatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			break
		}
		if common.verbose {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		}
		metrics.SetBackend(b)
		return flushMetrics

	case "datadog":
		addr := common.statsdAddr
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}

		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: job + "."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			break
		}
		if common.verbose {
			log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		}
		metrics.SetBackend(b)
		return flushMetrics

	case "", "none":
		// metrics disabled; nop backend remains
		if common.verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	return func() {}
}

func flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
