// Command moonmonthly aggregates the USNO "Fraction of the Moon
// Illuminated" year tables into monthly means, one CSV row per
// (year, month). The output is all-or-nothing: any failure aborts the
// run before the output file is created.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NathanPalaiologos/usno-moon-monthly/config"
	"github.com/NathanPalaiologos/usno-moon-monthly/fetcher"
	"github.com/NathanPalaiologos/usno-moon-monthly/models"
	"github.com/NathanPalaiologos/usno-moon-monthly/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()

	startDefault := defaultCfg.StartYear
	if value, ok, err := config.EnvInt("USNO_START"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid USNO_START: %v\n", err)
		os.Exit(1)
	} else if ok {
		startDefault = value
	}
	endDefault := defaultCfg.EndYear
	if value, ok, err := config.EnvInt("USNO_END"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid USNO_END: %v\n", err)
		os.Exit(1)
	} else if ok {
		endDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("USNO_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("USNO_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	startYear := flag.Int("start", startDefault, "First year to fetch")
	endYear := flag.Int("end", endDefault, "Last year to fetch (inclusive, >= start)")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	sleep := flag.Duration("sleep", defaultCfg.RequestDelay, "Politeness delay between year requests")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "HTTP request timeout")
	maxAttempts := flag.Int("max-attempts", defaultCfg.MaxAttempts, "Maximum fetch attempts per year")
	retryBackoff := flag.Duration("retry-backoff", defaultCfg.RetryBackoff, "Initial retry backoff")
	retryBackoffMax := flag.Duration("retry-backoff-max", defaultCfg.RetryBackoffMax, "Maximum retry backoff")
	minDayRows := flag.Int("min-day-rows", defaultCfg.MinDayRows, "Minimum reconstructed day rows per year before the page counts as unparsable")
	state := flag.String("state", "", "Two-letter state code resolved through the built-in fixed-offset table (e.g. AL)")
	tzHours := flag.Float64("tz-hours", defaultCfg.TZHours, "Absolute timezone offset hours (e.g. 6.0)")
	tzSign := flag.Int("tz-sign", defaultCfg.TZSign, "Timezone sign: -1 for UTC-, +1 for UTC+")
	tzLabel := flag.Bool("tz-label", defaultCfg.TZLabel, "Request timezone labels from the endpoint")
	debug := flag.Bool("debug", false, "Dump normalized lines and reconstruction decisions for the first year")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Year-table endpoint URL")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose || *debug)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := buildConfigFromFlags(defaultCfg, *baseURL, *startYear, *endYear, *outputFile, *outputFormat,
		*sleep, *timeout, *maxAttempts, *retryBackoff, *retryBackoffMax, *minDayRows,
		*tzHours, *tzSign, *tzLabel, *debug, *verbose, *metricsAddr)
	if *state != "" {
		if err := cfg.ApplyState(*state); err != nil {
			slog.Error("invalid configuration", slog.Any("error", err))
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting run",
		slog.Int("start", cfg.StartYear),
		slog.Int("end", cfg.EndYear),
		slog.Float64("tz_hours", cfg.TZHours),
		slog.Int("tz_sign", cfg.TZSign),
	)

	f, err := fetcher.New(cfg, nil)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && f.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(f.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := pipeline.Run(ctx, cfg, f, nil, logger)
	if err != nil {
		slog.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The writer is created only now: a failed run never leaves an
	// output file behind.
	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Write(result.Summaries); err != nil {
		slog.Error("writing output", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("closing writer", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, cfg)
}

func buildConfigFromFlags(base *config.Config, baseURL string, startYear, endYear int, outputFile, outputFormat string,
	sleep, timeout time.Duration, maxAttempts int, retryBackoff, retryBackoffMax time.Duration, minDayRows int,
	tzHours float64, tzSign int, tzLabel, debug, verbose bool, metricsAddr string) *config.Config {
	cfg := *base
	cfg.BaseURL = baseURL
	cfg.StartYear = startYear
	cfg.EndYear = endYear
	cfg.OutputFile = outputFile
	cfg.OutputFormat = strings.ToLower(outputFormat)
	cfg.RequestDelay = sleep
	cfg.Timeout = timeout
	cfg.MaxAttempts = maxAttempts
	cfg.RetryBackoff = retryBackoff
	cfg.RetryBackoffMax = retryBackoffMax
	cfg.MinDayRows = minDayRows
	cfg.TZHours = tzHours
	cfg.TZSign = tzSign
	cfg.TZLabel = tzLabel
	cfg.Debug = debug
	cfg.Verbose = verbose
	cfg.MetricsAddr = metricsAddr
	return &cfg
}

func createWriter(format, filename string) (pipeline.SummaryWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.RunResult, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Run complete")
	fmt.Printf("  Years fetched:  %d\n", result.YearsFetched)
	fmt.Printf("  Day records:    %d\n", result.DayRecords)
	fmt.Printf("  Daily values:   %d\n", result.ValuesAccumulated)
	fmt.Printf("  Months written: %d\n", len(result.Summaries))
	fmt.Printf("  Duration:       %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Printf("  Output file:    %s\n", cfg.OutputFile)
	fmt.Printf("  Coverage:       %d-01 through %d-12 (%d months)\n",
		cfg.StartYear, cfg.EndYear, (cfg.EndYear-cfg.StartYear+1)*12)
	if cfg.State != "" {
		fmt.Printf("  State offset:   %s UTC%+d:%02d fixed, no DST\n",
			cfg.State, cfg.TZSign*int(cfg.TZHours), int(cfg.TZHours*60)%60)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
