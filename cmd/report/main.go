package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-patch-report/config"
	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/patchday"
	"github.com/aluiziolira/go-patch-report/pipeline"
	"github.com/aluiziolira/go-patch-report/report"
	"github.com/aluiziolira/go-patch-report/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg := config.DefaultConfig()

	// A config file named by REPORT_CONFIG or -config is applied before flags
	// so that flags win.
	configPath, _ := config.EnvString("REPORT_CONFIG")
	for i, arg := range os.Args[1:] {
		if arg == "-config" || arg == "--config" {
			if i+2 < len(os.Args) {
				configPath = os.Args[i+2]
			}
		} else if v, ok := strings.CutPrefix(strings.TrimLeft(arg, "-"), "config="); ok {
			configPath = v
		}
	}
	if configPath != "" {
		if err := config.LoadFile(configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if err := applyEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	flag.String("config", configPath, "YAML config file")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "Report name")
	flag.IntVar(&cfg.Year, "year", cfg.Year, "Report year")
	flag.IntVar(&cfg.Month, "month", cfg.Month, "Report month (1-12)")
	flag.IntVar(&cfg.Months, "months", cfg.Months, "Number of consecutive months to report, counting back")
	flag.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "Security update API base URL")
	flag.StringVar(&cfg.SupportBaseURL, "support-url", cfg.SupportBaseURL, "Support site base URL")
	flag.IntVar(&cfg.Parallelism, "parallel", cfg.Parallelism, "Number of concurrent requests")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	flag.IntVar(&cfg.CacheSize, "cache", cfg.CacheSize, "Response cache entries (0 disables)")
	flag.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	flag.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Output file path")
	flag.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write JSON logs to this rotating file")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	lookupKB := flag.String("kb", "", "Print the deployments of one KB article and exit")
	lookupCVE := flag.String("cve", "", "Print one CVE and the products it affects, then exit")

	flag.Parse()
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	logger, level, closeLog := newLogger(cfg.Verbose, cfg.LogFile)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	err := run(cfg, *lookupKB, *lookupCVE)
	closeLog()
	if err != nil {
		slog.Error("report failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// run owns every resource of one invocation so that deferred cleanup runs
// before the process exits.
func run(cfg *config.Config, kb, cve string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := scraper.NewFetcher(cfg)
	if err != nil {
		return fmt.Errorf("initialising fetcher: %w", err)
	}
	defer fetcher.Close()

	if kb != "" || cve != "" {
		q := report.NewQueryBuilder(cfg.APIBaseURL, cfg.SupportBaseURL, models.Window{})
		if kb != "" {
			if err := lookupKB(ctx, fetcher, fetcher.Metrics, q, kb, cfg.Parallelism, os.Stdout); err != nil {
				return fmt.Errorf("lookup %s: %w", kb, err)
			}
		}
		if cve != "" {
			if err := lookupCVE(ctx, fetcher, fetcher.Metrics, q, cve, cfg.Parallelism, os.Stdout); err != nil {
				return fmt.Errorf("lookup %s: %w", cve, err)
			}
		}
		return nil
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, fetcher.Metrics)
	defer stopMetricsServer(metricsServer)

	startTime := time.Now()
	results, err := runMonths(ctx, fetcher, fetcher.Metrics, cfg)
	if err != nil {
		return err
	}

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	metrics, err := export(writer, cfg.BatchSize, results)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	requests, errs := fetcher.Stats()
	printSummary(os.Stdout, results, requests, errs, time.Since(startTime), cfg.OutputFile, metrics)
	return nil
}

// applyEnv overlays REPORT_* environment variables onto cfg.
func applyEnv(cfg *config.Config) error {
	ints := map[string]*int{
		"REPORT_YEAR":     &cfg.Year,
		"REPORT_MONTH":    &cfg.Month,
		"REPORT_MONTHS":   &cfg.Months,
		"REPORT_PARALLEL": &cfg.Parallelism,
	}
	for key, dst := range ints {
		value, ok, err := config.EnvInt(key)
		if err != nil {
			return fmt.Errorf("invalid %w", err)
		}
		if ok {
			*dst = value
		}
	}

	strs := map[string]*string{
		"REPORT_NAME":         &cfg.Name,
		"REPORT_API_URL":      &cfg.APIBaseURL,
		"REPORT_SUPPORT_URL":  &cfg.SupportBaseURL,
		"REPORT_OUTPUT":       &cfg.OutputFile,
		"REPORT_FORMAT":       &cfg.OutputFormat,
		"REPORT_METRICS_ADDR": &cfg.MetricsAddr,
		"REPORT_LOG_FILE":     &cfg.LogFile,
	}
	for key, dst := range strs {
		if value, ok := config.EnvString(key); ok {
			*dst = value
		}
	}
	return nil
}

// monthsBack lists n year/month pairs ending at year/month, oldest first.
func monthsBack(year, month, n int) [][2]int {
	out := make([][2]int, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = [2]int{year, month}
		year, month = patchday.PreviousMonth(year, month)
	}
	return out
}

// runMonths runs one report per month. The getter, and so its cache and
// connection pool, is shared across months.
func runMonths(ctx context.Context, g scraper.Getter, m *scraper.Metrics, cfg *config.Config) ([]*models.ReportResult, error) {
	opts := report.OptionsFromConfig(cfg, m)

	var results []*models.ReportResult
	for _, ym := range monthsBack(cfg.Year, cfg.Month, cfg.Months) {
		name := cfg.Name
		if cfg.Months > 1 {
			name = fmt.Sprintf("%s %d-%02d", cfg.Name, ym[0], ym[1])
		}
		r, err := report.New(name, ym[0], ym[1])
		if err != nil {
			return nil, err
		}
		result, err := r.Run(ctx, g, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// export writes every report through the pipeline, closes writer and checks
// the files it produced.
func export(writer pipeline.OutputWriter, batchSize int, results []*models.ReportResult) (map[string]interface{}, error) {
	p := pipeline.NewPipeline(writer, batchSize)
	for _, result := range results {
		if err := p.Process(result); err != nil {
			_ = writer.Close()
			return nil, err
		}
	}
	if err := p.Close(); err != nil {
		_ = writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return nil, fmt.Errorf("output validation: %w", err)
	}
	return p.GetMetrics(), nil
}

func startMetricsServer(addr string, m *scraper.Metrics) *http.Server {
	if addr == "" || m == nil {
		return nil
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func stopMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(out io.Writer, results []*models.ReportResult, requests, errs int, duration time.Duration, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(out, "\n"+separator)
	for _, result := range results {
		fmt.Fprintf(out, "%s\n", result.Name)
		fmt.Fprintf(out, "  Patch day:     %s\n", result.PatchDay)
		fmt.Fprintf(out, "  Window:        %s .. %s\n", result.Window.Start, result.Window.End)
		fmt.Fprintf(out, "  KBs:           %d (msrc %d, misc %d, office %d)\n",
			result.Summary.Total, result.Summary.MSRCUpdates, result.Summary.MiscUpdates, result.Summary.OfficeUpdates)
		fmt.Fprintf(out, "  CVEs:          %d\n", result.Summary.CVEs)
		for _, kb := range result.Kbs {
			fmt.Fprintf(out, "    KB%-9s %-10s %s\n", kb.Kb, kb.HighestSeverity(), report.CatalogSearchURL(kb.Kb))
		}
	}
	fmt.Fprintln(out, separator)
	if written, ok := metrics["written_kbs"].(int64); ok {
		fmt.Fprintf(out, "  Written:       %d\n", written)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(out, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(out, "  Requests:      %d (errors %d)\n", requests, errs)
	fmt.Fprintf(out, "  Duration:      %v\n", duration)
	fmt.Fprintf(out, "  Output file:   %s\n", outputFile)
	fmt.Fprintln(out, separator)
}

// newLogger logs to stdout, text on a terminal and JSON otherwise. With
// logFile set, JSON records are also written to a rotating file.
func newLogger(verbose bool, logFile string) (*slog.Logger, *slog.LevelVar, func()) {
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

	closeFn := func() {}
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    25, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		handler = teeHandler{handler, slog.NewJSONHandler(rotator, opts)}
		closeFn = func() { _ = rotator.Close() }
	}

	return slog.New(handler), level, closeFn
}

// teeHandler fans records out to several handlers.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
