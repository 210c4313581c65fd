package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/reportoor/pkg/aggregator"
	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/ethpandaops/reportoor/pkg/flaky"
	"github.com/ethpandaops/reportoor/pkg/fsutil"
	"github.com/ethpandaops/reportoor/pkg/parser"
	"github.com/ethpandaops/reportoor/pkg/report"
	"github.com/ethpandaops/reportoor/pkg/trends"
	"github.com/ethpandaops/reportoor/pkg/trendstore"
	"github.com/ethpandaops/reportoor/pkg/upload"
)

var (
	e2ePath         string
	integrationPath string
	visualPath      string
	performancePath string
	outputDir       string
	gitCommit       string
	gitBranch       string
	ciRunID         string
	noStore         bool
	withTrends      bool
	trendsDays      int
	withFlaky       bool
	flakyMinRuns    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest suite reports into one canonical run",
	Long: `Parse the given suite report files, aggregate them into a canonical
test run, persist the run to the trend store, and emit the run report.
The command exits non-zero when the aggregated run contains failures.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&e2ePath, "e2e", "", "e2e report file")
	ingestCmd.Flags().StringVar(&integrationPath, "integration", "",
		"integration report file")
	ingestCmd.Flags().StringVar(&visualPath, "visual", "",
		"visual regression report file")
	ingestCmd.Flags().StringVar(&performancePath, "performance", "",
		"load test report file")
	ingestCmd.Flags().StringVar(&outputDir, "output", "",
		"output directory for emitted reports")
	ingestCmd.Flags().StringVar(&gitCommit, "git-commit", "", "git commit hash")
	ingestCmd.Flags().StringVar(&gitBranch, "git-branch", "", "git branch name")
	ingestCmd.Flags().StringVar(&ciRunID, "ci-run-id", "", "CI run identifier")
	ingestCmd.Flags().BoolVar(&noStore, "no-store", false,
		"skip persisting the run to the trend store")
	ingestCmd.Flags().BoolVar(&withTrends, "trends", false,
		"emit historical trends alongside the run report")
	ingestCmd.Flags().IntVar(&trendsDays, "trends-days",
		config.DefaultTrendsDays, "trend analysis window in days")
	ingestCmd.Flags().BoolVar(&withFlaky, "flaky", false,
		"emit a flaky-test report alongside the run report")
	ingestCmd.Flags().IntVar(&flakyMinRuns, "flaky-min-runs",
		config.DefaultFlakyMinRuns,
		"minimum runs before a test can qualify as flaky")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	applyIngestFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	owner, err := fsutil.ParseOwner(cfg.Ingest.ResultsOwner)
	if err != nil {
		return fmt.Errorf("parsing results_owner: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	// Parse the suite reports. A missing or unparsable suite never
	// blocks the rest of the run.
	run, err := parseAndAggregate(cfg)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"total":     run.Total,
		"passed":    run.Passed,
		"failed":    run.Failed,
		"skipped":   run.Skipped,
		"pass_rate": run.PassRate,
		"suites":    len(run.Suites),
	}).Info("Run aggregated")

	storeResults := *cfg.Ingest.StoreResults && !noStore

	var store trendstore.Store

	if storeResults {
		store = trendstore.NewStore(log, &cfg.Database)
		if err := store.Start(ctx); err != nil {
			return fmt.Errorf("starting trend store: %w", err)
		}

		defer func() {
			if err := store.Stop(); err != nil {
				log.WithError(err).Warn("Failed to stop trend store")
			}
		}()

		runID, err := store.StoreRun(ctx, run)
		if err != nil {
			return fmt.Errorf("persisting run: %w", err)
		}

		log.WithField("run_id", runID).Info("Run persisted")
	}

	emitter := report.NewEmitter(log, cfg.Ingest.OutputDir, owner)

	if _, err := emitter.WriteRunReport(run); err != nil {
		return fmt.Errorf("emitting run report: %w", err)
	}

	if withTrends || withFlaky {
		if !storeResults {
			return fmt.Errorf("trend and flaky analysis require the trend store")
		}

		analyzer := trends.NewAnalyzer(log, store)

		if withTrends {
			if err := emitTrends(ctx, emitter, analyzer); err != nil {
				return err
			}
		}

		if withFlaky {
			if err := emitFlaky(ctx, emitter, analyzer); err != nil {
				return err
			}
		}
	}

	if err := uploadReports(ctx, cfg); err != nil {
		return err
	}

	// Failing tests surface through the exit code, independent of the
	// trend and flaky analysis outcomes.
	if run.Failed > 0 {
		return fmt.Errorf("test run has %d failing tests", run.Failed)
	}

	return nil
}

// applyIngestFlags merges CLI flags into the config (CLI wins).
func applyIngestFlags(cfg *config.Config) {
	if e2ePath != "" {
		cfg.Ingest.Inputs.E2E = e2ePath
	}

	if integrationPath != "" {
		cfg.Ingest.Inputs.Integration = integrationPath
	}

	if visualPath != "" {
		cfg.Ingest.Inputs.Visual = visualPath
	}

	if performancePath != "" {
		cfg.Ingest.Inputs.Performance = performancePath
	}

	if outputDir != "" {
		cfg.Ingest.OutputDir = outputDir
	}
}

// parseAndAggregate parses all configured suite reports and combines
// them into one canonical run.
func parseAndAggregate(cfg *config.Config) (*aggregator.TestRun, error) {
	inputs := []struct {
		suite parser.Suite
		path  string
		parse parser.ParseFunc
	}{
		{parser.SuiteE2E, cfg.Ingest.Inputs.E2E, parser.ParseE2E},
		{parser.SuiteIntegration, cfg.Ingest.Inputs.Integration, parser.ParseIntegration},
		{parser.SuiteVisual, cfg.Ingest.Inputs.Visual, parser.ParseVisual},
	}

	results := make([]*parser.SuiteResult, 0, len(inputs))

	for _, input := range inputs {
		result, err := parser.ParseSuiteFile(log, input.suite, input.path, input.parse)
		if err != nil {
			return nil, fmt.Errorf("parsing %s report: %w", input.suite, err)
		}

		if result != nil {
			results = append(results, result)
		}
	}

	run := aggregator.Aggregate(results, aggregator.Metadata{
		GitCommit: gitCommit,
		GitBranch: gitBranch,
		CIRunID:   ciRunID,
	})

	metrics, err := parser.ParsePerformanceFile(log, cfg.Ingest.Inputs.Performance)
	if err != nil {
		return nil, fmt.Errorf("parsing performance report: %w", err)
	}

	if metrics != nil {
		run.AttachPerformance(metrics)
	}

	return run, nil
}

// emitTrends writes the historical trends report.
func emitTrends(
	ctx context.Context, emitter *report.Emitter, analyzer *trends.Analyzer,
) error {
	passRate, err := analyzer.PassRateTrend(ctx, trendsDays)
	if err != nil {
		return fmt.Errorf("computing pass rate trend: %w", err)
	}

	duration, err := analyzer.DurationTrend(ctx, trendsDays)
	if err != nil {
		return fmt.Errorf("computing duration trend: %w", err)
	}

	performance, err := analyzer.PerformanceTrend(ctx, trendsDays)
	if err != nil {
		return fmt.Errorf("computing performance trend: %w", err)
	}

	doc := report.BuildTrendsReport(trendsDays, passRate, duration, performance)

	if _, err := emitter.WriteTrendsReport(doc); err != nil {
		return fmt.Errorf("emitting trends report: %w", err)
	}

	return nil
}

// emitFlaky writes the flaky-test report.
func emitFlaky(
	ctx context.Context, emitter *report.Emitter, analyzer *trends.Analyzer,
) error {
	flakyCfg := flaky.DefaultConfig()
	flakyCfg.MinRuns = flakyMinRuns

	detector := flaky.NewDetector(log, analyzer, flakyCfg)

	records, err := detector.Detect(ctx, trendsDays)
	if err != nil {
		return fmt.Errorf("detecting flaky tests: %w", err)
	}

	doc := flaky.BuildReport(records, trendsDays, flakyMinRuns)

	if _, err := emitter.WriteFlakyReport(doc); err != nil {
		return fmt.Errorf("emitting flaky report: %w", err)
	}

	return nil
}

// uploadReports uploads the output directory when S3 upload is enabled.
func uploadReports(ctx context.Context, cfg *config.Config) error {
	if cfg.Upload == nil || cfg.Upload.S3 == nil || !cfg.Upload.S3.Enabled {
		return nil
	}

	uploader, err := upload.NewS3Uploader(log, cfg.Upload.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	// Fail fast: verify S3 is reachable and writable before uploading.
	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("S3 upload preflight check failed: %w", err)
	}

	if err := uploader.Upload(ctx, cfg.Ingest.OutputDir); err != nil {
		return fmt.Errorf("uploading reports: %w", err)
	}

	return nil
}
