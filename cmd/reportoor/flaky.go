package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/ethpandaops/reportoor/pkg/flaky"
	"github.com/ethpandaops/reportoor/pkg/trends"
	"github.com/ethpandaops/reportoor/pkg/trendstore"
)

var (
	flakyQueryDays int
	flakyQueryMin  int
	flakyThreshold float64
)

var flakyCmd = &cobra.Command{
	Use:   "flaky",
	Short: "Print the flaky-test report from run history",
	RunE:  runFlaky,
}

func init() {
	rootCmd.AddCommand(flakyCmd)

	flakyCmd.Flags().IntVar(&flakyQueryDays, "days",
		config.DefaultTrendsDays, "analysis window in days")
	flakyCmd.Flags().IntVar(&flakyQueryMin, "min-runs",
		config.DefaultFlakyMinRuns,
		"minimum runs before a test can qualify as flaky")
	flakyCmd.Flags().Float64Var(&flakyThreshold, "threshold", 10,
		"minimum failure rate percentage to report")
}

func runFlaky(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx := cmd.Context()

	store := trendstore.NewStore(log, &cfg.Database)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting trend store: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop trend store")
		}
	}()

	flakyCfg := flaky.DefaultConfig()
	flakyCfg.MinRuns = flakyQueryMin
	flakyCfg.FlakinessThreshold = flakyThreshold

	detector := flaky.NewDetector(
		log, trends.NewAnalyzer(log, store), flakyCfg,
	)

	records, err := detector.Detect(ctx, flakyQueryDays)
	if err != nil {
		return fmt.Errorf("detecting flaky tests: %w", err)
	}

	doc := flaky.BuildReport(records, flakyQueryDays, flakyQueryMin)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling flaky report: %w", err)
	}

	fmt.Println(string(data))

	return nil
}
