package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/ethpandaops/reportoor/pkg/report"
	"github.com/ethpandaops/reportoor/pkg/trends"
	"github.com/ethpandaops/reportoor/pkg/trendstore"
)

var trendsQueryDays int

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Print historical trends from the trend store",
	RunE:  runTrends,
}

func init() {
	rootCmd.AddCommand(trendsCmd)

	trendsCmd.Flags().IntVar(&trendsQueryDays, "days",
		config.DefaultTrendsDays, "analysis window in days")
}

func runTrends(cmd *cobra.Command, args []string) error {
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

	analyzer := trends.NewAnalyzer(log, store)

	passRate, err := analyzer.PassRateTrend(ctx, trendsQueryDays)
	if err != nil {
		return fmt.Errorf("computing pass rate trend: %w", err)
	}

	duration, err := analyzer.DurationTrend(ctx, trendsQueryDays)
	if err != nil {
		return fmt.Errorf("computing duration trend: %w", err)
	}

	performance, err := analyzer.PerformanceTrend(ctx, trendsQueryDays)
	if err != nil {
		return fmt.Errorf("computing performance trend: %w", err)
	}

	doc := report.BuildTrendsReport(
		trendsQueryDays, passRate, duration, performance,
	)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trends: %w", err)
	}

	fmt.Println(string(data))

	return nil
}
