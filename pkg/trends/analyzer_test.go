package trends

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/reportoor/pkg/aggregator"
	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/ethpandaops/reportoor/pkg/parser"
	"github.com/ethpandaops/reportoor/pkg/trendstore"
)

func setupAnalyzer(t *testing.T) (*Analyzer, trendstore.Store) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	store := trendstore.NewStore(log, &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, store.Start(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, store.Stop())
	})

	return NewAnalyzer(log, store), store
}

func storeRun(
	t *testing.T,
	store trendstore.Store,
	age time.Duration,
	failures []parser.Failure,
) {
	t.Helper()

	failed := len(failures)

	run := &aggregator.TestRun{
		Timestamp:       time.Now().UTC().Add(-age),
		Total:           10,
		Passed:          10 - failed,
		Failed:          failed,
		DurationSeconds: 45,
		PassRate:        aggregator.PassRate(10-failed, 10),
		Suites: map[parser.Suite]*parser.SuiteResult{
			parser.SuiteE2E:         {Suite: parser.SuiteE2E, Total: 4, Passed: 4},
			parser.SuiteIntegration: {Suite: parser.SuiteIntegration, Total: 3, Passed: 3},
			parser.SuiteVisual:      {Suite: parser.SuiteVisual, Total: 3, Passed: 3},
		},
		Failures: failures,
	}

	_, err := store.StoreRun(context.Background(), run)
	require.NoError(t, err)
}

func TestPassRateTrend(t *testing.T) {
	analyzer, store := setupAnalyzer(t)
	ctx := context.Background()

	storeRun(t, store, 48*time.Hour, []parser.Failure{
		{TestName: "checkout flow", Suite: parser.SuiteE2E},
	})
	storeRun(t, store, 2*time.Hour, nil)

	// Outside the 7 day window.
	storeRun(t, store, 10*24*time.Hour, nil)

	points, err := analyzer.PassRateTrend(ctx, 7)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.InDelta(t, 90.0, points[0].PassRate, 0.0001)
	assert.InDelta(t, 100.0, points[1].PassRate, 0.0001)
	assert.True(t, points[0].Timestamp.Before(points[1].Timestamp))
}

func TestDurationTrend(t *testing.T) {
	analyzer, store := setupAnalyzer(t)

	storeRun(t, store, time.Hour, nil)

	points, err := analyzer.DurationTrend(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 45.0, points[0].DurationSeconds, 0.0001)
}

func TestPerformanceTrend(t *testing.T) {
	analyzer, store := setupAnalyzer(t)
	ctx := context.Background()

	withPerf := &aggregator.TestRun{
		Timestamp: time.Now().UTC().Add(-time.Hour),
		Total:     1,
		Passed:    1,
		PassRate:  100,
		Performance: &parser.PerformanceMetrics{
			TotalRequests:     15000,
			RequestsPerSecond: 250.5,
			ResponseTime95th:  180.5,
		},
	}

	withoutPerf := &aggregator.TestRun{
		Timestamp: time.Now().UTC().Add(-2 * time.Hour),
		Total:     1,
		Passed:    1,
		PassRate:  100,
	}

	_, err := store.StoreRun(ctx, withPerf)
	require.NoError(t, err)
	_, err = store.StoreRun(ctx, withoutPerf)
	require.NoError(t, err)

	points, err := analyzer.PerformanceTrend(ctx, 7)
	require.NoError(t, err)

	// Runs without metrics contribute no sample.
	require.Len(t, points, 1)
	assert.Equal(t, int64(15000), points[0].TotalRequests)
	assert.InDelta(t, 250.5, points[0].RequestsPerSecond, 0.0001)
}

func TestCandidateFlakyTests(t *testing.T) {
	analyzer, store := setupAnalyzer(t)
	ctx := context.Background()

	flaky := parser.Failure{
		TestName: "checkout flow",
		Suite:    parser.SuiteE2E,
		File:     "checkout.spec.ts",
	}

	// 10 runs, 4 with the failing test.
	for i := 0; i < 10; i++ {
		var failures []parser.Failure
		if i < 4 {
			failures = []parser.Failure{flaky}
		}

		storeRun(t, store, time.Duration(i+1)*time.Hour, failures)
	}

	candidates, err := analyzer.CandidateFlakyTests(ctx, 7, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "checkout flow", c.TestName)
	assert.Equal(t, parser.SuiteE2E, c.Suite)
	assert.Equal(t, 10, c.TotalRuns)
	assert.Equal(t, 4, c.Failures)
	assert.Equal(t, 6, c.Passes)
	assert.InDelta(t, 40.0, c.FailureRate, 0.0001)
	assert.Equal(t, "checkout.spec.ts", c.File)
}

func TestCandidateFlakyTests_AlwaysFailingExcluded(t *testing.T) {
	analyzer, store := setupAnalyzer(t)

	broken := parser.Failure{TestName: "always broken", Suite: parser.SuiteVisual}

	for i := 0; i < 6; i++ {
		storeRun(t, store, time.Duration(i+1)*time.Hour, []parser.Failure{broken})
	}

	candidates, err := analyzer.CandidateFlakyTests(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidateFlakyTests_MinRuns(t *testing.T) {
	analyzer, store := setupAnalyzer(t)

	flaky := parser.Failure{TestName: "checkout flow", Suite: parser.SuiteE2E}

	storeRun(t, store, time.Hour, []parser.Failure{flaky})
	storeRun(t, store, 2*time.Hour, nil)
	storeRun(t, store, 3*time.Hour, nil)

	// Three runs in the window, below the threshold of five.
	candidates, err := analyzer.CandidateFlakyTests(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidateFlakyTests_RetriesCountOneFailingRun(t *testing.T) {
	analyzer, store := setupAnalyzer(t)

	retried := parser.Failure{TestName: "flaky checkout", Suite: parser.SuiteE2E}

	// Two failure rows from the same run must count as one failing run.
	storeRun(t, store, time.Hour, []parser.Failure{retried, retried})

	for i := 0; i < 4; i++ {
		storeRun(t, store, time.Duration(i+2)*time.Hour, nil)
	}

	candidates, err := analyzer.CandidateFlakyTests(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 1, candidates[0].Failures)
	assert.Equal(t, 4, candidates[0].Passes)
}

func TestCandidateFlakyTests_SuiteScopedRunCounts(t *testing.T) {
	analyzer, store := setupAnalyzer(t)
	ctx := context.Background()

	flaky := parser.Failure{TestName: "checkout flow", Suite: parser.SuiteE2E}

	// Five runs contain the e2e suite; the test fails in four of them.
	for i := 0; i < 5; i++ {
		var failures []parser.Failure
		if i < 4 {
			failures = []parser.Failure{flaky}
		}

		failed := len(failures)

		run := &aggregator.TestRun{
			Timestamp: time.Now().UTC().Add(-time.Duration(i+1) * time.Hour),
			Total:     4,
			Passed:    4 - failed,
			Failed:    failed,
			PassRate:  aggregator.PassRate(4-failed, 4),
			Suites: map[parser.Suite]*parser.SuiteResult{
				parser.SuiteE2E: {
					Suite: parser.SuiteE2E, Total: 4, Passed: 4 - failed, Failed: failed,
				},
			},
			Failures: failures,
		}

		_, err := store.StoreRun(ctx, run)
		require.NoError(t, err)
	}

	// Five more runs without the e2e suite must not dilute its stats.
	for i := 0; i < 5; i++ {
		run := &aggregator.TestRun{
			Timestamp: time.Now().UTC().Add(-time.Duration(i+6) * time.Hour),
			Total:     3,
			Passed:    3,
			PassRate:  100,
			Suites: map[parser.Suite]*parser.SuiteResult{
				parser.SuiteIntegration: {
					Suite: parser.SuiteIntegration, Total: 3, Passed: 3,
				},
			},
		}

		_, err := store.StoreRun(ctx, run)
		require.NoError(t, err)
	}

	candidates, err := analyzer.CandidateFlakyTests(ctx, 7, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, 5, c.TotalRuns)
	assert.Equal(t, 4, c.Failures)
	assert.Equal(t, 1, c.Passes)
	assert.InDelta(t, 80.0, c.FailureRate, 0.0001)
}

func TestCandidateFlakyTests_EmptyStore(t *testing.T) {
	analyzer, _ := setupAnalyzer(t)

	candidates, err := analyzer.CandidateFlakyTests(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestCandidateFlakyTests_StableOrdering(t *testing.T) {
	analyzer, store := setupAnalyzer(t)

	failures := []parser.Failure{
		{TestName: "zeta", Suite: parser.SuiteVisual},
		{TestName: "alpha", Suite: parser.SuiteE2E},
		{TestName: "beta", Suite: parser.SuiteE2E},
	}

	storeRun(t, store, time.Hour, failures)

	for i := 0; i < 5; i++ {
		storeRun(t, store, time.Duration(i+2)*time.Hour, nil)
	}

	candidates, err := analyzer.CandidateFlakyTests(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, "alpha", candidates[0].TestName)
	assert.Equal(t, "beta", candidates[1].TestName)
	assert.Equal(t, "zeta", candidates[2].TestName)
}
