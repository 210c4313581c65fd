// Package trends computes time-bounded series over stored test runs.
package trends

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/reportoor/pkg/parser"
	"github.com/ethpandaops/reportoor/pkg/trendstore"
)

// PassRatePoint is one pass-rate trend sample.
type PassRatePoint struct {
	Timestamp time.Time `json:"timestamp"`
	PassRate  float64   `json:"pass_rate"`
	Total     int       `json:"total"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
}

// DurationPoint is one duration trend sample.
type DurationPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// PerformancePoint is one load-test trend sample.
type PerformancePoint struct {
	Timestamp         time.Time `json:"timestamp"`
	TotalRequests     int64     `json:"total_requests"`
	FailureRate       float64   `json:"failure_rate"`
	RequestsPerSecond float64   `json:"requests_per_second"`
	ResponseTime50th  float64   `json:"response_time_50th"`
	ResponseTime95th  float64   `json:"response_time_95th"`
	ResponseTime99th  float64   `json:"response_time_99th"`
}

// FlakyCandidate is a test that both failed and passed in the window.
type FlakyCandidate struct {
	TestName    string       `json:"test_name"`
	Suite       parser.Suite `json:"suite"`
	TotalRuns   int          `json:"total_runs"`
	Failures    int          `json:"failures"`
	Passes      int          `json:"passes"`
	FailureRate float64      `json:"failure_rate"`
	File        string       `json:"file,omitempty"`
}

// Analyzer provides read-only trend queries over the trend store.
type Analyzer struct {
	log   logrus.FieldLogger
	store trendstore.Store
}

// NewAnalyzer creates a new trend analyzer.
func NewAnalyzer(log logrus.FieldLogger, store trendstore.Store) *Analyzer {
	return &Analyzer{
		log:   log.WithField("component", "trends"),
		store: store,
	}
}

// windowStart bounds a query to the trailing day window.
func windowStart(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

// PassRateTrend returns per-run pass-rate samples for the window,
// ascending by timestamp.
func (a *Analyzer) PassRateTrend(
	ctx context.Context, days int,
) ([]PassRatePoint, error) {
	runs, err := a.store.QueryRunsSince(ctx, windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("loading pass rate trend: %w", err)
	}

	points := make([]PassRatePoint, 0, len(runs))

	for _, run := range runs {
		points = append(points, PassRatePoint{
			Timestamp: run.Timestamp,
			PassRate:  run.PassRate,
			Total:     run.Total,
			Passed:    run.Passed,
			Failed:    run.Failed,
		})
	}

	return points, nil
}

// DurationTrend returns per-run duration samples for the window,
// ascending by timestamp.
func (a *Analyzer) DurationTrend(
	ctx context.Context, days int,
) ([]DurationPoint, error) {
	runs, err := a.store.QueryRunsSince(ctx, windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("loading duration trend: %w", err)
	}

	points := make([]DurationPoint, 0, len(runs))

	for _, run := range runs {
		points = append(points, DurationPoint{
			Timestamp:       run.Timestamp,
			DurationSeconds: run.DurationSeconds,
		})
	}

	return points, nil
}

// PerformanceTrend returns load-test samples for runs in the window
// that carried performance metrics, ascending by timestamp.
func (a *Analyzer) PerformanceTrend(
	ctx context.Context, days int,
) ([]PerformancePoint, error) {
	since := windowStart(days)

	runs, err := a.store.QueryRunsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading performance trend: %w", err)
	}

	metrics, err := a.store.QueryPerformanceSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading performance trend: %w", err)
	}

	timestamps := make(map[uint]time.Time, len(runs))
	for _, run := range runs {
		timestamps[run.ID] = run.Timestamp
	}

	points := make([]PerformancePoint, 0, len(metrics))

	for _, m := range metrics {
		ts, ok := timestamps[m.RunID]
		if !ok {
			continue
		}

		points = append(points, PerformancePoint{
			Timestamp:         ts,
			TotalRequests:     m.TotalRequests,
			FailureRate:       m.FailureRate,
			RequestsPerSecond: m.RequestsPerSecond,
			ResponseTime50th:  m.ResponseTime50th,
			ResponseTime95th:  m.ResponseTime95th,
			ResponseTime99th:  m.ResponseTime99th,
		})
	}

	return points, nil
}

// candidateKey groups failure rows per named test per suite.
type candidateKey struct {
	testName string
	suite    string
}

// CandidateFlakyTests groups recorded failures by (test name, suite)
// and keeps tests that both failed and passed at least once across at
// least minRuns runs of their suite in the window.
//
// Only failures are persisted, so per-test passes are not directly
// observable: a test is assumed to have passed in every windowed run
// of its suite it has no failure row for. Run totals are scoped to
// the runs that actually contained the suite, so runs ingested
// without it never dilute a test's failure rate. This still conflates
// "did not run" with "passed" when the suite's test set changes
// between runs.
func (a *Analyzer) CandidateFlakyTests(
	ctx context.Context, days, minRuns int,
) ([]FlakyCandidate, error) {
	since := windowStart(days)

	suiteRows, err := a.store.QueryRunSuitesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading flaky candidates: %w", err)
	}

	if len(suiteRows) == 0 {
		return []FlakyCandidate{}, nil
	}

	suiteRuns := make(map[string]int, len(suiteRows))
	for _, row := range suiteRows {
		suiteRuns[row.Suite]++
	}

	results, err := a.store.QueryResultsSince(
		ctx, since, trendstore.ResultFilter{Status: "failed"},
	)
	if err != nil {
		return nil, fmt.Errorf("loading flaky candidates: %w", err)
	}

	// A test may record several failure rows in one run (retries);
	// count failing runs, not rows.
	failingRuns := make(map[candidateKey]map[uint]struct{})
	files := make(map[candidateKey]string)

	for _, r := range results {
		key := candidateKey{testName: r.TestName, suite: r.Suite}

		if failingRuns[key] == nil {
			failingRuns[key] = make(map[uint]struct{})
		}

		failingRuns[key][r.RunID] = struct{}{}

		if files[key] == "" && r.File != nil {
			files[key] = *r.File
		}
	}

	candidates := make([]FlakyCandidate, 0, len(failingRuns))

	for key, runSet := range failingRuns {
		totalRuns := suiteRuns[key.suite]
		failures := len(runSet)
		passes := totalRuns - failures

		if totalRuns < minRuns || failures == 0 || passes <= 0 {
			continue
		}

		candidates = append(candidates, FlakyCandidate{
			TestName:    key.testName,
			Suite:       parser.Suite(key.suite),
			TotalRuns:   totalRuns,
			Failures:    failures,
			Passes:      passes,
			FailureRate: float64(failures) / float64(totalRuns) * 100,
			File:        files[key],
		})
	}

	// Map iteration order is random; sort for stable output.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Suite != candidates[j].Suite {
			return candidates[i].Suite < candidates[j].Suite
		}

		return candidates[i].TestName < candidates[j].TestName
	})

	return candidates, nil
}
