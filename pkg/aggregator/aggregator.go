// Package aggregator combines normalized suite results into a single
// canonical test run.
package aggregator

import (
	"math"
	"time"

	"github.com/ethpandaops/reportoor/pkg/parser"
)

// Metadata carries optional CI provenance for a run.
type Metadata struct {
	GitCommit string
	GitBranch string
	CIRunID   string
}

// TestRun is the canonical representation of one ingestion event.
type TestRun struct {
	Timestamp       time.Time
	Metadata        Metadata
	Total           int
	Passed          int
	Failed          int
	Skipped         int
	DurationSeconds float64
	PassRate        float64
	Suites          map[parser.Suite]*parser.SuiteResult
	Failures        []parser.Failure
	Performance     *parser.PerformanceMetrics
}

// Aggregate sums counts and durations across all present suites and
// concatenates their failures. Summation is commutative, so suite
// ordering never changes the result. The pass rate is computed once
// from the final counts; zero suites yield a zero run, not NaN.
func Aggregate(results []*parser.SuiteResult, meta Metadata) *TestRun {
	run := &TestRun{
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
		Suites:    make(map[parser.Suite]*parser.SuiteResult, len(results)),
	}

	for _, r := range results {
		if r == nil {
			continue
		}

		run.Total += r.Total
		run.Passed += r.Passed
		run.Failed += r.Failed
		run.Skipped += r.Skipped
		run.DurationSeconds += r.DurationSeconds
		run.Failures = append(run.Failures, r.Failures...)
		run.Suites[r.Suite] = r
	}

	run.PassRate = PassRate(run.Passed, run.Total)

	return run
}

// AttachPerformance records load-test metrics on the run. Metrics do
// not participate in pass/fail counts.
func (r *TestRun) AttachPerformance(metrics *parser.PerformanceMetrics) {
	r.Performance = metrics
}

// PassRate derives the percentage of passed tests, rounded to two
// decimal places. A run with no tests has a pass rate of zero.
func PassRate(passed, total int) float64 {
	if total <= 0 {
		return 0
	}

	return math.Round(float64(passed)/float64(total)*10000) / 100
}
