package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/reportoor/pkg/aggregator"
	"github.com/ethpandaops/reportoor/pkg/flaky"
	"github.com/ethpandaops/reportoor/pkg/parser"
	"github.com/ethpandaops/reportoor/pkg/trends"
)

func testEmitter(t *testing.T) (*Emitter, string) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	dir := t.TempDir()

	return NewEmitter(log, dir, nil), dir
}

func sampleRun() *aggregator.TestRun {
	e2e := &parser.SuiteResult{
		Suite:           parser.SuiteE2E,
		Total:           10,
		Passed:          8,
		Failed:          1,
		Skipped:         1,
		DurationSeconds: 120.5,
		Failures: []parser.Failure{
			{
				TestName:     "checkout flow",
				Suite:        parser.SuiteE2E,
				ErrorMessage: "timeout waiting for cart",
				File:         "checkout.spec.ts",
				Line:         88,
				Screenshot:   "screenshots/checkout.png",
			},
		},
	}

	run := aggregator.Aggregate(
		[]*parser.SuiteResult{e2e},
		aggregator.Metadata{GitCommit: "abc123", GitBranch: "main"},
	)
	run.Timestamp = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	return run
}

func TestBuildRunReport(t *testing.T) {
	run := sampleRun()

	doc := BuildRunReport(run)

	assert.Equal(t, run.Timestamp, doc.Timestamp)
	assert.Equal(t, 10, doc.Summary.TotalTests)
	assert.Equal(t, 8, doc.Summary.Passed)
	assert.Equal(t, 1, doc.Summary.Failed)
	assert.Equal(t, 1, doc.Summary.Skipped)
	assert.InDelta(t, 80.0, doc.Summary.PassRate, 0.0001)
	assert.InDelta(t, 120.5, doc.Summary.DurationSeconds, 0.0001)

	require.Contains(t, doc.TestSuites, "e2e")
	assert.Equal(t, 10, doc.TestSuites["e2e"].Total)

	require.Len(t, doc.Failures, 1)
	assert.Equal(t, "checkout flow", doc.Failures[0].TestName)
	assert.Equal(t, "e2e", doc.Failures[0].Suite)
	assert.Equal(t, 88, doc.Failures[0].Line)

	assert.Nil(t, doc.Performance)
	assert.Equal(t, "abc123", doc.Metadata.GitCommit)
}

func TestBuildRunReport_WithPerformance(t *testing.T) {
	run := sampleRun()
	run.AttachPerformance(&parser.PerformanceMetrics{
		TotalRequests:     15000,
		RequestsPerSecond: 250.5,
	})

	doc := BuildRunReport(run)

	require.NotNil(t, doc.Performance)
	assert.Equal(t, int64(15000), doc.Performance.TotalRequests)
}

func TestWriteRunReport(t *testing.T) {
	emitter, dir := testEmitter(t)

	path, err := emitter.WriteRunReport(sampleRun())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, RunReportFile), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	require.Contains(t, doc, "summary")
	require.Contains(t, doc, "test_suites")
	require.Contains(t, doc, "failures")
	require.Contains(t, doc, "metadata")

	// Performance is omitted when no load-test report was ingested.
	assert.NotContains(t, doc, "performance")

	summary, ok := doc["summary"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 10, summary["total_tests"], 0.0001)
	assert.InDelta(t, 80.0, summary["pass_rate"], 0.0001)
}

func TestWriteRunReport_CreatesOutputDir(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	dir := filepath.Join(t.TempDir(), "nested", "reports")
	emitter := NewEmitter(log, dir, nil)

	path, err := emitter.WriteRunReport(sampleRun())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWriteFlakyReport(t *testing.T) {
	emitter, dir := testEmitter(t)

	rep := flaky.BuildReport([]flaky.Record{
		{TestName: "checkout flow", Severity: flaky.SeverityHigh},
	}, 30, 5)

	path, err := emitter.WriteFlakyReport(rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FlakyReportFile), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.InDelta(t, 1, doc["total_flaky_tests"], 0.0001)
	require.Contains(t, doc, "flaky_tests_by_severity")
}

func TestWriteTrendsReport(t *testing.T) {
	emitter, dir := testEmitter(t)

	rep := BuildTrendsReport(
		30,
		[]trends.PassRatePoint{{PassRate: 95.5, Total: 20, Passed: 19, Failed: 1}},
		[]trends.DurationPoint{{DurationSeconds: 150}},
		nil,
	)

	path, err := emitter.WriteTrendsReport(rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, TrendsReportFile), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.InDelta(t, 30, doc["analysis_period_days"], 0.0001)
	require.Contains(t, doc, "pass_rate")
	require.Contains(t, doc, "duration")
}
