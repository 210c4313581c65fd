// Package report serializes canonical run and flaky-test documents.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/reportoor/pkg/aggregator"
	"github.com/ethpandaops/reportoor/pkg/flaky"
	"github.com/ethpandaops/reportoor/pkg/fsutil"
	"github.com/ethpandaops/reportoor/pkg/parser"
)

const (
	// RunReportFile is the canonical run report filename.
	RunReportFile = "report.json"

	// FlakyReportFile is the flaky-test report filename.
	FlakyReportFile = "flaky-report.json"
)

// Summary is the run-level counts block of the canonical document.
type Summary struct {
	TotalTests      int     `json:"total_tests"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	PassRate        float64 `json:"pass_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// SuiteSummary is the per-suite counts block.
type SuiteSummary struct {
	Total           int     `json:"total"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// FailureEntry is one failure in the canonical document.
type FailureEntry struct {
	TestName     string `json:"test_name"`
	File         string `json:"file,omitempty"`
	Line         int    `json:"line,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	StackTrace   string `json:"stack_trace,omitempty"`
	Screenshot   string `json:"screenshot,omitempty"`
	Suite        string `json:"suite"`
}

// PerformanceSummary carries load-test metrics when a performance
// report was ingested.
type PerformanceSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	FailureRate       float64 `json:"failure_rate"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	ResponseTime50th  float64 `json:"response_time_50th"`
	ResponseTime95th  float64 `json:"response_time_95th"`
	ResponseTime99th  float64 `json:"response_time_99th"`
}

// Metadata is the CI provenance block.
type Metadata struct {
	GitCommit string `json:"git_commit,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`
	CIRunID   string `json:"ci_run_id,omitempty"`
}

// RunReport is the canonical JSON document for one test run.
type RunReport struct {
	Timestamp   time.Time               `json:"timestamp"`
	Summary     Summary                 `json:"summary"`
	TestSuites  map[string]SuiteSummary `json:"test_suites"`
	Failures    []FailureEntry          `json:"failures"`
	Performance *PerformanceSummary     `json:"performance,omitempty"`
	Metadata    Metadata                `json:"metadata"`
}

// BuildRunReport converts an aggregated run into its canonical
// document form.
func BuildRunReport(run *aggregator.TestRun) *RunReport {
	doc := &RunReport{
		Timestamp: run.Timestamp,
		Summary: Summary{
			TotalTests:      run.Total,
			Passed:          run.Passed,
			Failed:          run.Failed,
			Skipped:         run.Skipped,
			PassRate:        run.PassRate,
			DurationSeconds: run.DurationSeconds,
		},
		TestSuites: make(map[string]SuiteSummary, len(run.Suites)),
		Failures:   make([]FailureEntry, 0, len(run.Failures)),
		Metadata: Metadata{
			GitCommit: run.Metadata.GitCommit,
			GitBranch: run.Metadata.GitBranch,
			CIRunID:   run.Metadata.CIRunID,
		},
	}

	for suite, r := range run.Suites {
		doc.TestSuites[string(suite)] = SuiteSummary{
			Total:           r.Total,
			Passed:          r.Passed,
			Failed:          r.Failed,
			Skipped:         r.Skipped,
			DurationSeconds: r.DurationSeconds,
		}
	}

	for _, f := range run.Failures {
		doc.Failures = append(doc.Failures, FailureEntry{
			TestName:     f.TestName,
			File:         f.File,
			Line:         f.Line,
			ErrorMessage: f.ErrorMessage,
			StackTrace:   f.StackTrace,
			Screenshot:   f.Screenshot,
			Suite:        string(f.Suite),
		})
	}

	if run.Performance != nil {
		doc.Performance = performanceSummary(run.Performance)
	}

	return doc
}

func performanceSummary(m *parser.PerformanceMetrics) *PerformanceSummary {
	return &PerformanceSummary{
		TotalRequests:     m.TotalRequests,
		FailureRate:       m.FailureRate,
		RequestsPerSecond: m.RequestsPerSecond,
		ResponseTime50th:  m.ResponseTime50th,
		ResponseTime95th:  m.ResponseTime95th,
		ResponseTime99th:  m.ResponseTime99th,
	}
}

// Emitter writes report documents to the output directory.
type Emitter struct {
	log       logrus.FieldLogger
	outputDir string
	owner     *fsutil.OwnerConfig
}

// NewEmitter creates a report emitter. The owner is applied to written
// files so reports emitted by a root CI process stay readable.
func NewEmitter(
	log logrus.FieldLogger, outputDir string, owner *fsutil.OwnerConfig,
) *Emitter {
	return &Emitter{
		log:       log.WithField("component", "report"),
		outputDir: outputDir,
		owner:     owner,
	}
}

// WriteRunReport writes the canonical run report and returns its path.
func (e *Emitter) WriteRunReport(run *aggregator.TestRun) (string, error) {
	return e.write(RunReportFile, BuildRunReport(run))
}

// WriteFlakyReport writes the flaky-test report and returns its path.
func (e *Emitter) WriteFlakyReport(rep *flaky.Report) (string, error) {
	return e.write(FlakyReportFile, rep)
}

func (e *Emitter) write(name string, doc any) (string, error) {
	if err := fsutil.MkdirAll(e.outputDir, 0755, e.owner); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", name, err)
	}

	path := filepath.Join(e.outputDir, name)

	if err := fsutil.WriteFile(path, data, 0644, e.owner); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	e.log.WithField("path", path).Info("Report written")

	return path, nil
}
