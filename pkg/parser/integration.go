package parser

import (
	"encoding/json"
	"fmt"
)

// integrationReport mirrors the flat test-list report emitted by the
// unit/integration runner.
type integrationReport struct {
	Summary         integrationSummary `json:"summary"`
	DurationSeconds float64            `json:"duration"`
	Tests           []integrationTest  `json:"tests"`
}

type integrationSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type integrationTest struct {
	NodeID   string           `json:"nodeid"`
	Outcome  string           `json:"outcome"`
	Location []any            `json:"location"`
	Call     *integrationCall `json:"call"`
}

type integrationCall struct {
	LongRepr  string `json:"longrepr"`
	Traceback string `json:"traceback"`
}

// ParseIntegration reads the summary block as-is (no recomputation)
// and emits one Failure per test whose outcome is "failed".
func ParseIntegration(raw []byte) (*SuiteResult, error) {
	var report integrationReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("parsing integration report: %w", err)
	}

	result := &SuiteResult{
		Suite:           SuiteIntegration,
		Total:           report.Summary.Total,
		Passed:          report.Summary.Passed,
		Failed:          report.Summary.Failed,
		Skipped:         report.Summary.Skipped,
		DurationSeconds: report.DurationSeconds,
	}

	for _, test := range report.Tests {
		if test.Outcome != "failed" {
			continue
		}

		failure := Failure{
			TestName: test.NodeID,
			Suite:    SuiteIntegration,
		}

		if test.Call != nil {
			failure.ErrorMessage = test.Call.LongRepr
			failure.StackTrace = test.Call.Traceback
		}

		failure.File, failure.Line = integrationLocation(test.Location)

		result.Failures = append(result.Failures, failure)
	}

	if err := result.validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// integrationLocation extracts file and line from the runner's
// [file, line, ...] location array, tolerating missing entries.
func integrationLocation(location []any) (string, int) {
	var (
		file string
		line int
	)

	if len(location) > 0 {
		if f, ok := location[0].(string); ok {
			file = f
		}
	}

	if len(location) > 1 {
		if l, ok := location[1].(float64); ok {
			line = int(l)
		}
	}

	return file, line
}
