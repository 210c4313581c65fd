package parser

import (
	"encoding/json"
	"fmt"
)

// e2eReport mirrors the nested suite/spec/test tree emitted by the
// end-to-end runner.
type e2eReport struct {
	Suites []e2eSuite `json:"suites"`
}

type e2eSuite struct {
	Specs []e2eSpec `json:"specs"`
}

type e2eSpec struct {
	File  string    `json:"file"`
	Line  int       `json:"line"`
	Tests []e2eTest `json:"tests"`
}

type e2eTest struct {
	Title   string          `json:"title"`
	Status  string          `json:"status"`
	Results []e2eTestResult `json:"results"`
}

type e2eTestResult struct {
	Status      string          `json:"status"`
	DurationMS  float64         `json:"duration"`
	Error       *e2eError       `json:"error"`
	Attachments []e2eAttachment `json:"attachments"`
}

type e2eError struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

type e2eAttachment struct {
	Path string `json:"path"`
}

// ParseE2E walks the suites/specs/tests tree and normalizes it.
// Counts are taken at the leaf test level from its reported status;
// each failed test contributes one Failure per failing result.
// Result durations are reported in milliseconds.
func ParseE2E(raw []byte) (*SuiteResult, error) {
	var report e2eReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("parsing e2e report: %w", err)
	}

	result := &SuiteResult{Suite: SuiteE2E}

	for _, suite := range report.Suites {
		for _, spec := range suite.Specs {
			for _, test := range spec.Tests {
				result.Total++

				switch test.Status {
				case "passed":
					result.Passed++
				case "failed":
					result.Failed++

					result.Failures = append(
						result.Failures,
						e2eFailures(&spec, &test)...,
					)
				default:
					// Unrecognized statuses count as skipped so run
					// totals stay equal to passed+failed+skipped.
					result.Skipped++
				}

				for _, r := range test.Results {
					result.DurationSeconds += r.DurationMS / 1000.0
				}
			}
		}
	}

	if err := result.validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// e2eFailures emits one Failure per failing result of a failed test.
func e2eFailures(spec *e2eSpec, test *e2eTest) []Failure {
	failures := make([]Failure, 0, len(test.Results))

	for _, r := range test.Results {
		if r.Status != "failed" {
			continue
		}

		failure := Failure{
			TestName: test.Title,
			Suite:    SuiteE2E,
			File:     spec.File,
			Line:     spec.Line,
		}

		if r.Error != nil {
			failure.ErrorMessage = r.Error.Message
			failure.StackTrace = r.Error.Stack
		}

		// First attachment path doubles as a screenshot reference.
		if len(r.Attachments) > 0 {
			failure.Screenshot = r.Attachments[0].Path
		}

		failures = append(failures, failure)
	}

	return failures
}
