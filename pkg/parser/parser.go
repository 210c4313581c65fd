package parser

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Suite identifies the test category a report belongs to.
type Suite string

const (
	SuiteE2E         Suite = "e2e"
	SuiteIntegration Suite = "integration"
	SuiteVisual      Suite = "visual"
	SuitePerformance Suite = "performance"
)

// Failure is one recorded test failure within a suite.
type Failure struct {
	TestName     string
	Suite        Suite
	ErrorMessage string
	StackTrace   string
	File         string
	Line         int
	Screenshot   string
}

// SuiteResult is the normalized outcome of a single suite report.
type SuiteResult struct {
	Suite           Suite
	Total           int
	Passed          int
	Failed          int
	Skipped         int
	DurationSeconds float64
	Failures        []Failure
}

// validate rejects suite results whose counts a malformed report could
// have corrupted. Counts are never clamped; a bad suite is dropped whole.
func (r *SuiteResult) validate() error {
	if r.Total < 0 || r.Passed < 0 || r.Failed < 0 || r.Skipped < 0 {
		return fmt.Errorf("suite %s: negative counts", r.Suite)
	}

	if r.DurationSeconds < 0 {
		return fmt.Errorf("suite %s: negative duration", r.Suite)
	}

	return nil
}

// ParseFunc converts a raw suite report into a SuiteResult.
type ParseFunc func(raw []byte) (*SuiteResult, error)

// ParseSuiteFile reads and parses a single suite report file.
// A missing file means the suite was not run and yields (nil, nil).
// A malformed file yields (nil, nil) with a warning so the remaining
// suites can still be aggregated.
func ParseSuiteFile(
	log logrus.FieldLogger, suite Suite, path string, parse ParseFunc,
) (*SuiteResult, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("suite", suite).
				WithField("path", path).
				Debug("Suite report not found, treating as not run")

			return nil, nil
		}

		return nil, fmt.Errorf("reading %s report: %w", suite, err)
	}

	result, err := parse(raw)
	if err != nil {
		log.WithError(err).
			WithField("suite", suite).
			WithField("path", path).
			Warn("Skipping unparsable suite report")

		return nil, nil
	}

	return result, nil
}
