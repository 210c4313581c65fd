package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// PerformanceMetrics summarizes a load-test run. It is attached to a
// test run as-is and never contributes to pass/fail counts.
type PerformanceMetrics struct {
	TotalRequests     int64
	FailureRate       float64
	RequestsPerSecond float64
	ResponseTime50th  float64
	ResponseTime95th  float64
	ResponseTime99th  float64
}

// performanceReport mirrors the load-test tool's summary output.
type performanceReport struct {
	Summary       performanceSummary `json:"summary"`
	ResponseTimes map[string]float64 `json:"response_times_ms"`
}

type performanceSummary struct {
	TotalRequests      int64   `json:"total_requests"`
	FailureRatePercent float64 `json:"failure_rate_percent"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
}

// ParsePerformance converts a load-test report into PerformanceMetrics.
func ParsePerformance(raw []byte) (*PerformanceMetrics, error) {
	var report performanceReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("parsing performance report: %w", err)
	}

	if report.Summary.TotalRequests < 0 ||
		report.Summary.FailureRatePercent < 0 ||
		report.Summary.FailureRatePercent > 100 {
		return nil, fmt.Errorf("performance report: summary out of range")
	}

	return &PerformanceMetrics{
		TotalRequests:     report.Summary.TotalRequests,
		FailureRate:       report.Summary.FailureRatePercent,
		RequestsPerSecond: report.Summary.RequestsPerSecond,
		ResponseTime50th:  report.ResponseTimes["50th"],
		ResponseTime95th:  report.ResponseTimes["95th"],
		ResponseTime99th:  report.ResponseTimes["99th"],
	}, nil
}

// ParsePerformanceFile reads and parses a load-test report file with
// the same skip semantics as ParseSuiteFile: missing or malformed
// files yield (nil, nil) so the run can proceed without metrics.
func ParsePerformanceFile(
	log logrus.FieldLogger, path string,
) (*PerformanceMetrics, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("path", path).
				Debug("Performance report not found, treating as not run")

			return nil, nil
		}

		return nil, fmt.Errorf("reading performance report: %w", err)
	}

	metrics, err := ParsePerformance(raw)
	if err != nil {
		log.WithError(err).
			WithField("path", path).
			Warn("Skipping unparsable performance report")

		return nil, nil
	}

	return metrics, nil
}
