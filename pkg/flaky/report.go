package flaky

import "time"

// SeverityCounts buckets flaky tests per severity tier.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Report is the flaky-test report document.
type Report struct {
	GeneratedAt          time.Time      `json:"generated_at"`
	AnalysisPeriodDays   int            `json:"analysis_period_days"`
	MinRunsThreshold     int            `json:"min_runs_threshold"`
	TotalFlakyTests      int            `json:"total_flaky_tests"`
	FlakyTestsBySeverity SeverityCounts `json:"flaky_tests_by_severity"`
	FlakyTests           []Record       `json:"flaky_tests"`
}

// BuildReport wraps detection records into the report document.
func BuildReport(records []Record, days, minRuns int) *Report {
	report := &Report{
		GeneratedAt:        time.Now().UTC(),
		AnalysisPeriodDays: days,
		MinRunsThreshold:   minRuns,
		TotalFlakyTests:    len(records),
		FlakyTests:         records,
	}

	if report.FlakyTests == nil {
		report.FlakyTests = []Record{}
	}

	for _, r := range records {
		switch r.Severity {
		case SeverityCritical:
			report.FlakyTestsBySeverity.Critical++
		case SeverityHigh:
			report.FlakyTestsBySeverity.High++
		case SeverityMedium:
			report.FlakyTestsBySeverity.Medium++
		case SeverityLow:
			report.FlakyTestsBySeverity.Low++
		}
	}

	return report
}
