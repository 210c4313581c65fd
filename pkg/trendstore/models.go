package trendstore

import "time"

// TestRun is one ingested run. Rows are append-only: trend math
// depends on history never being rewritten.
type TestRun struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index;not null"`

	// Optional CI provenance.
	GitCommit *string
	GitBranch *string
	CIRunID   *string

	Total           int
	Passed          int
	Failed          int
	Skipped         int
	DurationSeconds float64
	PassRate        float64
}

// TestResult is one recorded failure belonging to exactly one run.
// Passing tests are represented only in run-level counts.
type TestResult struct {
	ID    uint `gorm:"primaryKey"`
	RunID uint `gorm:"index;not null"`

	TestName string `gorm:"index:idx_results_name_status;not null"`
	Suite    string `gorm:"not null"`
	Status   string `gorm:"index:idx_results_name_status;not null"`

	ErrorMessage string `gorm:"type:text"`
	File         *string
	Line         *int
}

// RunSuite records that a run contained a suite, with that suite's
// counts. Flaky statistics scope run totals to the runs that actually
// contained the candidate's suite.
type RunSuite struct {
	ID    uint   `gorm:"primaryKey"`
	RunID uint   `gorm:"index;not null"`
	Suite string `gorm:"index;not null"`

	Total           int
	Passed          int
	Failed          int
	Skipped         int
	DurationSeconds float64
}

// PerformanceMetrics is the zero-or-one load-test summary for a run.
type PerformanceMetrics struct {
	ID    uint `gorm:"primaryKey"`
	RunID uint `gorm:"uniqueIndex;not null"`

	TotalRequests     int64
	FailureRate       float64
	RequestsPerSecond float64
	ResponseTime50th  float64
	ResponseTime95th  float64
	ResponseTime99th  float64
}
