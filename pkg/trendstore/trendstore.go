// Package trendstore persists canonical test runs and serves the
// time-windowed queries that trend analysis is built on.
package trendstore

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ethpandaops/reportoor/pkg/aggregator"
	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/ethpandaops/reportoor/pkg/parser"
)

// ResultFilter narrows QueryResultsSince. Zero values match everything.
type ResultFilter struct {
	Suite    parser.Suite
	Status   string
	TestName string
}

// Store provides durable, append-only persistence for test runs.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// StoreRun writes the run and all of its child rows in a single
	// transaction and returns the assigned run ID.
	StoreRun(ctx context.Context, run *aggregator.TestRun) (uint, error)

	// QueryRunsSince returns runs with timestamp >= since, ascending.
	QueryRunsSince(ctx context.Context, since time.Time) ([]TestRun, error)

	// QueryResultsSince returns failure rows for runs with
	// timestamp >= since, ascending by run timestamp.
	QueryResultsSince(
		ctx context.Context, since time.Time, filter ResultFilter,
	) ([]TestResult, error)

	// QueryRunSuitesSince returns suite-presence rows for runs with
	// timestamp >= since, ascending by run timestamp.
	QueryRunSuitesSince(
		ctx context.Context, since time.Time,
	) ([]RunSuite, error)

	// QueryPerformanceSince returns performance rows for runs with
	// timestamp >= since, ascending by run timestamp.
	QueryPerformanceSince(
		ctx context.Context, since time.Time,
	) ([]PerformanceMetrics, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new trend Store backed by the configured driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "trendstore"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening trend database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&TestRun{},
		&RunSuite{},
		&TestResult{},
		&PerformanceMetrics{},
	); err != nil {
		return fmt.Errorf("running trend migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Trend database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// StoreRun persists a run, its failure rows, and its performance row
// atomically. Invariant violations are rejected before any write so a
// failed store leaves history untouched.
func (s *store) StoreRun(
	ctx context.Context, run *aggregator.TestRun,
) (uint, error) {
	if err := validateRun(run); err != nil {
		return 0, err
	}

	row := runToRow(run)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		if len(run.Suites) > 0 {
			suites := suitesToRows(row.ID, run.Suites)

			if err := tx.Create(suites).Error; err != nil {
				return fmt.Errorf("inserting run suites: %w", err)
			}
		}

		if len(run.Failures) > 0 {
			results := failuresToRows(row.ID, run.Failures)

			if err := tx.CreateInBatches(results, 100).Error; err != nil {
				return fmt.Errorf("inserting results: %w", err)
			}
		}

		if run.Performance != nil {
			perf := performanceToRow(row.ID, run.Performance)

			if err := tx.Create(perf).Error; err != nil {
				return fmt.Errorf("inserting performance metrics: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storing run: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id":   row.ID,
		"total":    row.Total,
		"failed":   row.Failed,
		"failures": len(run.Failures),
	}).Info("Run stored")

	return row.ID, nil
}

// QueryRunsSince returns runs in the window ordered by timestamp
// ascending for trend consumers.
func (s *store) QueryRunsSince(
	ctx context.Context, since time.Time,
) ([]TestRun, error) {
	var runs []TestRun
	if err := s.db.WithContext(ctx).
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	return runs, nil
}

// QueryResultsSince returns failure rows joined against their run's
// timestamp window, ordered by run timestamp ascending.
func (s *store) QueryResultsSince(
	ctx context.Context, since time.Time, filter ResultFilter,
) ([]TestResult, error) {
	q := s.db.WithContext(ctx).
		Model(&TestResult{}).
		Joins("JOIN test_runs ON test_runs.id = test_results.run_id").
		Where("test_runs.timestamp >= ?", since).
		Order("test_runs.timestamp ASC")

	if filter.Suite != "" {
		q = q.Where("test_results.suite = ?", string(filter.Suite))
	}

	if filter.Status != "" {
		q = q.Where("test_results.status = ?", filter.Status)
	}

	if filter.TestName != "" {
		q = q.Where("test_results.test_name = ?", filter.TestName)
	}

	var results []TestResult
	if err := q.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}

	return results, nil
}

// QueryRunSuitesSince returns suite-presence rows joined against their
// run's timestamp window, ordered by run timestamp ascending.
func (s *store) QueryRunSuitesSince(
	ctx context.Context, since time.Time,
) ([]RunSuite, error) {
	var rows []RunSuite
	if err := s.db.WithContext(ctx).
		Model(&RunSuite{}).
		Joins("JOIN test_runs ON test_runs.id = run_suites.run_id").
		Where("test_runs.timestamp >= ?", since).
		Order("test_runs.timestamp ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying run suites: %w", err)
	}

	return rows, nil
}

// QueryPerformanceSince returns performance rows in the window ordered
// by run timestamp ascending.
func (s *store) QueryPerformanceSince(
	ctx context.Context, since time.Time,
) ([]PerformanceMetrics, error) {
	var rows []PerformanceMetrics
	if err := s.db.WithContext(ctx).
		Model(&PerformanceMetrics{}).
		Joins("JOIN test_runs ON test_runs.id = performance_metrics.run_id").
		Where("test_runs.timestamp >= ?", since).
		Order("test_runs.timestamp ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying performance metrics: %w", err)
	}

	return rows, nil
}

// validateRun rejects runs whose counts violate the canonical schema.
// Malformed counts are never clamped.
func validateRun(run *aggregator.TestRun) error {
	if run.Total < 0 || run.Passed < 0 || run.Failed < 0 || run.Skipped < 0 {
		return fmt.Errorf("run has negative counts")
	}

	if run.Total != run.Passed+run.Failed+run.Skipped {
		return fmt.Errorf(
			"run counts do not sum: total=%d passed=%d failed=%d skipped=%d",
			run.Total, run.Passed, run.Failed, run.Skipped,
		)
	}

	if run.DurationSeconds < 0 {
		return fmt.Errorf("run has negative duration")
	}

	return nil
}

func runToRow(run *aggregator.TestRun) *TestRun {
	return &TestRun{
		Timestamp:       run.Timestamp,
		GitCommit:       optional(run.Metadata.GitCommit),
		GitBranch:       optional(run.Metadata.GitBranch),
		CIRunID:         optional(run.Metadata.CIRunID),
		Total:           run.Total,
		Passed:          run.Passed,
		Failed:          run.Failed,
		Skipped:         run.Skipped,
		DurationSeconds: run.DurationSeconds,
		PassRate:        run.PassRate,
	}
}

func suitesToRows(
	runID uint, suites map[parser.Suite]*parser.SuiteResult,
) []RunSuite {
	rows := make([]RunSuite, 0, len(suites))

	for suite, r := range suites {
		rows = append(rows, RunSuite{
			RunID:           runID,
			Suite:           string(suite),
			Total:           r.Total,
			Passed:          r.Passed,
			Failed:          r.Failed,
			Skipped:         r.Skipped,
			DurationSeconds: r.DurationSeconds,
		})
	}

	return rows
}

func failuresToRows(runID uint, failures []parser.Failure) []TestResult {
	rows := make([]TestResult, 0, len(failures))

	for _, f := range failures {
		row := TestResult{
			RunID:        runID,
			TestName:     f.TestName,
			Suite:        string(f.Suite),
			Status:       "failed",
			ErrorMessage: f.ErrorMessage,
			File:         optional(f.File),
		}

		if f.Line > 0 {
			line := f.Line
			row.Line = &line
		}

		rows = append(rows, row)
	}

	return rows
}

func performanceToRow(
	runID uint, m *parser.PerformanceMetrics,
) *PerformanceMetrics {
	return &PerformanceMetrics{
		RunID:             runID,
		TotalRequests:     m.TotalRequests,
		FailureRate:       m.FailureRate,
		RequestsPerSecond: m.RequestsPerSecond,
		ResponseTime50th:  m.ResponseTime50th,
		ResponseTime95th:  m.ResponseTime95th,
		ResponseTime99th:  m.ResponseTime99th,
	}
}

// optional maps empty strings to NULL columns.
func optional(v string) *string {
	if v == "" {
		return nil
	}

	return &v
}
