// Package flaky classifies tests with non-deterministic outcomes and
// ranks them for remediation.
package flaky

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/reportoor/pkg/parser"
	"github.com/ethpandaops/reportoor/pkg/trends"
)

// Severity is the urgency tier assigned to a flaky test.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Config holds the detection thresholds. Thresholds are explicit
// parameters so callers and tests can override them per invocation.
type Config struct {
	// MinRuns is the minimum number of windowed runs before a test
	// can qualify as flaky.
	MinRuns int

	// FlakinessThreshold drops candidates whose failure rate (percent)
	// is below it.
	FlakinessThreshold float64

	// Severity tier boundaries, matched in order:
	// critical, then high, then medium; everything else is low.
	CriticalFailureRate float64
	CriticalMinRuns     int
	HighFailureRate     float64
	HighMinRuns         int
	MediumFailureRate   float64
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		MinRuns:             5,
		FlakinessThreshold:  10,
		CriticalFailureRate: 50,
		CriticalMinRuns:     10,
		HighFailureRate:     30,
		HighMinRuns:         20,
		MediumFailureRate:   20,
	}
}

// Record is the derived classification of one flaky test.
type Record struct {
	TestName        string       `json:"test_name"`
	Suite           parser.Suite `json:"suite"`
	TotalRuns       int          `json:"total_runs"`
	Failures        int          `json:"failures"`
	Passes          int          `json:"passes"`
	FailureRate     float64      `json:"failure_rate"`
	Severity        Severity     `json:"severity"`
	ImpactScore     float64      `json:"impact_score"`
	File            string       `json:"file,omitempty"`
	Recommendations []string     `json:"recommendations"`
}

// Detector classifies flaky tests from trend history.
type Detector struct {
	log      logrus.FieldLogger
	analyzer *trends.Analyzer
	cfg      Config
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(
	log logrus.FieldLogger, analyzer *trends.Analyzer, cfg Config,
) *Detector {
	return &Detector{
		log:      log.WithField("component", "flaky"),
		analyzer: analyzer,
		cfg:      cfg,
	}
}

// Detect returns flaky test records for the window, ordered by impact
// score descending. Store errors propagate: there is no meaningful
// partial classification against unreadable history.
func (d *Detector) Detect(ctx context.Context, days int) ([]Record, error) {
	candidates, err := d.analyzer.CandidateFlakyTests(ctx, days, d.cfg.MinRuns)
	if err != nil {
		return nil, fmt.Errorf("detecting flaky tests: %w", err)
	}

	records := make([]Record, 0, len(candidates))

	for _, c := range candidates {
		if c.FailureRate < d.cfg.FlakinessThreshold {
			continue
		}

		severity := d.classify(c.FailureRate, c.TotalRuns)

		records = append(records, Record{
			TestName:        c.TestName,
			Suite:           c.Suite,
			TotalRuns:       c.TotalRuns,
			Failures:        c.Failures,
			Passes:          c.Passes,
			FailureRate:     c.FailureRate,
			Severity:        severity,
			ImpactScore:     ImpactScore(c.FailureRate, c.TotalRuns, c.Failures),
			File:            c.File,
			Recommendations: recommendationsFor(severity, c.Suite),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ImpactScore > records[j].ImpactScore
	})

	d.log.WithFields(logrus.Fields{
		"window_days": days,
		"candidates":  len(candidates),
		"flaky":       len(records),
	}).Debug("Flaky detection completed")

	return records, nil
}

// classify assigns the severity tier, first match wins.
func (d *Detector) classify(failureRate float64, totalRuns int) Severity {
	switch {
	case failureRate >= d.cfg.CriticalFailureRate &&
		totalRuns >= d.cfg.CriticalMinRuns:
		return SeverityCritical
	case failureRate >= d.cfg.HighFailureRate ||
		totalRuns >= d.cfg.HighMinRuns:
		return SeverityHigh
	case failureRate >= d.cfg.MediumFailureRate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ImpactScore ranks a flaky test from 0 to 100 by combining failure
// rate (signal strength), run count (statistical confidence), and
// absolute failure volume (practical cost). Runs cap at 100 and
// failures at 50 so no single dimension dominates.
func ImpactScore(failureRate float64, totalRuns, failures int) float64 {
	score := 40*(failureRate/100) +
		30*(math.Min(float64(totalRuns), 100)/100) +
		30*(math.Min(float64(failures), 50)/50)

	return math.Round(score*100) / 100
}
