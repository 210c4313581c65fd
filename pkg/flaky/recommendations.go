package flaky

import "github.com/ethpandaops/reportoor/pkg/parser"

// recommendationsFor returns advisory remediation text for a flaky
// test. The table is keyed by severity and suite; it never feeds back
// into scoring.
func recommendationsFor(severity Severity, suite parser.Suite) []string {
	recs := make([]string, 0, 4)

	switch severity {
	case SeverityCritical:
		recs = append(recs,
			"Quarantine this test until it is stabilized; it fails more often than it passes.",
			"Treat as a release blocker: assign an owner and track remediation.",
		)
	case SeverityHigh:
		recs = append(recs,
			"Prioritize stabilization in the current iteration; this test erodes trust in CI results.",
		)
	case SeverityMedium:
		recs = append(recs,
			"Schedule investigation; intermittent failures at this rate usually indicate a timing or ordering dependency.",
		)
	case SeverityLow:
		recs = append(recs,
			"Monitor over the next analysis window before investing in a fix.",
		)
	}

	switch suite {
	case parser.SuiteE2E:
		recs = append(recs,
			"Replace fixed sleeps with explicit waits on UI state and check for race conditions between navigation and assertions.",
		)
	case parser.SuiteIntegration:
		recs = append(recs,
			"Check for shared state between tests and external service dependencies; isolate fixtures per test.",
		)
	case parser.SuiteVisual:
		recs = append(recs,
			"Review diff thresholds and mask dynamic regions (timestamps, animations) before comparing snapshots.",
		)
	case parser.SuitePerformance:
		recs = append(recs,
			"Pin the load profile and environment; throughput assertions on shared hardware are inherently noisy.",
		)
	}

	return recs
}
