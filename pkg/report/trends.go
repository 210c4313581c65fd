package report

import (
	"time"

	"github.com/ethpandaops/reportoor/pkg/trends"
)

// TrendsReportFile is the historical trends report filename.
const TrendsReportFile = "trends.json"

// TrendsReport bundles the historical series for one analysis window.
type TrendsReport struct {
	GeneratedAt        time.Time                 `json:"generated_at"`
	AnalysisPeriodDays int                       `json:"analysis_period_days"`
	PassRate           []trends.PassRatePoint    `json:"pass_rate"`
	Duration           []trends.DurationPoint    `json:"duration"`
	Performance        []trends.PerformancePoint `json:"performance"`
}

// BuildTrendsReport wraps the trend series into the report document.
func BuildTrendsReport(
	days int,
	passRate []trends.PassRatePoint,
	duration []trends.DurationPoint,
	performance []trends.PerformancePoint,
) *TrendsReport {
	return &TrendsReport{
		GeneratedAt:        time.Now().UTC(),
		AnalysisPeriodDays: days,
		PassRate:           passRate,
		Duration:           duration,
		Performance:        performance,
	}
}

// WriteTrendsReport writes the trends report and returns its path.
func (e *Emitter) WriteTrendsReport(rep *TrendsReport) (string, error) {
	return e.write(TrendsReportFile, rep)
}
