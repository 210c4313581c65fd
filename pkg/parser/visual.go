package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// visualReport mirrors the visual-regression tool's output.
type visualReport struct {
	Total           int             `json:"total"`
	Passed          int             `json:"passed"`
	Failed          int             `json:"failed"`
	DurationSeconds float64         `json:"duration"`
	Failures        []visualFailure `json:"failures"`
}

type visualFailure struct {
	Name           string  `json:"name"`
	File           string  `json:"file"`
	DiffPercentage float64 `json:"diff_percentage"`
	DiffImage      string  `json:"diff_image"`
}

// ParseVisual reads total/passed/failed as-is and emits one Failure
// per entry in the failures list. Visual runs never skip tests.
func ParseVisual(raw []byte) (*SuiteResult, error) {
	var report visualReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("parsing visual report: %w", err)
	}

	result := &SuiteResult{
		Suite:           SuiteVisual,
		Total:           report.Total,
		Passed:          report.Passed,
		Failed:          report.Failed,
		DurationSeconds: report.DurationSeconds,
	}

	for _, f := range report.Failures {
		result.Failures = append(result.Failures, Failure{
			TestName: f.Name,
			Suite:    SuiteVisual,
			// Plain decimal notation, never scientific, for any
			// diff percentage magnitude.
			ErrorMessage: fmt.Sprintf(
				"Visual diff detected: %s%% difference",
				strconv.FormatFloat(f.DiffPercentage, 'f', -1, 64),
			),
			File:       f.File,
			Screenshot: f.DiffImage,
		})
	}

	if err := result.validate(); err != nil {
		return nil, err
	}

	return result, nil
}
