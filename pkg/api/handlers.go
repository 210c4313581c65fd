package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ethpandaops/reportoor/pkg/config"
	"github.com/ethpandaops/reportoor/pkg/flaky"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// intParam reads a positive integer query parameter with a default.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}

	return v, true
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRuns returns the stored runs inside the requested window.
func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(r, "days", config.DefaultTrendsDays)
	if !ok {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"days must be a positive integer"})

		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)

	runs, err := s.store.QueryRunsSince(r.Context(), since)
	if err != nil {
		s.log.WithError(err).Error("Failed to query runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"querying runs failed"})

		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// handlePassRateTrend returns the pass-rate series for the window.
func (s *server) handlePassRateTrend(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(r, "days", config.DefaultTrendsDays)
	if !ok {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"days must be a positive integer"})

		return
	}

	points, err := s.analyzer.PassRateTrend(r.Context(), days)
	if err != nil {
		s.log.WithError(err).Error("Failed to compute pass rate trend")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"computing trend failed"})

		return
	}

	writeJSON(w, http.StatusOK, points)
}

// handleDurationTrend returns the duration series for the window.
func (s *server) handleDurationTrend(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(r, "days", config.DefaultTrendsDays)
	if !ok {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"days must be a positive integer"})

		return
	}

	points, err := s.analyzer.DurationTrend(r.Context(), days)
	if err != nil {
		s.log.WithError(err).Error("Failed to compute duration trend")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"computing trend failed"})

		return
	}

	writeJSON(w, http.StatusOK, points)
}

// handlePerformanceTrend returns the load-test series for the window.
func (s *server) handlePerformanceTrend(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(r, "days", config.DefaultTrendsDays)
	if !ok {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"days must be a positive integer"})

		return
	}

	points, err := s.analyzer.PerformanceTrend(r.Context(), days)
	if err != nil {
		s.log.WithError(err).Error("Failed to compute performance trend")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"computing trend failed"})

		return
	}

	writeJSON(w, http.StatusOK, points)
}

// handleFlaky runs flaky detection for the window and returns the
// report document.
func (s *server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(r, "days", config.DefaultTrendsDays)
	if !ok {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"days must be a positive integer"})

		return
	}

	minRuns, ok := intParam(r, "min_runs", s.flakyCfg.MinRuns)
	if !ok {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"min_runs must be a positive integer"})

		return
	}

	cfg := s.flakyCfg
	cfg.MinRuns = minRuns

	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 || threshold > 100 {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"threshold must be between 0 and 100"})

			return
		}

		cfg.FlakinessThreshold = threshold
	}

	detector := flaky.NewDetector(s.log, s.analyzer, cfg)

	records, err := detector.Detect(r.Context(), days)
	if err != nil {
		s.log.WithError(err).Error("Failed to detect flaky tests")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"flaky detection failed"})

		return
	}

	writeJSON(w, http.StatusOK, flaky.BuildReport(records, days, minRuns))
}
