package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePerformance(t *testing.T) {
	raw := []byte(`{
		"summary": {
			"total_requests": 15000,
			"failure_rate_percent": 0.4,
			"requests_per_second": 250.5
		},
		"response_times_ms": {"50th": 45.0, "95th": 180.5, "99th": 420.0},
		"result": {"passed": true, "failures": []}
	}`)

	metrics, err := ParsePerformance(raw)
	require.NoError(t, err)

	assert.Equal(t, int64(15000), metrics.TotalRequests)
	assert.InDelta(t, 0.4, metrics.FailureRate, 0.0001)
	assert.InDelta(t, 250.5, metrics.RequestsPerSecond, 0.0001)
	assert.InDelta(t, 45.0, metrics.ResponseTime50th, 0.0001)
	assert.InDelta(t, 180.5, metrics.ResponseTime95th, 0.0001)
	assert.InDelta(t, 420.0, metrics.ResponseTime99th, 0.0001)
}

func TestParsePerformance_OutOfRange(t *testing.T) {
	raw := []byte(`{
		"summary": {
			"total_requests": 100,
			"failure_rate_percent": 120.0,
			"requests_per_second": 10
		}
	}`)

	_, err := ParsePerformance(raw)
	require.Error(t, err)
}

func TestParsePerformance_MalformedJSON(t *testing.T) {
	_, err := ParsePerformance([]byte(`{`))
	require.Error(t, err)
}
