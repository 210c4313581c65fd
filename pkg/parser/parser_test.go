package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestParseSuiteFile_EmptyPath(t *testing.T) {
	result, err := ParseSuiteFile(testLogger(), SuiteE2E, "", ParseE2E)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseSuiteFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	result, err := ParseSuiteFile(testLogger(), SuiteVisual, path, ParseVisual)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseSuiteFile_MalformedSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visual.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	result, err := ParseSuiteFile(testLogger(), SuiteVisual, path, ParseVisual)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestParseSuiteFile_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visual.json")
	require.NoError(t, os.WriteFile(
		path, []byte(`{"total": 3, "passed": 3, "failed": 0}`), 0o644,
	))

	result, err := ParseSuiteFile(testLogger(), SuiteVisual, path, ParseVisual)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Total)
}
