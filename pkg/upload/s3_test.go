package upload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/reportoor/pkg/config"
)

func TestResolvePrefix(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		baseName string
		want     string
	}{
		{
			name:     "default prefix",
			prefix:   "",
			baseName: "reports",
			want:     "reports/reports",
		},
		{
			name:     "custom prefix",
			prefix:   "my-project/ci",
			baseName: "reports",
			want:     "my-project/ci/reports",
		},
		{
			name:     "trailing slash stripped",
			prefix:   "nightly/",
			baseName: "reports",
			want:     "nightly/reports",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &s3Uploader{
				cfg: &config.S3UploadConfig{Prefix: tt.prefix},
			}
			got := u.resolvePrefix(tt.baseName)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildManifest(t *testing.T) {
	raw, err := buildManifest([]manifestEntry{
		{Key: "reports/reports/report.json", SizeBytes: 2048},
		{Key: "reports/reports/trends.json", SizeBytes: 512},
	})
	require.NoError(t, err)

	var doc uploadManifest
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.False(t, doc.GeneratedAt.IsZero())
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "reports/reports/report.json", doc.Files[0].Key)
	assert.Equal(t, int64(2048), doc.Files[0].SizeBytes)
}

func TestBuildManifest_NoFiles(t *testing.T) {
	raw, err := buildManifest(nil)
	require.NoError(t, err)

	var doc uploadManifest
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotNil(t, doc.Files)
	assert.Empty(t, doc.Files)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantPrefix string
	}{
		{
			name:       "json report",
			path:       "reports/report.json",
			wantPrefix: "application/json",
		},
		{
			name:       "no extension",
			path:       "reports/Makefile",
			wantPrefix: "application/octet-stream",
		},
		{
			name:       "screenshot",
			path:       "reports/screenshots/checkout.png",
			wantPrefix: "image/png",
		},
		{
			name:       "txt file",
			path:       "reports/notes.txt",
			wantPrefix: "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectContentType(tt.path)
			assert.Contains(t, got, tt.wantPrefix)
		})
	}
}
