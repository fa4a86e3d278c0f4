package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

func TestOutputName(t *testing.T) {
	data := NameData{Stem: "annual-report", RunID: "abc123", Time: fixedTime}
	tests := []struct {
		name    string
		format  string
		want    string
		wantErr bool
	}{
		{"default", "", "annual-report_20240102-030405", false},
		{"sprig functions", `{{ .Stem | upper }}-{{ .RunID | trunc 3 }}`, "ANNUAL-REPORT-abc", false},
		{"separators are replaced", `{{ .Stem }}/{{ .RunID }}`, "annual-report-abc123", false},
		{"empty result", `{{ "" }}`, "", true},
		{"bad template", `{{ .Stem `, "", true},
		{"unknown field", `{{ .Missing }}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputName(tt.format, data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentStem(t *testing.T) {
	assert.Equal(t, "annual-report-2023", documentStem("/tmp/Annual Report 2023.pdf"))
	assert.Equal(t, "document", documentStem("/tmp/....pdf"))
	assert.Equal(t, "Annual Report 2023", documentTitle("/tmp/Annual_Report-2023.pdf"))
}

func TestWriteOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "markdown")

	path, err := writeOutput(context.Background(), dir, "doc.md", []byte("# Hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc.md"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Hello", string(b))

	path, err = writeOutput(context.Background(), dir, "doc.md", []byte("# Replaced"))
	require.NoError(t, err)
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Replaced", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"doc.md", lockName}, names, "no temp files may be left behind")
}

func TestWriteOutput_WaitsForLock(t *testing.T) {
	dir := t.TempDir()
	held := flock.New(filepath.Join(dir, lockName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = writeOutput(ctx, dir, "doc.md", []byte("x"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "doc.md"))
}
