package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.harness/pkg/logging"
	"digital.vasic.harness/pkg/runner"
)

var _ runner.Listener = (*Writer)(nil)

func TestWriter_PersistsResults(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, nil)
	assert.Equal(t, dir, w.Dir())

	results := makeTestResults()
	for _, r := range results {
		w.TestStarted(r.Title, r.ExecutionID)
		w.TestFinished(*r)
	}

	assert.FileExists(t, filepath.Join(dir, "results", "exec-1.json"))
	assert.FileExists(t, filepath.Join(dir, "results", "exec-2.json"))
	assert.Len(t, readHistory(t, filepath.Join(dir, HistoryFile)), 2)
	assert.Len(t, w.Results(), 2)

	summary, err := w.Finish(results)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTests)
	assert.FileExists(t, filepath.Join(dir, "latest_summary.json"))
}

func TestWriter_DefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir, NewWriter("", nil).Dir())
}

func TestWriter_WriteFailureIsLogged(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	log := logging.NewMemoryLogger()
	w := NewWriter(file, log)
	w.TestFinished(*makeTestResult())

	assert.Equal(t, 1, log.Count(logging.LevelWarn, "test result not written"))
	assert.Len(t, w.Results(), 1)
}
