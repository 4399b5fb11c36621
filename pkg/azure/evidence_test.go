package azure

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.harness/pkg/logging"
)

func TestCollector_Collect(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "evidence")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), []byte{1, 2, 3}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trace.txt"), []byte("trace"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "deep.txt"), []byte("x"), 0o644))
	logFile := filepath.Join(root, "harness.log")
	require.NoError(t, os.WriteFile(logFile, []byte("line one\n"), 0o644))

	mem := logging.NewMemoryLogger()
	c := &Collector{Dir: dir, LogFile: logFile, Logger: mem}
	buf := NewBuffer()
	stats := c.Collect(buf)

	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 1, stats.Skipped)
	assert.True(t, stats.Log)

	items := buf.Items()
	require.Len(t, items, 3)
	byName := map[string]Attachment{}
	for _, a := range items {
		byName[a.FileName] = a
	}
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), byName["shot.png"].Stream)
	assert.Equal(t, GeneralAttachment, byName["trace.txt"].AttachmentType)
	assert.NotContains(t, byName, "deep.txt")

	log := byName[LogAttachmentName]
	assert.Equal(t, "log", log.Comment)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("line one\n")), log.Stream)
	assert.Equal(t, 1, mem.Count(logging.LevelInfo, "evidence collected"))
}

func TestCollector_AbsentSources(t *testing.T) {
	root := t.TempDir()
	c := &Collector{
		Dir:     filepath.Join(root, "missing"),
		LogFile: filepath.Join(root, "missing.log"),
	}
	buf := NewBuffer()
	stats := c.Collect(buf)
	assert.Equal(t, CollectStats{}, stats)
	assert.Equal(t, 0, buf.Len())
}

func TestCollector_LogOnly(t *testing.T) {
	root := t.TempDir()
	logFile := filepath.Join(root, "run.log")
	require.NoError(t, os.WriteFile(logFile, []byte("x"), 0o644))

	c := &Collector{Dir: filepath.Join(root, "none"), LogFile: logFile}
	buf := NewBuffer()
	stats := c.Collect(buf)
	assert.Equal(t, 0, stats.Files)
	assert.True(t, stats.Log)
	require.Equal(t, 1, buf.Len())
	assert.Equal(t, LogAttachmentName, buf.Items()[0].FileName)
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(nil)
	assert.Equal(t, DefaultEvidenceDir, c.Dir)
	assert.Equal(t, logging.DefaultLogFile, c.LogFile)
	assert.NotNil(t, c.Logger)
}
