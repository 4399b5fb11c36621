package azure

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"digital.vasic.harness/pkg/logging"
)

const (
	// DefaultEvidenceDir is scanned for evidence files.
	DefaultEvidenceDir = "test-results/evidence"
	// LogAttachmentName is the fixed name of the log attachment.
	LogAttachmentName = "harness.log"
)

// Collector gathers evidence files and the centralized log into a
// Buffer.
type Collector struct {
	Dir     string
	LogFile string
	Logger  logging.Logger
}

// CollectStats counts what a Collect call buffered.
type CollectStats struct {
	Files   int
	Log     bool
	Skipped int
}

// NewCollector returns a Collector with the default locations.
func NewCollector(logger logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Collector{
		Dir:     DefaultEvidenceDir,
		LogFile: logging.DefaultLogFile,
		Logger:  logger,
	}
}

// Collect buffers every regular file directly under Dir as a
// base64 attachment, then the log file under LogAttachmentName.
// Either source may be absent; nothing here fails the caller.
func (c *Collector) Collect(buf *Buffer) CollectStats {
	var stats CollectStats
	logger := c.Logger
	if logger == nil {
		logger = logging.NullLogger{}
	}

	entries, err := os.ReadDir(c.Dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("evidence directory not found",
			logging.StringField("dir", c.Dir))
	case err != nil:
		logger.Warn("evidence directory unreadable",
			logging.StringField("dir", c.Dir), logging.ErrorField(err))
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			stats.Skipped++
			continue
		}
		path := filepath.Join(c.Dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("evidence file unreadable",
				logging.StringField("file", path), logging.ErrorField(err))
			stats.Skipped++
			continue
		}
		buf.Add(NewFileAttachment(entry.Name(), data, entry.Name()))
		stats.Files++
	}

	if c.LogFile != "" {
		data, err := os.ReadFile(c.LogFile)
		switch {
		case err == nil:
			buf.Add(NewFileAttachment(LogAttachmentName, data, "log"))
			stats.Log = true
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("log file not found",
				logging.StringField("file", c.LogFile))
		default:
			logger.Warn("log file unreadable",
				logging.StringField("file", c.LogFile), logging.ErrorField(err))
		}
	}

	logger.Info("evidence collected",
		logging.IntField("files", stats.Files),
		logging.BoolField("log", stats.Log))
	return stats
}
