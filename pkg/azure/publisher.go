package azure

import (
	"context"
	"fmt"
	"net/http"

	"digital.vasic.harness/pkg/httpclient"
	"digital.vasic.harness/pkg/logging"
)

const attachmentAPIVersion = "5.1-preview"

// PublishStats counts the uploads of one Publish call.
type PublishStats struct {
	Attempted int
	Uploaded  int
	Failed    int
}

// Publisher uploads buffered attachments to a test result.
type Publisher struct {
	client *httpclient.APIClient
	logger logging.Logger
}

// NewPublisher creates a Publisher on top of an authenticated client.
func NewPublisher(client *httpclient.APIClient, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Publisher{client: client, logger: logger}
}

// Publish uploads every buffered attachment, one request each, in
// order. A failed upload is logged and the loop moves on. The
// buffer is left untouched.
func (p *Publisher) Publish(
	ctx context.Context, runID, resultID int, buf *Buffer,
) PublishStats {
	var stats PublishStats
	items := buf.Items()
	if len(items) == 0 {
		p.logger.Info("no attachments to publish",
			logging.IntField("run_id", runID),
			logging.IntField("result_id", resultID))
		return stats
	}

	path := fmt.Sprintf(
		"_apis/test/Runs/%d/Results/%d/attachments?api-version=%s",
		runID, resultID, attachmentAPIVersion,
	)
	for _, item := range items {
		stats.Attempted++
		res := Call(p.logger.WithFields(
			logging.StringField("file", item.FileName),
		), "upload attachment", func() (int, error) {
			return p.client.SendJSON(ctx, http.MethodPost, path,
				httpclient.ContentTypeJSON, item, nil)
		})
		if res.OK() {
			stats.Uploaded++
			continue
		}
		stats.Failed++
	}

	p.logger.Info("attachments published",
		logging.IntField("run_id", runID),
		logging.IntField("result_id", resultID),
		logging.IntField("uploaded", stats.Uploaded),
		logging.IntField("failed", stats.Failed))
	return stats
}
