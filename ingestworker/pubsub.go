package ingestworker

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/extraction"
	"github.com/gin-gonic/gin"
)

// PubSubPushEnvelope is the wrapper Pub/Sub wraps around pushed messages.
type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PubSubPushHandler accepts Pub/Sub push deliveries for document ingestion.
// Malformed envelopes are acked (204) so they do not loop forever; transient
// processing failures return 500 so Pub/Sub redelivers.
func PubSubPushHandler(extractor *extraction.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_INGEST_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var msg config.DocumentIngestMessage
		if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
			c.Status(204)
			return
		}
		if msg.DocumentId == 0 || msg.BusinessId == "" {
			c.Status(204)
			return
		}

		if err := ProcessIngestMessage(c.Request.Context(), extractor, msg); err != nil {
			c.Status(500)
			return
		}
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
