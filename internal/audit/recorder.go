// Package audit writes one document per webhook delivery to Elasticsearch so
// support can reconstruct what happened to any payment event.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"visaflow/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// DeliveryRecord is the audit document for one inbound webhook delivery.
type DeliveryRecord struct {
	EventID       string    `json:"eventId,omitempty"`
	EventType     string    `json:"eventType,omitempty"`
	ApplicationID string    `json:"applicationId,omitempty"`
	Outcome       string    `json:"outcome"`
	Detail        string    `json:"detail,omitempty"`
	DurationMS    int64     `json:"durationMs"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// Recorder indexes delivery records. Best effort throughout: the audit trail
// degrading must never affect webhook handling.
type Recorder struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewRecorder(client *elasticsearch.Client, index string, log logger.Logger) *Recorder {
	return &Recorder{client: client, index: index, logger: log}
}

func (r *Recorder) Record(ctx context.Context, rec DeliveryRecord) {
	body, err := json.Marshal(rec)
	if err != nil {
		r.logger.WithError(err).Warn("audit record marshal failed", map[string]interface{}{
			"eventId": rec.EventID,
		})
		return
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(uuid.New().String()),
	)
	if err != nil {
		r.logger.WithError(err).Warn("audit record index failed", map[string]interface{}{
			"eventId": rec.EventID,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		r.logger.Warn("audit record rejected", map[string]interface{}{
			"eventId": rec.EventID,
			"status":  res.Status(),
		})
	}
}
