// Package events records verified webhook events. The Recorder is the
// default provider.EventSink: it writes a structured log line, indexes the
// event in OpenSearch when that is enabled, then hands it to any fulfilment
// sinks chained behind it.
package events

import (
	"context"
	"fmt"

	"github.com/mstgnz/coursepay/infra/logger"
	"github.com/mstgnz/coursepay/infra/opensearch"
	"github.com/mstgnz/coursepay/provider"
)

// Indexer stores webhook events for later search
type Indexer interface {
	LogWebhookEvent(ctx context.Context, log opensearch.WebhookLog) error
}

// Recorder implements provider.EventSink
type Recorder struct {
	indexer Indexer
	next    []provider.EventSink
}

// NewRecorder creates a recorder. indexer may be nil.
func NewRecorder(indexer Indexer, next ...provider.EventSink) *Recorder {
	return &Recorder{indexer: indexer, next: next}
}

// HandleEvent logs and indexes the event. Indexing failures are logged and
// do not fail the delivery; errors from chained sinks do.
func (r *Recorder) HandleEvent(ctx context.Context, event *provider.WebhookEvent) error {
	if event == nil {
		return nil
	}

	logCtx := logger.LogContext{
		Gateway: event.Gateway.String(),
		Fields: map[string]any{
			"event_type":     event.EventType,
			"order_id":       event.OrderID,
			"payment_id":     event.PaymentID,
			"transaction_id": event.TransactionID,
			"status":         string(event.Status),
			"success":        event.Success,
			"processed":      event.Processed,
		},
	}
	if event.Success {
		logger.Info("Webhook payment event", logCtx)
	} else {
		logger.Warn("Webhook payment event not successful", logCtx)
	}

	if r.indexer != nil {
		if err := r.indexer.LogWebhookEvent(ctx, ToWebhookLog(event)); err != nil {
			logger.Warn("Failed to index webhook event", logger.LogContext{
				Gateway: event.Gateway.String(),
				Fields:  map[string]any{"error": err.Error()},
			})
		}
	}

	for _, sink := range r.next {
		if err := sink.HandleEvent(ctx, event); err != nil {
			return fmt.Errorf("event sink: %w", err)
		}
	}
	return nil
}

// ToWebhookLog converts an event into its indexed form
func ToWebhookLog(event *provider.WebhookEvent) opensearch.WebhookLog {
	log := opensearch.WebhookLog{
		Gateway:       event.Gateway.String(),
		EventType:     event.EventType,
		OrderID:       event.OrderID,
		PaymentID:     event.PaymentID,
		TransactionID: event.TransactionID,
		RefundID:      event.RefundID,
		Status:        string(event.Status),
		GatewayStatus: event.GatewayStatus,
		Success:       event.Success,
		Reason:        event.Reason,
	}
	if !event.Amount.IsZero() {
		log.Amount = event.Amount.StringFixed(2)
	}
	if event.Timestamp != nil {
		log.Timestamp = event.Timestamp.UTC()
	}
	return log
}
