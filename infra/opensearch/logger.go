package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// WebhookLog is the indexed form of a verified gateway notification
type WebhookLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Gateway       string    `json:"gateway"`
	EventType     string    `json:"event_type,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	PaymentID     string    `json:"payment_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	RefundID      string    `json:"refund_id,omitempty"`
	Status        string    `json:"status"`
	GatewayStatus string    `json:"gateway_status,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Success       bool      `json:"success"`
	Reason        string    `json:"reason,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	return l.index(ctx, SystemLogIndex, log)
}

// LogWebhookEvent indexes a verified webhook notification
func (l *Logger) LogWebhookEvent(ctx context.Context, log WebhookLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	return l.index(ctx, WebhookEventIndex, log)
}

func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
	if !l.client.IsEnabled() {
		return nil
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

var sensitivePatterns = func() []*regexp.Regexp {
	fields := []string{
		"key_secret", "keySecret", "secret_key", "secretKey", "salt_key", "saltKey",
		"x-client-secret", "authorization", "password", "signature", "razorpay_signature",
	}
	out := make([]*regexp.Regexp, 0, len(fields))
	for _, field := range fields {
		out = append(out, regexp.MustCompile(`(?i)"`+regexp.QuoteMeta(field)+`"\s*:\s*"[^"]*"`))
	}
	return out
}()

// SanitizeForLog removes credentials and signatures from a JSON fragment
func SanitizeForLog(data string) string {
	result := data
	for _, re := range sensitivePatterns {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			name := match[:strings.IndexByte(match, ':')]
			return name + `:"***REDACTED***"`
		})
	}
	return result
}
