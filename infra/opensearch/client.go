package opensearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/coursepay/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const (
	SystemLogIndex    = "coursepay-system-logs"
	WebhookEventIndex = "coursepay-webhook-events"
)

// Client wraps the OpenSearch client
type Client struct {
	client  *opensearch.Client
	enabled bool
}

// NewClient creates a new OpenSearch client
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.IsProduction(),
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, fmt.Errorf("opensearch: create client: %w", err)
	}

	return &Client{client: client, enabled: cfg.EnableOpenSearch}, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c != nil && c.enabled
}

// SetupIndices creates the log and webhook indices when they are missing.
func (c *Client) SetupIndices(ctx context.Context) error {
	for index, mapping := range map[string]string{
		SystemLogIndex:    systemLogMapping,
		WebhookEventIndex: webhookEventMapping,
	} {
		exists, err := c.indexExists(ctx, index)
		if err != nil {
			return fmt.Errorf("opensearch: check index %s: %w", index, err)
		}
		if exists {
			continue
		}
		if err := c.createIndex(ctx, index, mapping); err != nil {
			return fmt.Errorf("opensearch: create index %s: %w", index, err)
		}
	}
	return nil
}

func (c *Client) indexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

func (c *Client) createIndex(ctx context.Context, indexName, mapping string) error {
	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

const systemLogMapping = `{
	"mappings": {
		"properties": {
			"timestamp":   {"type": "date"},
			"level":       {"type": "keyword"},
			"message":     {"type": "text"},
			"component":   {"type": "keyword"},
			"gateway":     {"type": "keyword"},
			"request_id":  {"type": "keyword"},
			"error":       {"type": "text"},
			"environment": {"type": "keyword"},
			"service":     {"type": "keyword"}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`

const webhookEventMapping = `{
	"mappings": {
		"properties": {
			"timestamp":      {"type": "date"},
			"gateway":        {"type": "keyword"},
			"event_type":     {"type": "keyword"},
			"order_id":       {"type": "keyword"},
			"payment_id":     {"type": "keyword"},
			"transaction_id": {"type": "keyword"},
			"status":         {"type": "keyword"},
			"gateway_status": {"type": "keyword"},
			"amount":         {"type": "scaled_float", "scaling_factor": 100},
			"success":        {"type": "boolean"},
			"reason":         {"type": "text"}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`
