package opensearch

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const (
	IndexWebhooks = "paygate-webhooks"
	IndexSessions = "paygate-sessions"
	IndexSystem   = "paygate-system-logs"
)

// Client wraps the OpenSearch client
type Client struct {
	client  *opensearch.Client
	enabled bool
}

// NewClient creates a new OpenSearch client. Indices are only prepared when
// logging is enabled.
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
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
		return nil, err
	}

	osClient := &Client{
		client:  client,
		enabled: cfg.EnableLogging,
	}

	if osClient.enabled {
		if err := osClient.setupIndices(context.Background()); err != nil {
			log.Printf("Warning: Failed to setup OpenSearch indices: %v", err)
		}
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c != nil && c.enabled
}

func (c *Client) setupIndices(ctx context.Context) error {
	mappings := map[string]string{
		IndexWebhooks: webhookMapping,
		IndexSessions: sessionMapping,
	}

	for indexName, mapping := range mappings {
		exists, err := c.indexExists(ctx, indexName)
		if err != nil {
			return fmt.Errorf("checking index %s: %w", indexName, err)
		}
		if exists {
			continue
		}
		if err := c.createIndex(ctx, indexName, mapping); err != nil {
			return fmt.Errorf("creating index %s: %w", indexName, err)
		}
		log.Printf("Created OpenSearch index: %s", indexName)
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

const webhookMapping = `{
	"mappings": {
		"properties": {
			"timestamp":      {"type": "date"},
			"gateway":        {"type": "keyword"},
			"request_id":     {"type": "keyword"},
			"remote_ip":      {"type": "keyword"},
			"verified":       {"type": "boolean"},
			"applied":        {"type": "boolean"},
			"order_id":       {"type": "keyword"},
			"transaction_id": {"type": "keyword"},
			"status":         {"type": "keyword"},
			"payload":        {"type": "text"},
			"error":          {"type": "text"}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`

const sessionMapping = `{
	"mappings": {
		"properties": {
			"timestamp":      {"type": "date"},
			"gateway":        {"type": "keyword"},
			"request_id":     {"type": "keyword"},
			"order_id":       {"type": "keyword"},
			"transaction_id": {"type": "keyword"},
			"amount":         {"type": "long"},
			"currency":       {"type": "keyword"},
			"success":        {"type": "boolean"},
			"error_code":     {"type": "keyword"},
			"message":        {"type": "text"},
			"duration_ms":    {"type": "long"}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`
