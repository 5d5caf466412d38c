package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// WebhookLog is the audit record written for every inbound gateway callback
type WebhookLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Gateway       string    `json:"gateway"`
	RequestID     string    `json:"request_id,omitempty"`
	RemoteIP      string    `json:"remote_ip,omitempty"`
	Verified      bool      `json:"verified"`
	Applied       bool      `json:"applied"`
	OrderID       string    `json:"order_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Payload       string    `json:"payload,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// SessionLog records one checkout session attempt
type SessionLog struct {
	Timestamp     time.Time `json:"timestamp"`
	Gateway       string    `json:"gateway"`
	RequestID     string    `json:"request_id,omitempty"`
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Success       bool      `json:"success"`
	ErrorCode     string    `json:"error_code,omitempty"`
	Message       string    `json:"message,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
}

// Logger handles OpenSearch audit logging
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// IsEnabled reports whether documents are shipped at all
func (l *Logger) IsEnabled() bool {
	return l != nil && l.client.IsEnabled()
}

// LogWebhook indexes a webhook audit record. The payload is redacted first.
func (l *Logger) LogWebhook(ctx context.Context, entry WebhookLog) error {
	if !l.IsEnabled() {
		return nil
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Payload = SanitizeForLog(entry.Payload)
	return l.index(ctx, IndexWebhooks, entry)
}

// LogSession indexes a checkout session attempt
func (l *Logger) LogSession(ctx context.Context, entry SessionLog) error {
	if !l.IsEnabled() {
		return nil
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return l.index(ctx, IndexSessions, entry)
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, entry any) error {
	if !l.IsEnabled() {
		return nil
	}
	return l.index(ctx, IndexSystem, entry)
}

func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
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

var sensitiveFields = []string{
	"api_key", "api_secret", "api_key_sha256", "api_secret_sha256", "hmac_compute",
	"hash", "signature", "client_secret", "password", "authorization", "secret",
}

var sensitivePatterns = buildSensitivePatterns()

func buildSensitivePatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields)*2)
	for _, field := range sensitiveFields {
		quoted := regexp.QuoteMeta(field)
		patterns = append(patterns,
			regexp.MustCompile(`("`+quoted+`"\s*:\s*)"[^"]*"`),
			regexp.MustCompile(`(^|[?&])(`+quoted+`=)[^&]*`),
		)
	}
	return patterns
}

// SanitizeForLog masks signatures and secrets in JSON or form encoded payloads
func SanitizeForLog(data string) string {
	result := data
	for i, re := range sensitivePatterns {
		if i%2 == 0 {
			result = re.ReplaceAllString(result, `${1}"***REDACTED***"`)
		} else {
			result = re.ReplaceAllString(result, `${1}${2}***REDACTED***`)
		}
	}
	return result
}

// WebhookQuery filters SearchWebhooks. Empty fields are ignored.
type WebhookQuery struct {
	Gateway string
	OrderID string
	Since   time.Time
	Size    int
}

// SearchWebhooks returns the newest webhook audit records matching q
func (l *Logger) SearchWebhooks(ctx context.Context, q WebhookQuery) ([]WebhookLog, error) {
	if !l.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	filters := []map[string]any{}
	if q.Gateway != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"gateway": q.Gateway}})
	}
	if q.OrderID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"order_id": q.OrderID}})
	}
	if !q.Since.IsZero() {
		filters = append(filters, map[string]any{"range": map[string]any{
			"timestamp": map[string]any{"gte": q.Since.UTC().Format(time.RFC3339)},
		}})
	}

	size := q.Size
	if size <= 0 || size > 100 {
		size = 100
	}

	searchQuery := map[string]any{
		"query": map[string]any{"bool": map[string]any{"filter": filters}},
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": size,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{IndexWebhooks},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source WebhookLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]WebhookLog, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}
	return logs, nil
}
