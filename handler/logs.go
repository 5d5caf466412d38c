package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mstgnz/paygate/infra/opensearch"
	"github.com/mstgnz/paygate/infra/response"
	"github.com/mstgnz/paygate/provider"
)

// WebhookSearcher reads back the webhook audit trail
type WebhookSearcher interface {
	IsEnabled() bool
	SearchWebhooks(ctx context.Context, q opensearch.WebhookQuery) ([]opensearch.WebhookLog, error)
}

// LogsHandler exposes the webhook audit trail to operators
type LogsHandler struct {
	searcher WebhookSearcher
}

func NewLogsHandler(searcher WebhookSearcher) *LogsHandler {
	return &LogsHandler{searcher: searcher}
}

// ListWebhooks handles GET /api/logs/webhooks?gateway=&orderId=&hours=&limit=
func (h *LogsHandler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	if !h.searcher.IsEnabled() {
		response.Error(w, http.StatusServiceUnavailable, "Audit logging is disabled", nil)
		return
	}

	q := r.URL.Query()
	query := opensearch.WebhookQuery{OrderID: q.Get("orderId")}

	if g := q.Get("gateway"); g != "" {
		gateway, err := provider.ParseGateway(g)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Unknown gateway", err)
			return
		}
		query.Gateway = string(gateway)
	}

	hours := 24
	if v := q.Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 720 {
			response.Error(w, http.StatusBadRequest, "Invalid hours parameter (1-720)", err)
			return
		}
		hours = n
	}
	query.Since = time.Now().Add(-time.Duration(hours) * time.Hour)

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.Error(w, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		query.Size = n
	}

	logs, err := h.searcher.SearchWebhooks(r.Context(), query)
	if err != nil {
		response.Error(w, http.StatusBadGateway, "Failed to search webhook logs", err)
		return
	}

	response.Success(w, http.StatusOK, "Webhook logs retrieved", map[string]any{
		"count": len(logs),
		"hours": hours,
		"logs":  logs,
	})
}
