package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/paygate/infra/logger"
	"github.com/mstgnz/paygate/infra/response"
	"github.com/mstgnz/paygate/order"
	"github.com/mstgnz/paygate/validation"
)

// TokenService issues and consumes order validation tokens
type TokenService interface {
	Issue(ctx context.Context, orderID string) (*validation.Token, error)
	Consume(ctx context.Context, orderID, token string) bool
}

// OrderStatusSetter applies the admin decision to an order
type OrderStatusSetter interface {
	SetStatus(ctx context.Context, id string, status order.Status) error
}

// OrderHandler serves the confirm/cancel links sent to the store admin
type OrderHandler struct {
	tokens  TokenService
	orders  OrderStatusSetter
	baseURL string
}

func NewOrderHandler(tokens TokenService, orders OrderStatusSetter, baseURL string) *OrderHandler {
	return &OrderHandler{tokens: tokens, orders: orders, baseURL: baseURL}
}

// IssueValidationLinks handles POST /api/orders/{id}/validation-token. The
// token is stored before the links are returned to the notifier.
func (h *OrderHandler) IssueValidationLinks(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		response.Error(w, http.StatusBadRequest, "Missing order ID", nil)
		return
	}

	token, err := h.tokens.Issue(r.Context(), orderID)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Failed to issue validation token", err)
		return
	}

	response.Success(w, http.StatusCreated, "Validation links issued", map[string]any{
		"orderId":    orderID,
		"expiresAt":  token.ExpiresAt,
		"confirmUrl": validation.BuildActionLink(h.baseURL, orderID, token.Value, validation.ActionConfirm),
		"cancelUrl":  validation.BuildActionLink(h.baseURL, orderID, token.Value, validation.ActionCancel),
	})
}

// Validate handles GET /api/orders/validate?id=..&token=..&action=confirm|cancel
func (h *OrderHandler) Validate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID, token := q.Get("id"), q.Get("token")
	if orderID == "" || token == "" {
		response.Error(w, http.StatusBadRequest, "Missing order ID or token", nil)
		return
	}
	action, err := validation.ParseAction(q.Get("action"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid action", err)
		return
	}

	// consuming first makes a link redeemable once even when clicked twice
	if !h.tokens.Consume(r.Context(), orderID, token) {
		response.Error(w, http.StatusForbidden, "Invalid or expired link", nil)
		return
	}

	status := order.StatusConfirmed
	if action == validation.ActionCancel {
		status = order.StatusCancelled
	}

	if err := h.orders.SetStatus(r.Context(), orderID, status); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			response.Error(w, http.StatusNotFound, "Order not found", err)
			return
		}
		response.Error(w, http.StatusInternalServerError, "Failed to update order", err)
		return
	}

	logger.Info("Order validated from admin link", logger.LogContext{
		OrderID: orderID,
		Fields:  map[string]any{"action": string(action)},
	})

	response.Success(w, http.StatusOK, "Order updated", map[string]any{
		"orderId": orderID,
		"status":  status,
	})
}
