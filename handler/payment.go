package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/paygate/infra/logger"
	"github.com/mstgnz/paygate/infra/middle"
	"github.com/mstgnz/paygate/infra/opensearch"
	"github.com/mstgnz/paygate/infra/response"
	"github.com/mstgnz/paygate/order"
	"github.com/mstgnz/paygate/provider"
)

// AuditLogger receives session and webhook audit records
type AuditLogger interface {
	LogWebhook(ctx context.Context, entry opensearch.WebhookLog) error
	LogSession(ctx context.Context, entry opensearch.SessionLog) error
}

// PaymentLedger applies verified callbacks to orders at most once
type PaymentLedger interface {
	Apply(ctx context.Context, result *provider.CallbackResult) (bool, error)
}

// OrderRecorder stores the order a checkout session was opened for
type OrderRecorder interface {
	Upsert(ctx context.Context, o order.Order) error
}

// Signature headers checked in order when a gateway signs the request itself
var signatureHeaders = []string{"x-signature", "Airwallex-Signature"}

// CheckoutRequest selects a gateway for an order. Without Gateway the
// primary gateway of Country is used.
type CheckoutRequest struct {
	Gateway string                `json:"gateway,omitempty" validate:"omitempty,gateway"`
	Country string                `json:"country" validate:"required,country"`
	Method  string                `json:"method,omitempty"`
	Order   provider.OrderPayload `json:"order"`
}

// CheckoutResponse wraps the session. CodAvailable is set when the session
// failed and cash on delivery can be offered instead.
type CheckoutResponse struct {
	Session      *provider.PaymentSession `json:"session"`
	CodAvailable bool                     `json:"codAvailable"`
}

// PaymentHandler handles checkout sessions, gateway webhooks and status lookups
type PaymentHandler struct {
	factory  *provider.Factory
	ledger   PaymentLedger
	orders   OrderRecorder
	audit    AuditLogger
	validate *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(factory *provider.Factory, ledger PaymentLedger, orders OrderRecorder, audit AuditLogger, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		factory:  factory,
		ledger:   ledger,
		orders:   orders,
		audit:    audit,
		validate: validate,
	}
}

// CreateSession handles POST /api/checkout/session
func (h *PaymentHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	p, err := h.selectProvider(req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, provider.ErrUnknownGateway) || errors.Is(err, errGatewayNotEligible) {
			status = http.StatusBadRequest
		}
		response.Error(w, status, "Gateway selection failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), provider.SessionTimeout)
	defer cancel()

	start := time.Now()
	session, err := p.CreateSession(ctx, req.Order, req.Method)
	if err != nil {
		logger.Error("Session creation failed", err, logger.LogContext{
			Gateway:   string(p.Gateway()),
			OrderID:   req.Order.OrderID,
			RequestID: middle.GetRequestID(r.Context()),
		})
		response.Error(w, http.StatusInternalServerError, "Session creation failed", err)
		return
	}

	h.logSession(r, req.Order, session, time.Since(start))

	if !session.Success {
		codAvailable := p.Gateway() != provider.GatewayCOD &&
			h.factory.IsGatewayAvailableForCountry(provider.GatewayCOD, req.Country)
		_ = response.WriteJSON(w, sessionFailureStatus(session.ErrorCode), response.Response{
			Code:    sessionFailureStatus(session.ErrorCode),
			Success: false,
			Message: session.Message,
			Error:   session.ErrorCode,
			Data:    CheckoutResponse{Session: session, CodAvailable: codAvailable},
		})
		return
	}

	status := order.StatusPending
	if session.OrderConfirmed {
		status = order.StatusAwaitingPayment
	}
	err = h.orders.Upsert(r.Context(), order.Order{
		ID:            req.Order.OrderID,
		OrderNumber:   req.Order.OrderNumber,
		Amount:        req.Order.Amount,
		Currency:      req.Order.Currency,
		Country:       provider.NormalizeCountry(req.Country),
		Status:        status,
		Gateway:       session.Gateway,
		TransactionID: session.TransactionID,
	})
	if err != nil {
		// the gateway session exists already, so the customer still gets it
		logger.Error("Failed to record order for session", err, logger.LogContext{
			Gateway: string(session.Gateway),
			OrderID: req.Order.OrderID,
		})
	}

	response.Success(w, http.StatusOK, "Payment session created", CheckoutResponse{Session: session})
}

var errGatewayNotEligible = errors.New("gateway is not available for country")

func (h *PaymentHandler) selectProvider(req CheckoutRequest) (provider.PaymentProvider, error) {
	if req.Gateway == "" {
		return h.factory.GetPrimaryProviderForCountry(req.Country)
	}

	gateway, err := provider.ParseGateway(req.Gateway)
	if err != nil {
		return nil, err
	}
	if !h.factory.IsGatewayAvailableForCountry(gateway, req.Country) {
		return nil, errGatewayNotEligible
	}
	return h.factory.GetProvider(gateway)
}

func sessionFailureStatus(code string) int {
	switch code {
	case provider.ErrCodeNotConfigured:
		return http.StatusServiceUnavailable
	case provider.ErrCodeUnsupportedCurrency, provider.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (h *PaymentHandler) logSession(r *http.Request, o provider.OrderPayload, session *provider.PaymentSession, elapsed time.Duration) {
	err := h.audit.LogSession(r.Context(), opensearch.SessionLog{
		Gateway:       string(session.Gateway),
		RequestID:     middle.GetRequestID(r.Context()),
		OrderID:       o.OrderID,
		TransactionID: session.TransactionID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Success:       session.Success,
		ErrorCode:     session.ErrorCode,
		Message:       session.Message,
		DurationMs:    elapsed.Milliseconds(),
	})
	if err != nil {
		logger.Warn("Failed to write session audit log", logger.LogContext{
			Gateway: string(session.Gateway),
			OrderID: o.OrderID,
			Fields:  map[string]any{"error": err.Error()},
		})
	}
}

// HandleWebhook handles POST /api/webhooks/{gateway}. Gateways without
// callbacks get 404 and anything that fails verification is rejected with
// 400; verified deliveries always get 200 so the gateway stops retrying.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	gateway, err := provider.ParseGateway(chi.URLParam(r, "gateway"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown gateway", err)
		return
	}
	if !gateway.ReceivesWebhooks() {
		response.Error(w, http.StatusNotFound, "Gateway has no webhook", nil)
		return
	}
	p, err := h.factory.GetProvider(gateway)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown gateway", err)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to read webhook body", err)
		return
	}

	entry := opensearch.WebhookLog{
		Gateway:   string(gateway),
		RequestID: middle.GetRequestID(r.Context()),
		RemoteIP:  middle.GetClientIP(r),
		Payload:   string(payload),
	}
	logCtx := logger.LogContext{Gateway: string(gateway), RequestID: entry.RequestID}

	if !p.VerifyWebhook(payload, webhookSignature(r)) {
		entry.Error = "invalid signature"
		h.logWebhook(r.Context(), entry)
		logger.Warn("Rejected webhook with invalid signature", logCtx)
		response.Error(w, http.StatusBadRequest, "Invalid webhook signature", nil)
		return
	}
	entry.Verified = true

	result, err := p.HandleCallback(payload)
	if err != nil {
		entry.Error = err.Error()
		h.logWebhook(r.Context(), entry)
		logger.Warn("Verified webhook could not be parsed", logCtx)
		response.Success(w, http.StatusOK, "Webhook ignored", nil)
		return
	}

	entry.OrderID = result.OrderID
	entry.TransactionID = result.TransactionID
	entry.Status = string(result.Status)
	logCtx.OrderID = result.OrderID

	if result.Success {
		applied, err := h.ledger.Apply(r.Context(), result)
		if err != nil {
			entry.Error = err.Error()
			logger.Error("Failed to apply payment callback", err, logCtx)
		}
		entry.Applied = applied
	} else {
		entry.Error = result.Error
		logger.Warn("Webhook carried no usable outcome", logCtx)
	}
	h.logWebhook(r.Context(), entry)

	response.Success(w, http.StatusOK, "Webhook processed", map[string]any{
		"orderId": result.OrderID,
		"status":  result.Status,
		"applied": entry.Applied,
	})
}

func webhookSignature(r *http.Request) string {
	for _, name := range signatureHeaders {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func (h *PaymentHandler) logWebhook(ctx context.Context, entry opensearch.WebhookLog) {
	if err := h.audit.LogWebhook(ctx, entry); err != nil {
		logger.Warn("Failed to write webhook audit log", logger.LogContext{
			Gateway: entry.Gateway,
			Fields:  map[string]any{"error": err.Error()},
		})
	}
}

// GetPaymentStatus handles GET /api/payments/{gateway}/{transactionID}
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	gateway, err := provider.ParseGateway(chi.URLParam(r, "gateway"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown gateway", err)
		return
	}
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing transaction ID", nil)
		return
	}

	p, err := h.factory.GetProvider(gateway)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown gateway", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), provider.SessionTimeout)
	defer cancel()

	status, err := p.GetStatus(ctx, transactionID)
	if err != nil {
		response.Error(w, http.StatusBadGateway, "Failed to get payment status", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment status retrieved", map[string]any{
		"gateway":       gateway,
		"transactionId": transactionID,
		"status":        status,
	})
}
