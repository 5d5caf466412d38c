package chaabi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/infra/logger"
	"github.com/mstgnz/paygate/provider"
)

const (
	// Hosted payment page URLs
	gatewayTestURL = "https://test.chaabipayment.ma/payment"
	gatewayProdURL = "https://www.chaabipayment.ma/payment"

	defaultLanguage = "fr"
)

// ChaabiProvider implements provider.PaymentProvider for Chaabi Payment. The
// session is a signed form the customer's browser posts to the gateway.
type ChaabiProvider struct {
	apiKey     string
	secretKey  string
	gatewayURL string
	appURL     string
	now        func() time.Time
}

// NewProvider builds the adapter from the shared payment configuration
func NewProvider(cfg *config.Payments) provider.PaymentProvider {
	return New(cfg.Chaabi, cfg.BaseURL)
}

// New creates a Chaabi adapter
func New(cfg config.Chaabi, appURL string) *ChaabiProvider {
	gatewayURL := gatewayTestURL
	if cfg.Env == "prod" {
		gatewayURL = gatewayProdURL
	}
	if cfg.GatewayURL != "" {
		gatewayURL = cfg.GatewayURL
	}

	return &ChaabiProvider{
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		gatewayURL: gatewayURL,
		appURL:     strings.TrimRight(appURL, "/"),
		now:        time.Now,
	}
}

func (p *ChaabiProvider) Gateway() provider.Gateway {
	return provider.GatewayChaabi
}

func (p *ChaabiProvider) IsConfigured() bool {
	return p.apiKey != "" && p.secretKey != ""
}

// CreateSession builds the signed form. No request leaves the server.
func (p *ChaabiProvider) CreateSession(_ context.Context, order provider.OrderPayload, _ string) (*provider.PaymentSession, error) {
	if !p.IsConfigured() {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeNotConfigured, "Chaabi Payment is not configured"), nil
	}
	if !strings.EqualFold(order.Currency, "MAD") {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeUnsupportedCurrency,
			fmt.Sprintf("Chaabi Payment only accepts MAD, got %s", order.Currency)), nil
	}

	amount := strconv.FormatInt(order.Amount, 10)
	currency := "MAD"
	language := order.Locale
	if language == "" {
		language = defaultLanguage
	}
	orderRef := url.QueryEscape(order.OrderID)

	form := map[string]string{
		"api_key":        p.apiKey,
		"order_id":       order.OrderID,
		"amount":         amount,
		"currency":       currency,
		"customer_email": order.Customer.Email,
		"customer_phone": order.Customer.Phone,
		"customer_name":  order.Customer.FullName(),
		"language":       language,
		"return_url":     p.appURL + "/checkout/success?order=" + orderRef,
		"cancel_url":     p.appURL + "/checkout/cancel?order=" + orderRef,
		"callback_url":   p.appURL + "/api/webhooks/chaabi",
		"signature":      p.sign(order.OrderID, amount, currency),
	}

	return &provider.PaymentSession{
		Success:       true,
		Gateway:       p.Gateway(),
		TransactionID: order.OrderID,
		FormData:      form,
		GatewayURL:    p.gatewayURL,
	}, nil
}

// sign computes HMAC-SHA256(secret, apiKey|orderId|amount|currency)
func (p *ChaabiProvider) sign(orderID, amount, currency string) string {
	return provider.HMACSHA256Hex(p.secretKey, strings.Join([]string{p.apiKey, orderID, amount, currency}, "|"))
}

// VerifyWebhook checks the hash field against
// HMAC-SHA256(secret, order_id|transaction_id|amount|currency|status|timestamp)
func (p *ChaabiProvider) VerifyWebhook(payload []byte, signature string) bool {
	if p.secretKey == "" {
		return false
	}
	fields, err := provider.ParseFields(payload)
	if err != nil {
		return false
	}

	received := fields["hash"]
	if received == "" {
		received = signature
	}

	message := strings.Join([]string{
		fields["order_id"],
		fields["transaction_id"],
		fields["amount"],
		fields["currency"],
		fields["status"],
		fields["timestamp"],
	}, "|")
	return provider.EqualHex(provider.HMACSHA256Hex(p.secretKey, message), received)
}

// HandleCallback normalizes a verified notification
func (p *ChaabiProvider) HandleCallback(payload []byte) (*provider.CallbackResult, error) {
	fields, err := provider.ParseFields(payload)
	if err != nil {
		return nil, fmt.Errorf("chaabi: %w", err)
	}

	result := &provider.CallbackResult{
		Success:       true,
		Gateway:       p.Gateway(),
		OrderID:       fields["order_id"],
		TransactionID: fields["transaction_id"],
		Status:        mapStatus(fields["status"]),
		PaymentMethod: fields["payment_method"],
		Amount:        fields.Float("amount"),
		Currency:      fields["currency"],
		ProcessedAt:   p.now().UTC(),
		RawPayload:    provider.RawJSON(payload),
	}
	if result.TransactionID == "" {
		result.TransactionID = result.OrderID
	}
	if result.Status == provider.StatusFailed {
		result.Error = fields["message"]
	}
	if result.OrderID == "" {
		result.Success = false
		result.Error = "missing order reference"
	}
	return result, nil
}

func mapStatus(status string) provider.PaymentStatus {
	switch strings.ToLower(status) {
	case "success", "paid", "completed", "approved":
		return provider.StatusPaid
	case "failed", "declined", "error":
		return provider.StatusFailed
	case "cancelled", "canceled":
		return provider.StatusCancelled
	default:
		return provider.StatusPending
	}
}

// GetStatus reports pending; Chaabi only reports through the notification
func (p *ChaabiProvider) GetStatus(_ context.Context, transactionID string) (provider.PaymentStatus, error) {
	logger.WithGateway(string(p.Gateway())).
		AddField("transaction_id", transactionID).
		Warn("Chaabi Payment has no status API, reporting pending")
	return provider.StatusPending, nil
}
