package paytech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/infra/logger"
	"github.com/mstgnz/paygate/provider"
)

const (
	// API URLs
	defaultAPIURL = "https://paytech.sn/api"

	// API Endpoints
	endpointRequestPayment = "/payment/request-payment"

	// IPN events
	eventSaleComplete = "sale_complete"
	eventSaleCanceled = "sale_canceled"
)

var supportedCurrencies = []string{"XOF", "USD", "EUR", "MAD"}

// PayTechProvider implements provider.PaymentProvider for paytech.sn
type PayTechProvider struct {
	apiKey    string
	secretKey string
	env       string
	appURL    string
	client    *provider.ProviderHTTPClient
	now       func() time.Time
}

// NewProvider builds the adapter from the shared payment configuration
func NewProvider(cfg *config.Payments) provider.PaymentProvider {
	return New(cfg.PayTech, cfg.BaseURL)
}

// New creates a PayTech adapter. appURL is used for the IPN and return URLs.
func New(cfg config.PayTech, appURL string) *PayTechProvider {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	env := cfg.Env
	if env == "" {
		env = "test"
	}

	return &PayTechProvider{
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		env:       env,
		appURL:    strings.TrimRight(appURL, "/"),
		client:    provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(apiURL, provider.SessionTimeout)),
		now:       time.Now,
	}
}

func (p *PayTechProvider) Gateway() provider.Gateway {
	return provider.GatewayPayTech
}

func (p *PayTechProvider) IsConfigured() bool {
	return p.apiKey != "" && p.secretKey != ""
}

type paymentRequest struct {
	ItemName      string `json:"item_name"`
	ItemPrice     int64  `json:"item_price"`
	Currency      string `json:"currency"`
	RefCommand    string `json:"ref_command"`
	CommandName   string `json:"command_name"`
	Env           string `json:"env"`
	IPNURL        string `json:"ipn_url"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
	CustomField   string `json:"custom_field"`
	TargetPayment string `json:"target_payment,omitempty"`
}

type paymentResponse struct {
	Success     provider.FlexString `json:"success"`
	Token       string              `json:"token"`
	RedirectURL string              `json:"redirect_url"`
	RedirectAlt string              `json:"redirectUrl"`
	Message     string              `json:"message"`
	Error       json.RawMessage     `json:"error"`
}

type customField struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// CreateSession requests a hosted payment page
func (p *PayTechProvider) CreateSession(ctx context.Context, order provider.OrderPayload, method string) (*provider.PaymentSession, error) {
	if !p.IsConfigured() {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeNotConfigured, "PayTech is not configured"), nil
	}
	if !provider.SupportsCurrency(order.Currency, supportedCurrencies...) {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeUnsupportedCurrency,
			fmt.Sprintf("PayTech does not support %s", order.Currency)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, provider.SessionTimeout)
	defer cancel()

	custom, _ := json.Marshal(customField{OrderID: order.OrderID, OrderNumber: order.OrderNumber})
	req := paymentRequest{
		ItemName:    itemName(order),
		ItemPrice:   order.Amount,
		Currency:    strings.ToUpper(order.Currency),
		RefCommand:  order.OrderNumber,
		CommandName: "Order " + order.OrderNumber,
		Env:         p.env,
		IPNURL:      p.appURL + "/api/webhooks/paytech",
		SuccessURL:  p.appURL + "/checkout/success?order=" + url.QueryEscape(order.OrderID),
		CancelURL:   p.appURL + "/checkout/cancel?order=" + url.QueryEscape(order.OrderID),
		CustomField: string(custom),
	}
	if target, ok := provider.PayTechTargets.Lookup(method); ok {
		req.TargetPayment = target
	}

	log := logger.WithGateway(string(p.Gateway())).AddField("order_id", order.OrderID)

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointRequestPayment,
		Headers: map[string]string{
			"API_KEY":    p.apiKey,
			"API_SECRET": p.secretKey,
		},
		Body: req,
	})
	if err != nil && resp == nil {
		log.Error("payment request failed", err)
		return provider.FailedSession(p.Gateway(), provider.ErrCodeConnection, "Unable to reach PayTech"), nil
	}

	var result paymentResponse
	if resp != nil {
		_ = p.client.ParseJSONResponse(resp, &result)
	}

	if err != nil || !isTruthy(result.Success) {
		msg := result.errorMessage()
		log.Warn("payment request rejected: " + msg)
		return provider.FailedSession(p.Gateway(), provider.ErrCodeAPIError, msg), nil
	}

	redirect := result.RedirectURL
	if redirect == "" {
		redirect = result.RedirectAlt
	}

	return &provider.PaymentSession{
		Success:       true,
		Gateway:       p.Gateway(),
		TransactionID: result.Token,
		RedirectURL:   redirect,
	}, nil
}

func (r paymentResponse) errorMessage() string {
	if r.Message != "" {
		return r.Message
	}
	if len(r.Error) > 0 {
		var list []string
		if err := json.Unmarshal(r.Error, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
		var s string
		if err := json.Unmarshal(r.Error, &s); err == nil && s != "" {
			return s
		}
	}
	return "PayTech rejected the payment request"
}

func isTruthy(v provider.FlexString) bool {
	return v == "1" || v == "true"
}

func itemName(order provider.OrderPayload) string {
	if len(order.Items) == 1 {
		return order.Items[0].Name
	}
	return "Order " + order.OrderNumber
}

// VerifyWebhook checks the IPN's hmac_compute field, falling back to the
// hashed credential pair PayTech sends to older integrations.
func (p *PayTechProvider) VerifyWebhook(payload []byte, signature string) bool {
	if !p.IsConfigured() {
		return false
	}
	fields, err := provider.ParseFields(payload)
	if err != nil {
		return false
	}

	received := fields["hmac_compute"]
	if received == "" {
		received = signature
	}
	if received != "" {
		message := fields["item_price"] + "|" + fields["ref_command"] + "|" + p.apiKey
		return provider.EqualHex(provider.HMACSHA256Hex(p.secretKey, message), received)
	}

	keyOK := provider.EqualHex(provider.SHA256Hex(p.apiKey), fields["api_key_sha256"])
	secretOK := provider.EqualHex(provider.SHA256Hex(p.secretKey), fields["api_secret_sha256"])
	return keyOK && secretOK
}

// HandleCallback normalizes a verified IPN
func (p *PayTechProvider) HandleCallback(payload []byte) (*provider.CallbackResult, error) {
	fields, err := provider.ParseFields(payload)
	if err != nil {
		return nil, fmt.Errorf("paytech: %w", err)
	}

	result := &provider.CallbackResult{
		Success:       true,
		Gateway:       p.Gateway(),
		OrderID:       fields["ref_command"],
		TransactionID: fields["token"],
		Status:        mapEvent(fields["type_event"]),
		PaymentMethod: fields["payment_method"],
		Amount:        fields.Float("item_price"),
		Currency:      fields["currency"],
		ProcessedAt:   p.now().UTC(),
		RawPayload:    provider.RawJSON(payload),
	}
	if final := fields.Float("final_item_price"); final > 0 {
		result.Amount = final
	}

	var custom customField
	if raw := fields["custom_field"]; raw != "" && json.Unmarshal([]byte(raw), &custom) == nil && custom.OrderID != "" {
		result.OrderID = custom.OrderID
	}

	if result.OrderID == "" {
		result.Success = false
		result.Error = "missing order reference"
	}

	return result, nil
}

func mapEvent(event string) provider.PaymentStatus {
	switch event {
	case eventSaleComplete:
		return provider.StatusPaid
	case eventSaleCanceled:
		return provider.StatusCancelled
	default:
		return provider.StatusPending
	}
}

// GetStatus always reports pending; PayTech offers no status endpoint and
// the IPN is the only source of truth.
func (p *PayTechProvider) GetStatus(_ context.Context, transactionID string) (provider.PaymentStatus, error) {
	logger.WithGateway(string(p.Gateway())).
		AddField("transaction_id", transactionID).
		Warn("PayTech has no status API, reporting pending")
	return provider.StatusPending, nil
}
