package airwallex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/infra/logger"
	"github.com/mstgnz/paygate/provider"
	"golang.org/x/sync/singleflight"
)

const (
	// API URLs
	apiDemoURL      = "https://api-demo.airwallex.com"
	apiProdURL      = "https://api.airwallex.com"
	checkoutDemoURL = "https://checkout-demo.airwallex.com"
	checkoutProdURL = "https://checkout.airwallex.com"

	// API Endpoints
	endpointLogin        = "/api/v1/authentication/login"
	endpointCreateIntent = "/api/v1/pa/payment_intents/create"
	endpointIntent       = "/api/v1/pa/payment_intents/"

	// tokens are valid for 30 minutes; refresh a little early
	tokenTTL = 25 * time.Minute
)

var supportedCurrencies = []string{"USD", "EUR", "MAD"}

var errMalformedSignature = errors.New("airwallex: malformed signature header")

type accessToken struct {
	value     string
	expiresAt time.Time
}

// AirwallexProvider implements provider.PaymentProvider for Airwallex hosted checkout
type AirwallexProvider struct {
	clientID      string
	apiKey        string
	webhookSecret string
	checkoutURL   string
	appURL        string
	client        *provider.ProviderHTTPClient
	now           func() time.Time

	token  atomic.Pointer[accessToken]
	logins singleflight.Group
}

// NewProvider builds the adapter from the shared payment configuration
func NewProvider(cfg *config.Payments) provider.PaymentProvider {
	return New(cfg.Airwallex, cfg.BaseURL)
}

// New creates an Airwallex adapter
func New(cfg config.Airwallex, appURL string) *AirwallexProvider {
	apiURL, checkoutURL := apiDemoURL, checkoutDemoURL
	if cfg.Env == "prod" {
		apiURL, checkoutURL = apiProdURL, checkoutProdURL
	}
	if cfg.APIURL != "" {
		apiURL = cfg.APIURL
	}
	if cfg.CheckoutURL != "" {
		checkoutURL = cfg.CheckoutURL
	}

	return &AirwallexProvider{
		clientID:      cfg.ClientID,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		checkoutURL:   strings.TrimRight(checkoutURL, "/"),
		appURL:        strings.TrimRight(appURL, "/"),
		client:        provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(apiURL, provider.SessionTimeout)),
		now:           time.Now,
	}
}

func (p *AirwallexProvider) Gateway() provider.Gateway {
	return provider.GatewayAirwallex
}

func (p *AirwallexProvider) IsConfigured() bool {
	return p.clientID != "" && p.apiKey != "" && p.webhookSecret != ""
}

type loginResponse struct {
	Token string `json:"token"`
}

// bearer returns a cached access token, logging in when it is missing or
// stale. Concurrent refreshes share one login call, which runs detached from
// any single caller so one cancelled checkout cannot fail the others.
func (p *AirwallexProvider) bearer(ctx context.Context) (string, error) {
	if t := p.token.Load(); t != nil && p.now().Before(t.expiresAt) {
		return t.value, nil
	}

	ch := p.logins.DoChan("login", func() (any, error) {
		if t := p.token.Load(); t != nil && p.now().Before(t.expiresAt) {
			return t.value, nil
		}

		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), provider.SessionTimeout)
		defer cancel()

		resp, err := p.client.SendJSON(loginCtx, &provider.HTTPRequest{
			Method:   http.MethodPost,
			Endpoint: endpointLogin,
			Headers: map[string]string{
				"x-client-id": p.clientID,
				"x-api-key":   p.apiKey,
			},
		})
		if err != nil {
			return "", fmt.Errorf("airwallex: login failed: %w", err)
		}

		var login loginResponse
		if err := p.client.ParseJSONResponse(resp, &login); err != nil || login.Token == "" {
			return "", fmt.Errorf("airwallex: login returned no token")
		}

		p.token.Store(&accessToken{value: login.Token, expiresAt: p.now().Add(tokenTTL)})
		return login.Token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type product struct {
	Code      string `json:"code,omitempty"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type intentRequest struct {
	RequestID       string            `json:"request_id"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	MerchantOrderID string            `json:"merchant_order_id"`
	ReturnURL       string            `json:"return_url"`
	Metadata        map[string]string `json:"metadata"`
	Order           struct {
		Products []product `json:"products,omitempty"`
	} `json:"order"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	Code         string `json:"code"`
}

// CreateSession creates a PaymentIntent and returns the hosted checkout URL
func (p *AirwallexProvider) CreateSession(ctx context.Context, order provider.OrderPayload, _ string) (*provider.PaymentSession, error) {
	if !p.IsConfigured() {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeNotConfigured, "Airwallex is not configured"), nil
	}
	if !provider.SupportsCurrency(order.Currency, supportedCurrencies...) {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeUnsupportedCurrency,
			fmt.Sprintf("Airwallex does not support %s", order.Currency)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, provider.SessionTimeout)
	defer cancel()

	log := logger.WithGateway(string(p.Gateway())).AddField("order_id", order.OrderID)

	token, err := p.bearer(ctx)
	if err != nil {
		log.Error("authentication failed", err)
		return provider.FailedSession(p.Gateway(), provider.SessionErrorCode(err), "Unable to authenticate with Airwallex"), nil
	}

	successURL := p.appURL + "/checkout/success?order=" + url.QueryEscape(order.OrderID)
	failURL := p.appURL + "/checkout/cancel?order=" + url.QueryEscape(order.OrderID)

	req := intentRequest{
		RequestID:       uuid.NewString(),
		Amount:          order.Amount,
		Currency:        strings.ToUpper(order.Currency),
		MerchantOrderID: order.OrderNumber,
		ReturnURL:       successURL,
		Metadata:        map[string]string{"order_id": order.OrderID},
	}
	for _, item := range order.Items {
		req.Order.Products = append(req.Order.Products, product{
			Code:      item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointCreateIntent,
		Headers:  map[string]string{"Authorization": "Bearer " + token},
		Body:     req,
	})
	if err != nil && resp == nil {
		log.Error("payment intent request failed", err)
		return provider.FailedSession(p.Gateway(), provider.ErrCodeConnection, "Unable to reach Airwallex"), nil
	}

	var intent intentResponse
	_ = p.client.ParseJSONResponse(resp, &intent)
	if err != nil || intent.ID == "" || intent.ClientSecret == "" {
		msg := intent.Message
		if msg == "" {
			msg = "Airwallex rejected the payment intent"
		}
		log.Warn("payment intent rejected: " + msg)
		return provider.FailedSession(p.Gateway(), provider.ErrCodeAPIError, msg), nil
	}

	return &provider.PaymentSession{
		Success:       true,
		Gateway:       p.Gateway(),
		TransactionID: intent.ID,
		RedirectURL:   p.checkoutLink(intent, req.Currency, successURL, failURL),
	}, nil
}

// checkoutLink keeps the parameter order of the hosted page's documentation
func (p *AirwallexProvider) checkoutLink(intent intentResponse, currency, successURL, failURL string) string {
	params := []string{
		"intent_id=" + url.QueryEscape(intent.ID),
		"client_secret=" + url.QueryEscape(intent.ClientSecret),
		"currency=" + url.QueryEscape(currency),
		"mode=payment",
		"successUrl=" + url.QueryEscape(successURL),
		"failUrl=" + url.QueryEscape(failURL),
	}
	return p.checkoutURL + "/#/standalone/checkout?" + strings.Join(params, "&")
}

// parseSignatureHeader splits "t=<ts>,v1=<sig>"
func parseSignatureHeader(header string) (timestamp, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return "", "", errMalformedSignature
	}
	return timestamp, signature, nil
}

// VerifyWebhook checks v1 == HMAC-SHA256(secret, t + rawPayload)
func (p *AirwallexProvider) VerifyWebhook(payload []byte, signature string) bool {
	if p.webhookSecret == "" || len(payload) == 0 {
		return false
	}
	timestamp, sig, err := parseSignatureHeader(signature)
	if err != nil {
		return false
	}
	return provider.EqualHex(provider.HMACSHA256Hex(p.webhookSecret, timestamp+string(payload)), sig)
}

type webhookEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		Object struct {
			ID              string              `json:"id"`
			PaymentIntentID string              `json:"payment_intent_id"`
			Amount          provider.FlexString `json:"amount"`
			Currency        string              `json:"currency"`
			MerchantOrderID string              `json:"merchant_order_id"`
			Status          string              `json:"status"`
			Metadata        map[string]string   `json:"metadata"`
			FailureCode     string              `json:"failure_code"`
			PaymentMethod   struct {
				Type string `json:"type"`
			} `json:"payment_method"`
			LatestPaymentAttempt struct {
				PaymentMethod struct {
					Type string `json:"type"`
				} `json:"payment_method"`
			} `json:"latest_payment_attempt"`
		} `json:"object"`
	} `json:"data"`
}

// HandleCallback normalizes a verified webhook event
func (p *AirwallexProvider) HandleCallback(payload []byte) (*provider.CallbackResult, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("airwallex: invalid webhook payload: %w", err)
	}

	obj := event.Data.Object
	txID := obj.PaymentIntentID
	if txID == "" {
		txID = obj.ID
	}
	orderID := obj.Metadata["order_id"]
	if orderID == "" {
		orderID = obj.MerchantOrderID
	}
	method := obj.LatestPaymentAttempt.PaymentMethod.Type
	if method == "" {
		method = obj.PaymentMethod.Type
	}

	result := &provider.CallbackResult{
		Success:       true,
		Gateway:       p.Gateway(),
		OrderID:       orderID,
		TransactionID: txID,
		Status:        mapEvent(event.Name),
		PaymentMethod: method,
		Amount:        obj.Amount.Float(),
		Currency:      obj.Currency,
		ProcessedAt:   p.now().UTC(),
		RawPayload:    provider.RawJSON(payload),
	}
	if result.Status == provider.StatusFailed && obj.FailureCode != "" {
		result.Error = obj.FailureCode
	}
	if orderID == "" {
		result.Success = false
		result.Error = "missing order reference"
	}
	return result, nil
}

func mapEvent(name string) provider.PaymentStatus {
	switch name {
	case "payment_intent.succeeded":
		return provider.StatusPaid
	case "payment_intent.cancelled":
		return provider.StatusCancelled
	case "payment_attempt.failed_to_process", "payment_intent.payment_failed":
		return provider.StatusFailed
	case "payment_intent.requires_capture", "payment_attempt.authorized":
		return provider.StatusProcessing
	default:
		return provider.StatusPending
	}
}

func mapIntentStatus(status string) provider.PaymentStatus {
	switch status {
	case "SUCCEEDED":
		return provider.StatusPaid
	case "CANCELLED":
		return provider.StatusCancelled
	case "REQUIRES_CAPTURE":
		return provider.StatusProcessing
	case "FAILED":
		return provider.StatusFailed
	default:
		return provider.StatusPending
	}
}

// GetStatus retrieves the PaymentIntent and maps its status
func (p *AirwallexProvider) GetStatus(ctx context.Context, transactionID string) (provider.PaymentStatus, error) {
	if !p.IsConfigured() {
		return provider.StatusPending, errors.New("airwallex: not configured")
	}
	if transactionID == "" {
		return provider.StatusPending, errors.New("airwallex: transactionID is required")
	}

	token, err := p.bearer(ctx)
	if err != nil {
		return provider.StatusPending, err
	}

	resp, err := p.client.Get(ctx, &provider.HTTPRequest{
		Endpoint: endpointIntent + url.PathEscape(transactionID),
		Headers:  map[string]string{"Authorization": "Bearer " + token},
	})
	if err != nil {
		return provider.StatusPending, fmt.Errorf("airwallex: status request failed: %w", err)
	}

	var intent intentResponse
	if err := p.client.ParseJSONResponse(resp, &intent); err != nil {
		return provider.StatusPending, fmt.Errorf("airwallex: invalid status response: %w", err)
	}
	return mapIntentStatus(intent.Status), nil
}
