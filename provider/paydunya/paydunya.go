package paydunya

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/infra/logger"
	"github.com/mstgnz/paygate/provider"
)

const (
	// API URLs
	apiSandboxURL = "https://app.paydunya.com/sandbox-api/v1"
	apiLiveURL    = "https://app.paydunya.com/api/v1"

	// API Endpoints
	endpointCreateInvoice  = "/checkout-invoice/create"
	endpointConfirmInvoice = "/checkout-invoice/confirm/"

	responseCodeOK = "00"
)

// PayDunyaProvider implements provider.PaymentProvider for PayDunya checkout invoices
type PayDunyaProvider struct {
	masterKey  string
	privateKey string
	publicKey  string
	token      string
	storeName  string
	appURL     string
	client     *provider.ProviderHTTPClient
	now        func() time.Time
}

// NewProvider builds the adapter from the shared payment configuration
func NewProvider(cfg *config.Payments) provider.PaymentProvider {
	return New(cfg.PayDunya, cfg.BaseURL)
}

// New creates a PayDunya adapter
func New(cfg config.PayDunya, appURL string) *PayDunyaProvider {
	apiURL := apiSandboxURL
	if cfg.Mode == "live" {
		apiURL = apiLiveURL
	}
	if cfg.APIURL != "" {
		apiURL = cfg.APIURL
	}

	return &PayDunyaProvider{
		masterKey:  cfg.MasterKey,
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PublicKey,
		token:      cfg.Token,
		storeName:  cfg.StoreName,
		appURL:     strings.TrimRight(appURL, "/"),
		client:     provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(apiURL, provider.SessionTimeout)),
		now:        time.Now,
	}
}

func (p *PayDunyaProvider) Gateway() provider.Gateway {
	return provider.GatewayPayDunya
}

func (p *PayDunyaProvider) IsConfigured() bool {
	return p.masterKey != "" && p.privateKey != "" && p.token != ""
}

func (p *PayDunyaProvider) headers() map[string]string {
	return map[string]string{
		"PAYDUNYA-MASTER-KEY":  p.masterKey,
		"PAYDUNYA-PRIVATE-KEY": p.privateKey,
		"PAYDUNYA-PUBLIC-KEY":  p.publicKey,
		"PAYDUNYA-TOKEN":       p.token,
	}
}

type invoiceItem struct {
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalPrice  string `json:"total_price"`
	Description string `json:"description,omitempty"`
}

type invoice struct {
	Items       map[string]invoiceItem `json:"items,omitempty"`
	TotalAmount int64                  `json:"total_amount"`
	Description string                 `json:"description"`
	Channels    []string               `json:"channels,omitempty"`
}

type store struct {
	Name string `json:"name"`
}

type actions struct {
	CancelURL   string `json:"cancel_url"`
	ReturnURL   string `json:"return_url"`
	CallbackURL string `json:"callback_url"`
}

// checkoutInvoice is the body of checkout-invoice/create
type checkoutInvoice struct {
	Invoice    invoice           `json:"invoice"`
	Store      store             `json:"store"`
	Actions    actions           `json:"actions"`
	CustomData map[string]string `json:"custom_data"`
}

func newCheckoutInvoice(storeName string) *checkoutInvoice {
	return &checkoutInvoice{
		Invoice:    invoice{Items: map[string]invoiceItem{}},
		Store:      store{Name: storeName},
		CustomData: map[string]string{},
	}
}

func (c *checkoutInvoice) addItem(name string, quantity int, unitPrice int64, description string) {
	key := "item_" + strconv.Itoa(len(c.Invoice.Items))
	c.Invoice.Items[key] = invoiceItem{
		Name:        name,
		Quantity:    quantity,
		UnitPrice:   strconv.FormatInt(unitPrice, 10),
		TotalPrice:  strconv.FormatInt(unitPrice*int64(quantity), 10),
		Description: description,
	}
}

func (c *checkoutInvoice) setTotalAmount(amount int64) {
	c.Invoice.TotalAmount = amount
}

func (c *checkoutInvoice) setDescription(desc string) {
	c.Invoice.Description = desc
}

func (c *checkoutInvoice) addCustomData(key, value string) {
	c.CustomData[key] = value
}

func (c *checkoutInvoice) addChannel(channel string) {
	c.Invoice.Channels = append(c.Invoice.Channels, channel)
}

func (c *checkoutInvoice) setActions(returnURL, cancelURL, callbackURL string) {
	c.Actions = actions{ReturnURL: returnURL, CancelURL: cancelURL, CallbackURL: callbackURL}
}

type createResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Description  string `json:"description"`
	Token        string `json:"token"`
}

// CreateSession creates a checkout invoice and returns its payment page
func (p *PayDunyaProvider) CreateSession(ctx context.Context, order provider.OrderPayload, method string) (*provider.PaymentSession, error) {
	if !p.IsConfigured() {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeNotConfigured, "PayDunya is not configured"), nil
	}
	if !strings.EqualFold(order.Currency, "XOF") {
		return provider.FailedSession(p.Gateway(), provider.ErrCodeUnsupportedCurrency,
			fmt.Sprintf("PayDunya only accepts XOF, got %s", order.Currency)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, provider.SessionTimeout)
	defer cancel()

	inv := newCheckoutInvoice(p.storeName)
	for _, item := range order.Items {
		inv.addItem(item.Name, item.Quantity, item.UnitPrice, "")
	}
	inv.setTotalAmount(order.Amount)
	inv.setDescription("Order " + order.OrderNumber)
	orderRef := url.QueryEscape(order.OrderID)
	inv.setActions(
		p.appURL+"/checkout/success?order="+orderRef,
		p.appURL+"/checkout/cancel?order="+orderRef,
		p.appURL+"/api/webhooks/paydunya",
	)
	inv.addCustomData("order_id", order.OrderID)
	inv.addCustomData("order_number", order.OrderNumber)
	if channel, ok := provider.PayDunyaChannels.Lookup(method); ok {
		inv.addChannel(channel)
		inv.addCustomData("payment_method", method)
	}

	log := logger.WithGateway(string(p.Gateway())).AddField("order_id", order.OrderID)

	resp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: endpointCreateInvoice,
		Headers:  p.headers(),
		Body:     inv,
	})
	if err != nil && resp == nil {
		log.Error("invoice request failed", err)
		return provider.FailedSession(p.Gateway(), provider.ErrCodeConnection, "Unable to reach PayDunya"), nil
	}

	var result createResponse
	_ = p.client.ParseJSONResponse(resp, &result)
	if err != nil || result.ResponseCode != responseCodeOK {
		msg := result.ResponseText
		if msg == "" {
			msg = "PayDunya could not create the invoice"
		}
		log.Warn("invoice creation failed: " + msg)
		return provider.FailedSession(p.Gateway(), provider.ErrCodeInvoiceCreation, msg), nil
	}

	return &provider.PaymentSession{
		Success:       true,
		Gateway:       p.Gateway(),
		TransactionID: result.Token,
		RedirectURL:   result.ResponseText,
	}, nil
}

type ipnData struct {
	Hash    string `json:"hash"`
	Status  string `json:"status"`
	Invoice struct {
		Token       string              `json:"token"`
		TotalAmount provider.FlexString `json:"total_amount"`
	} `json:"invoice"`
	CustomData map[string]provider.FlexString `json:"custom_data"`
	Customer   struct {
		PaymentMethod string `json:"payment_method"`
	} `json:"customer"`
}

// parseIPN accepts the JSON body or PayDunya's bracketed form encoding
// (data[hash]=...&data[invoice][token]=...).
func parseIPN(payload []byte) (*ipnData, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, errors.New("empty payload")
	}

	if strings.HasPrefix(trimmed, "{") {
		var body struct {
			Data ipnData `json:"data"`
		}
		if err := json.Unmarshal([]byte(trimmed), &body); err != nil {
			return nil, fmt.Errorf("invalid JSON payload: %w", err)
		}
		return &body.Data, nil
	}

	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid form payload: %w", err)
	}
	data := &ipnData{
		Hash:       values.Get("data[hash]"),
		Status:     values.Get("data[status]"),
		CustomData: map[string]provider.FlexString{},
	}
	data.Invoice.Token = values.Get("data[invoice][token]")
	data.Invoice.TotalAmount = provider.FlexString(values.Get("data[invoice][total_amount]"))
	data.Customer.PaymentMethod = values.Get("data[customer][payment_method]")
	for key := range values {
		if name, ok := strings.CutPrefix(key, "data[custom_data]["); ok {
			data.CustomData[strings.TrimSuffix(name, "]")] = provider.FlexString(values.Get(key))
		}
	}
	return data, nil
}

// VerifyWebhook accepts the IPN iff data.hash == SHA-512(master key). The
// hash covers only the master key, so the rest of the payload does not
// influence the outcome.
func (p *PayDunyaProvider) VerifyWebhook(payload []byte, _ string) bool {
	if p.masterKey == "" {
		return false
	}
	data, err := parseIPN(payload)
	if err != nil {
		return false
	}
	return provider.EqualHex(provider.SHA512Hex(p.masterKey), data.Hash)
}

// HandleCallback normalizes a verified IPN
func (p *PayDunyaProvider) HandleCallback(payload []byte) (*provider.CallbackResult, error) {
	data, err := parseIPN(payload)
	if err != nil {
		return nil, fmt.Errorf("paydunya: %w", err)
	}

	method := data.CustomData["payment_method"].String()
	if method == "" {
		method = data.Customer.PaymentMethod
	}

	result := &provider.CallbackResult{
		Success:       true,
		Gateway:       p.Gateway(),
		OrderID:       data.CustomData["order_id"].String(),
		TransactionID: data.Invoice.Token,
		Status:        mapStatus(data.Status),
		PaymentMethod: method,
		Amount:        data.Invoice.TotalAmount.Float(),
		Currency:      "XOF",
		ProcessedAt:   p.now().UTC(),
		RawPayload:    provider.RawJSON(payload),
	}
	if result.OrderID == "" {
		result.Success = false
		result.Error = "missing order reference"
	}
	return result, nil
}

func mapStatus(status string) provider.PaymentStatus {
	switch strings.ToLower(status) {
	case "completed":
		return provider.StatusPaid
	case "cancelled":
		return provider.StatusCancelled
	case "failed":
		return provider.StatusFailed
	default:
		return provider.StatusPending
	}
}

type confirmResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Status       string `json:"status"`
}

// GetStatus confirms the invoice identified by its token
func (p *PayDunyaProvider) GetStatus(ctx context.Context, transactionID string) (provider.PaymentStatus, error) {
	if !p.IsConfigured() {
		return provider.StatusPending, errors.New("paydunya: not configured")
	}
	if transactionID == "" {
		return provider.StatusPending, errors.New("paydunya: transactionID is required")
	}

	resp, err := p.client.Get(ctx, &provider.HTTPRequest{
		Endpoint: endpointConfirmInvoice + url.PathEscape(transactionID),
		Headers:  p.headers(),
	})
	if err != nil {
		return provider.StatusPending, fmt.Errorf("paydunya: confirm request failed: %w", err)
	}

	var result confirmResponse
	if err := p.client.ParseJSONResponse(resp, &result); err != nil {
		return provider.StatusPending, fmt.Errorf("paydunya: invalid confirm response: %w", err)
	}
	if result.ResponseCode != responseCodeOK {
		return provider.StatusPending, fmt.Errorf("paydunya: confirm failed: %s", result.ResponseText)
	}
	return mapStatus(result.Status), nil
}
