package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Gateway identifies one external payment network. The set is closed; use
// ParseGateway to turn untrusted input into a Gateway.
type Gateway string

const (
	GatewayPayTech   Gateway = "paytech"
	GatewayAirwallex Gateway = "airwallex"
	GatewayChaabi    Gateway = "chaabi"
	GatewayPayDunya  Gateway = "paydunya"
	GatewayCOD       Gateway = "cod"
)

// AllGateways lists every supported gateway in a stable order
func AllGateways() []Gateway {
	return []Gateway{GatewayPayTech, GatewayAirwallex, GatewayChaabi, GatewayPayDunya, GatewayCOD}
}

// ParseGateway maps a case-insensitive name to a Gateway
func ParseGateway(s string) (Gateway, error) {
	g := Gateway(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllGateways() {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGateway, s)
}

func (g Gateway) String() string {
	return string(g)
}

// ReceivesWebhooks reports whether the gateway sends signed callbacks. COD
// has none, so its callbacks can only be forged.
func (g Gateway) ReceivesWebhooks() bool {
	return g != GatewayCOD
}

// PaymentStatus is the normalized state reported by a gateway
type PaymentStatus string

const (
	StatusPending         PaymentStatus = "pending"
	StatusProcessing      PaymentStatus = "processing"
	StatusPaid            PaymentStatus = "paid"
	StatusFailed          PaymentStatus = "failed"
	StatusCancelled       PaymentStatus = "cancelled"
	StatusAwaitingPayment PaymentStatus = "awaiting_payment"
)

// Session error codes
const (
	ErrCodeNotConfigured       = "NOT_CONFIGURED"
	ErrCodeAPIError            = "API_ERROR"
	ErrCodeInvoiceCreation     = "INVOICE_CREATION_FAILED"
	ErrCodeConnection          = "CONNECTION_ERROR"
	ErrCodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
)

// SessionTimeout bounds every outbound session creation call
const SessionTimeout = 15 * time.Second

var (
	ErrUnknownGateway      = errors.New("unknown payment gateway")
	ErrNoGatewayForCountry = errors.New("no payment gateway available for country")
)

// Customer represents the buyer information
type Customer struct {
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins first and last name
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Item is one order line. UnitPrice uses the same unit as OrderPayload.Amount.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	UnitPrice int64  `json:"unitPrice" validate:"gte=0"`
}

// OrderPayload is the gateway-agnostic input to session creation. Adapters
// receive it by value and never modify it.
type OrderPayload struct {
	OrderID     string   `json:"orderId" validate:"required"`
	OrderNumber string   `json:"orderNumber" validate:"required"`
	Amount      int64    `json:"amount" validate:"gt=0"`
	Currency    string   `json:"currency" validate:"required,len=3"`
	Locale      string   `json:"locale,omitempty"`
	Customer    Customer `json:"customer"`
	Items       []Item   `json:"items" validate:"dive"`
}

// PaymentSession is the outcome of CreateSession. On success exactly one of
// RedirectURL, FormData with GatewayURL, or OrderConfirmed is set.
type PaymentSession struct {
	Success        bool              `json:"success"`
	Gateway        Gateway           `json:"gateway"`
	TransactionID  string            `json:"transactionId,omitempty"`
	RedirectURL    string            `json:"redirectUrl,omitempty"`
	FormData       map[string]string `json:"formData,omitempty"`
	GatewayURL     string            `json:"gatewayUrl,omitempty"`
	OrderConfirmed bool              `json:"orderConfirmed,omitempty"`
	Message        string            `json:"message,omitempty"`
	ErrorCode      string            `json:"errorCode,omitempty"`
}

// FailedSession builds the structured failure returned instead of an error
func FailedSession(gateway Gateway, code, message string) *PaymentSession {
	return &PaymentSession{
		Success:   false,
		Gateway:   gateway,
		ErrorCode: code,
		Message:   message,
	}
}

// CallbackResult is a normalized webhook outcome
type CallbackResult struct {
	Success       bool            `json:"success"`
	Gateway       Gateway         `json:"gateway"`
	OrderID       string          `json:"orderId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Status        PaymentStatus   `json:"status"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Amount        float64         `json:"amount,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	ProcessedAt   time.Time       `json:"processedAt"`
	RawPayload    json.RawMessage `json:"rawPayload,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// PaymentProvider is implemented by every gateway adapter
type PaymentProvider interface {
	// Gateway returns the adapter's identifier
	Gateway() Gateway

	// IsConfigured reports whether the required credentials are present
	IsConfigured() bool

	// CreateSession starts a payment. Business failures are reported through
	// the returned session, not the error.
	CreateSession(ctx context.Context, order OrderPayload, method string) (*PaymentSession, error)

	// VerifyWebhook authenticates a raw inbound callback. It never panics.
	VerifyWebhook(payload []byte, signature string) bool

	// HandleCallback normalizes an already verified payload without I/O
	HandleCallback(payload []byte) (*CallbackResult, error)

	// GetStatus asks the gateway for the current state of a transaction
	GetStatus(ctx context.Context, transactionID string) (PaymentStatus, error)
}

// SupportsCurrency reports whether currency is one of supported
func SupportsCurrency(currency string, supported ...string) bool {
	for _, c := range supported {
		if strings.EqualFold(currency, c) {
			return true
		}
	}
	return false
}
