package cod

import (
	"context"
	"time"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/provider"
)

// TransactionPrefix marks synthetic cash on delivery transaction ids
const TransactionPrefix = "COD-"

// CODProvider implements provider.PaymentProvider for cash on delivery. It
// never talks to a network and is always configured.
type CODProvider struct {
	now func() time.Time
}

// NewProvider builds the adapter; COD has no settings
func NewProvider(_ *config.Payments) provider.PaymentProvider {
	return New()
}

// New creates a cash on delivery adapter
func New() *CODProvider {
	return &CODProvider{now: time.Now}
}

func (p *CODProvider) Gateway() provider.Gateway {
	return provider.GatewayCOD
}

func (p *CODProvider) IsConfigured() bool {
	return true
}

// CreateSession confirms the order immediately; payment is collected on delivery
func (p *CODProvider) CreateSession(_ context.Context, order provider.OrderPayload, _ string) (*provider.PaymentSession, error) {
	return &provider.PaymentSession{
		Success:        true,
		Gateway:        p.Gateway(),
		TransactionID:  TransactionPrefix + order.OrderID,
		OrderConfirmed: true,
	}, nil
}

// VerifyWebhook accepts everything; there is no remote party to authenticate
func (p *CODProvider) VerifyWebhook(_ []byte, _ string) bool {
	return true
}

// HandleCallback reports the order as awaiting payment
func (p *CODProvider) HandleCallback(payload []byte) (*provider.CallbackResult, error) {
	result := &provider.CallbackResult{
		Success:     true,
		Gateway:     p.Gateway(),
		Status:      provider.StatusAwaitingPayment,
		ProcessedAt: p.now().UTC(),
	}
	if len(payload) > 0 {
		if fields, err := provider.ParseFields(payload); err == nil {
			result.OrderID = fields["order_id"]
			result.TransactionID = fields["transaction_id"]
			if result.TransactionID == "" && result.OrderID != "" {
				result.TransactionID = TransactionPrefix + result.OrderID
			}
		}
		result.RawPayload = provider.RawJSON(payload)
	}
	return result, nil
}

func (p *CODProvider) GetStatus(_ context.Context, _ string) (provider.PaymentStatus, error) {
	return provider.StatusAwaitingPayment, nil
}
