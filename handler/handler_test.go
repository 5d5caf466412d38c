package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mstgnz/paygate/infra/opensearch"
	"github.com/mstgnz/paygate/infra/response"
	"github.com/mstgnz/paygate/order"
	"github.com/mstgnz/paygate/provider"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	gateway     provider.Gateway
	configured  bool
	session     *provider.PaymentSession
	valid       bool
	result      *provider.CallbackResult
	callbackErr error
	status      provider.PaymentStatus

	mu         sync.Mutex
	signatures []string
	orders     []provider.OrderPayload
}

func (f *fakeProvider) Gateway() provider.Gateway { return f.gateway }
func (f *fakeProvider) IsConfigured() bool        { return f.configured }

func (f *fakeProvider) CreateSession(_ context.Context, o provider.OrderPayload, _ string) (*provider.PaymentSession, error) {
	f.mu.Lock()
	f.orders = append(f.orders, o)
	f.mu.Unlock()
	if f.session != nil {
		return f.session, nil
	}
	return &provider.PaymentSession{Success: true, Gateway: f.gateway, TransactionID: "tx-" + o.OrderID, RedirectURL: "https://pay.example/" + o.OrderID}, nil
}

func (f *fakeProvider) VerifyWebhook(_ []byte, signature string) bool {
	f.mu.Lock()
	f.signatures = append(f.signatures, signature)
	f.mu.Unlock()
	return f.valid
}

func (f *fakeProvider) HandleCallback([]byte) (*provider.CallbackResult, error) {
	return f.result, f.callbackErr
}

func (f *fakeProvider) GetStatus(context.Context, string) (provider.PaymentStatus, error) {
	return f.status, nil
}

type fakeLedger struct {
	seen    map[string]bool
	results []*provider.CallbackResult
	err     error
}

func (l *fakeLedger) Apply(_ context.Context, result *provider.CallbackResult) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = map[string]bool{}
	}
	key := string(result.Gateway) + "|" + result.TransactionID + "|" + string(result.Status)
	if l.seen[key] {
		return false, nil
	}
	l.seen[key] = true
	l.results = append(l.results, result)
	return true, nil
}

type fakeOrders struct {
	mu       sync.Mutex
	upserted []order.Order
	statuses map[string]order.Status
	updates  int
	err      error
}

func (o *fakeOrders) Upsert(_ context.Context, ord order.Order) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.upserted = append(o.upserted, ord)
	return o.err
}

func (o *fakeOrders) SetStatus(_ context.Context, id string, status order.Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates++
	if o.err != nil {
		return o.err
	}
	if _, ok := o.statuses[id]; !ok {
		return order.ErrOrderNotFound
	}
	o.statuses[id] = status
	return nil
}

type fakeAudit struct {
	mu       sync.Mutex
	webhooks []opensearch.WebhookLog
	sessions []opensearch.SessionLog
}

func (a *fakeAudit) LogWebhook(_ context.Context, e opensearch.WebhookLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.webhooks = append(a.webhooks, e)
	return nil
}

func (a *fakeAudit) LogSession(_ context.Context, e opensearch.SessionLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, e)
	return nil
}

func doRequest(t *testing.T, h http.Handler, method, target string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func decodeData(t *testing.T, data any, target any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
}
