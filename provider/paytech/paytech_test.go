package paytech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() provider.OrderPayload {
	return provider.OrderPayload{
		OrderID:     "ord-42",
		OrderNumber: "ORD-1",
		Amount:      5000,
		Currency:    "XOF",
		Customer:    provider.Customer{Email: "awa@example.com", FirstName: "Awa", LastName: "Diop"},
		Items:       []provider.Item{{ID: "p1", Name: "Boubou", Quantity: 1, UnitPrice: 5000}},
	}
}

func newTestProvider(apiURL string) *PayTechProvider {
	return New(config.PayTech{APIKey: "k", SecretKey: "s", Env: "test", APIURL: apiURL}, "https://shop.example.com/")
}

func TestPayTechProvider_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.PayTech
		expected bool
	}{
		{"both secrets", config.PayTech{APIKey: "k", SecretKey: "s"}, true},
		{"missing secret", config.PayTech{APIKey: "k"}, false},
		{"missing key", config.PayTech{SecretKey: "s"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.cfg, "").IsConfigured())
		})
	}
}

func TestPayTechProvider_CreateSession(t *testing.T) {
	var captured map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/request-payment", r.URL.Path)
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"success":1,"token":"tok_123","redirect_url":"https://paytech.sn/payment/checkout/tok_123"}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	session, err := p.CreateSession(context.Background(), testOrder(), "wave")
	require.NoError(t, err)

	assert.True(t, session.Success)
	assert.Equal(t, provider.GatewayPayTech, session.Gateway)
	assert.Equal(t, "tok_123", session.TransactionID)
	assert.Equal(t, "https://paytech.sn/payment/checkout/tok_123", session.RedirectURL)

	assert.Equal(t, "k", headers.Get("API_KEY"))
	assert.Equal(t, "s", headers.Get("API_SECRET"))
	assert.Equal(t, "Boubou", captured["item_name"])
	assert.EqualValues(t, 5000, captured["item_price"])
	assert.Equal(t, "ORD-1", captured["ref_command"])
	assert.Equal(t, "test", captured["env"])
	assert.Equal(t, "Wave", captured["target_payment"])
	assert.Equal(t, "https://shop.example.com/api/webhooks/paytech", captured["ipn_url"])
	assert.JSONEq(t, `{"order_id":"ord-42","order_number":"ORD-1"}`, captured["custom_field"].(string))
}

func TestPayTechProvider_CreateSession_UnknownMethodLeavesChannelOpen(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"success":1,"token":"t","redirect_url":"https://x"}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).CreateSession(context.Background(), testOrder(), "bitcoin")
	require.NoError(t, err)
	assert.NotContains(t, captured, "target_payment")
}

func TestPayTechProvider_CreateSession_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		order    func(*provider.OrderPayload)
		wantCode string
		wantMsg  string
	}{
		{
			name:     "gateway rejects",
			status:   http.StatusOK,
			body:     `{"success":0,"message":"Invalid ref_command"}`,
			wantCode: provider.ErrCodeAPIError,
			wantMsg:  "Invalid ref_command",
		},
		{
			name:     "gateway error list",
			status:   http.StatusBadRequest,
			body:     `{"success":-1,"error":["item_price is required"]}`,
			wantCode: provider.ErrCodeAPIError,
			wantMsg:  "item_price is required",
		},
		{
			name:     "unsupported currency",
			order:    func(o *provider.OrderPayload) { o.Currency = "GBP" },
			wantCode: provider.ErrCodeUnsupportedCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			order := testOrder()
			if tt.order != nil {
				tt.order(&order)
			}

			session, err := newTestProvider(srv.URL).CreateSession(context.Background(), order, "")
			require.NoError(t, err)
			assert.False(t, session.Success)
			assert.Equal(t, tt.wantCode, session.ErrorCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, session.Message)
			}
		})
	}
}

func TestPayTechProvider_CreateSession_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	apiURL := srv.URL
	srv.Close()

	session, err := newTestProvider(apiURL).CreateSession(context.Background(), testOrder(), "")
	require.NoError(t, err)
	assert.False(t, session.Success)
	assert.Equal(t, provider.ErrCodeConnection, session.ErrorCode)
}

func TestPayTechProvider_CreateSession_NotConfiguredMakesNoCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	p := New(config.PayTech{APIURL: srv.URL}, "https://shop.example.com")
	session, err := p.CreateSession(context.Background(), testOrder(), "wave")

	require.NoError(t, err)
	assert.False(t, session.Success)
	assert.Equal(t, provider.ErrCodeNotConfigured, session.ErrorCode)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestPayTechProvider_VerifyWebhook(t *testing.T) {
	p := newTestProvider("")
	valid := provider.HMACSHA256Hex("s", "5000|ORD-1|k")

	form := func(mutate func(url.Values)) []byte {
		v := url.Values{}
		v.Set("type_event", "sale_complete")
		v.Set("item_price", "5000")
		v.Set("ref_command", "ORD-1")
		v.Set("hmac_compute", valid)
		if mutate != nil {
			mutate(v)
		}
		return []byte(v.Encode())
	}

	tampered := []byte(valid)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	tests := []struct {
		name     string
		payload  []byte
		expected bool
	}{
		{"documented hmac", form(nil), true},
		{"json body", []byte(`{"item_price":"5000","ref_command":"ORD-1","hmac_compute":"` + valid + `"}`), true},
		{"json numeric price", []byte(`{"item_price":5000,"ref_command":"ORD-1","hmac_compute":"` + valid + `"}`), true},
		{"empty payload", nil, false},
		{"garbage", []byte("%zz"), false},
		{"tampered signature", form(func(v url.Values) { v.Set("hmac_compute", string(tampered)) }), false},
		{"tampered price", form(func(v url.Values) { v.Set("item_price", "1") }), false},
		{"other secret", form(func(v url.Values) {
			v.Set("hmac_compute", provider.HMACSHA256Hex("other", "5000|ORD-1|k"))
		}), false},
		{"sha256 fallback", form(func(v url.Values) {
			v.Del("hmac_compute")
			v.Set("api_key_sha256", provider.SHA256Hex("k"))
			v.Set("api_secret_sha256", provider.SHA256Hex("s"))
		}), true},
		{"sha256 fallback wrong secret", form(func(v url.Values) {
			v.Del("hmac_compute")
			v.Set("api_key_sha256", provider.SHA256Hex("k"))
			v.Set("api_secret_sha256", provider.SHA256Hex("x"))
		}), false},
		{"no signature at all", form(func(v url.Values) { v.Del("hmac_compute") }), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.VerifyWebhook(tt.payload, ""))
		})
	}
}

func TestPayTechProvider_VerifyWebhook_SignatureArgument(t *testing.T) {
	p := newTestProvider("")
	payload := []byte("item_price=5000&ref_command=ORD-1")

	assert.True(t, p.VerifyWebhook(payload, provider.HMACSHA256Hex("s", "5000|ORD-1|k")))
	assert.False(t, p.VerifyWebhook(payload, "deadbeef"))
}

func TestPayTechProvider_HandleCallback(t *testing.T) {
	p := newTestProvider("")

	tests := []struct {
		name      string
		event     string
		expected  provider.PaymentStatus
		wantOrder string
	}{
		{"sale complete", "sale_complete", provider.StatusPaid, "ord-42"},
		{"sale canceled", "sale_canceled", provider.StatusCancelled, "ord-42"},
		{"unknown event", "refund_complete", provider.StatusPending, "ord-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := url.Values{}
			v.Set("type_event", tt.event)
			v.Set("item_price", "5000")
			v.Set("ref_command", "ORD-1")
			v.Set("token", "tok_123")
			v.Set("payment_method", "Wave")
			v.Set("currency", "XOF")
			v.Set("custom_field", `{"order_id":"ord-42","order_number":"ORD-1"}`)

			result, err := p.HandleCallback([]byte(v.Encode()))
			require.NoError(t, err)

			assert.True(t, result.Success)
			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, tt.wantOrder, result.OrderID)
			assert.Equal(t, "tok_123", result.TransactionID)
			assert.Equal(t, "Wave", result.PaymentMethod)
			assert.Equal(t, 5000.0, result.Amount)
			assert.JSONEq(t, `{"type_event":"`+tt.event+`","item_price":"5000","ref_command":"ORD-1","token":"tok_123","payment_method":"Wave","currency":"XOF","custom_field":"{\"order_id\":\"ord-42\",\"order_number\":\"ORD-1\"}"}`, string(result.RawPayload))
		})
	}
}

func TestPayTechProvider_HandleCallback_FallsBackToRefCommand(t *testing.T) {
	result, err := newTestProvider("").HandleCallback([]byte(`{"type_event":"sale_complete","ref_command":"ORD-9","token":"t9"}`))
	require.NoError(t, err)
	assert.Equal(t, "ORD-9", result.OrderID)
}

func TestPayTechProvider_HandleCallback_Malformed(t *testing.T) {
	_, err := newTestProvider("").HandleCallback([]byte(`{"broken"`))
	assert.Error(t, err)
}

func TestPayTechProvider_GetStatus(t *testing.T) {
	status, err := newTestProvider("").GetStatus(context.Background(), "tok_123")
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPending, status)
}
