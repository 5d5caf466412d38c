package paydunya

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

func testConfig(apiURL string) config.PayDunya {
	return config.PayDunya{
		MasterKey:  "master-key",
		PrivateKey: "private-key",
		PublicKey:  "public-key",
		Token:      "token",
		Mode:       "test",
		StoreName:  "Boutique Dakar",
		APIURL:     apiURL,
	}
}

func testOrder() provider.OrderPayload {
	return provider.OrderPayload{
		OrderID:     "ord-5",
		OrderNumber: "SN-5",
		Amount:      12000,
		Currency:    "XOF",
		Customer:    provider.Customer{Email: "moussa@example.sn", FirstName: "Moussa", LastName: "Ndiaye"},
		Items: []provider.Item{
			{ID: "a", Name: "Thiouraye", Quantity: 2, UnitPrice: 3000},
			{ID: "b", Name: "Encens", Quantity: 1, UnitPrice: 6000},
		},
	}
}

func TestNew_BaseURL(t *testing.T) {
	sandbox := New(config.PayDunya{Mode: "test"}, "")
	live := New(config.PayDunya{Mode: "live"}, "")

	assert.Equal(t, apiSandboxURL+"/checkout-invoice/create", sandbox.client.BaseURL()+endpointCreateInvoice)
	assert.Equal(t, apiLiveURL+"/checkout-invoice/create", live.client.BaseURL()+endpointCreateInvoice)
}

func TestPayDunyaProvider_CreateSession(t *testing.T) {
	var body map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout-invoice/create", r.URL.Path)
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"response_code":"00","response_text":"https://paydunya.com/sandbox-checkout/invoice/test_abc","description":"Checkout Invoice Created","token":"test_abc"}`))
	}))
	defer srv.Close()

	p := New(testConfig(srv.URL), "https://shop.example.sn")
	session, err := p.CreateSession(context.Background(), testOrder(), "orange_money")
	require.NoError(t, err)

	assert.True(t, session.Success)
	assert.Equal(t, "test_abc", session.TransactionID)
	assert.Equal(t, "https://paydunya.com/sandbox-checkout/invoice/test_abc", session.RedirectURL)

	assert.Equal(t, "master-key", headers.Get("PAYDUNYA-MASTER-KEY"))
	assert.Equal(t, "private-key", headers.Get("PAYDUNYA-PRIVATE-KEY"))
	assert.Equal(t, "public-key", headers.Get("PAYDUNYA-PUBLIC-KEY"))
	assert.Equal(t, "token", headers.Get("PAYDUNYA-TOKEN"))

	inv := body["invoice"].(map[string]any)
	assert.EqualValues(t, 12000, inv["total_amount"])
	assert.Equal(t, []any{"orange-money-senegal"}, inv["channels"])
	items := inv["items"].(map[string]any)
	require.Contains(t, items, "item_0")
	require.Contains(t, items, "item_1")
	assert.Equal(t, "6000", items["item_0"].(map[string]any)["total_price"])

	assert.Equal(t, map[string]any{"name": "Boutique Dakar"}, body["store"])
	assert.Equal(t, "https://shop.example.sn/api/webhooks/paydunya", body["actions"].(map[string]any)["callback_url"])
	custom := body["custom_data"].(map[string]any)
	assert.Equal(t, "ord-5", custom["order_id"])
	assert.Equal(t, "SN-5", custom["order_number"])
}

func TestPayDunyaProvider_CreateSession_UnknownMethodLeavesChannelsOpen(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"response_code":"00","response_text":"https://x","token":"t"}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), "https://shop.example.sn").CreateSession(context.Background(), testOrder(), "paypal")
	require.NoError(t, err)
	assert.NotContains(t, body["invoice"].(map[string]any), "channels")
}

func TestPayDunyaProvider_CreateSession_Failures(t *testing.T) {
	t.Run("invoice rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response_code":"1001","response_text":"Invalid Masterkey"}`))
		}))
		defer srv.Close()

		session, err := New(testConfig(srv.URL), "").CreateSession(context.Background(), testOrder(), "")
		require.NoError(t, err)
		assert.False(t, session.Success)
		assert.Equal(t, provider.ErrCodeInvoiceCreation, session.ErrorCode)
		assert.Equal(t, "Invalid Masterkey", session.Message)
	})

	t.Run("unsupported currency", func(t *testing.T) {
		order := testOrder()
		order.Currency = "EUR"
		session, err := New(testConfig("http://127.0.0.1:1"), "").CreateSession(context.Background(), order, "")
		require.NoError(t, err)
		assert.Equal(t, provider.ErrCodeUnsupportedCurrency, session.ErrorCode)
	})

	t.Run("not configured makes no call", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		}))
		defer srv.Close()

		session, err := New(config.PayDunya{MasterKey: "m", APIURL: srv.URL}, "").CreateSession(context.Background(), testOrder(), "wave")
		require.NoError(t, err)
		assert.Equal(t, provider.ErrCodeNotConfigured, session.ErrorCode)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})
}

func ipn(hash, status, token string) []byte {
	return []byte(`{"data":{"hash":"` + hash + `","status":"` + status + `","invoice":{"token":"` + token + `","total_amount":"12000"},"custom_data":{"order_id":"ord-5","order_number":"SN-5"},"customer":{"name":"Moussa","payment_method":"wave"}}}`)
}

func TestPayDunyaProvider_VerifyWebhook(t *testing.T) {
	p := New(testConfig(""), "")
	valid := provider.SHA512Hex("master-key")

	tests := []struct {
		name     string
		payload  []byte
		expected bool
	}{
		{"valid", ipn(valid, "completed", "test_abc"), true},
		{"other status still valid", ipn(valid, "cancelled", "test_abc"), true},
		{"other token still valid", ipn(valid, "completed", "another"), true},
		{"hash of other key", ipn(provider.SHA512Hex("other-key"), "completed", "test_abc"), false},
		{"sha256 of master key", ipn(provider.SHA256Hex("master-key"), "completed", "test_abc"), false},
		{"empty hash", ipn("", "completed", "test_abc"), false},
		{"empty payload", nil, false},
		{"malformed json", []byte(`{"data":`), false},
		{"form encoded", []byte(url.Values{"data[hash]": {valid}, "data[status]": {"completed"}}.Encode()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.VerifyWebhook(tt.payload, ""))
		})
	}
}

func TestPayDunyaProvider_VerifyWebhook_IgnoresPayload(t *testing.T) {
	p := New(testConfig(""), "")
	valid := provider.SHA512Hex("master-key")

	base := p.VerifyWebhook(ipn(valid, "completed", "t1"), "")
	require.True(t, base)
	for _, payload := range [][]byte{
		ipn(valid, "failed", "t1"),
		ipn(valid, "pending", "t2"),
		[]byte(`{"data":{"hash":"` + valid + `"}}`),
		[]byte(`{"data":{"hash":"` + valid + `","invoice":{"total_amount":1}},"extra":true}`),
	} {
		assert.Equal(t, base, p.VerifyWebhook(payload, "ignored-signature"))
	}
}

func TestPayDunyaProvider_HandleCallback(t *testing.T) {
	p := New(testConfig(""), "")

	tests := []struct {
		status   string
		expected provider.PaymentStatus
	}{
		{"completed", provider.StatusPaid},
		{"cancelled", provider.StatusCancelled},
		{"failed", provider.StatusFailed},
		{"pending", provider.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			result, err := p.HandleCallback(ipn("h", tt.status, "test_abc"))
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, "ord-5", result.OrderID)
			assert.Equal(t, "test_abc", result.TransactionID)
			assert.Equal(t, "wave", result.PaymentMethod)
			assert.Equal(t, 12000.0, result.Amount)
			assert.Equal(t, "XOF", result.Currency)
		})
	}
}

func TestPayDunyaProvider_HandleCallback_Form(t *testing.T) {
	form := url.Values{
		"data[hash]":                      {"h"},
		"data[status]":                    {"completed"},
		"data[invoice][token]":            {"tok"},
		"data[invoice][total_amount]":     {"5000"},
		"data[custom_data][order_id]":     {"ord-8"},
		"data[custom_data][order_number]": {"SN-8"},
	}

	result, err := New(testConfig(""), "").HandleCallback([]byte(form.Encode()))
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPaid, result.Status)
	assert.Equal(t, "ord-8", result.OrderID)
	assert.Equal(t, "tok", result.TransactionID)
	assert.Equal(t, 5000.0, result.Amount)
}

func TestPayDunyaProvider_GetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/checkout-invoice/confirm/tok_paid":
			_, _ = w.Write([]byte(`{"response_code":"00","response_text":"Transaction Found","status":"completed"}`))
		case "/checkout-invoice/confirm/tok_pending":
			_, _ = w.Write([]byte(`{"response_code":"00","status":"pending"}`))
		default:
			_, _ = w.Write([]byte(`{"response_code":"4002","response_text":"Invoice not found"}`))
		}
	}))
	defer srv.Close()

	p := New(testConfig(srv.URL), "")

	status, err := p.GetStatus(context.Background(), "tok_paid")
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPaid, status)

	status, err = p.GetStatus(context.Background(), "tok_pending")
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPending, status)

	_, err = p.GetStatus(context.Background(), "tok_missing")
	assert.Error(t, err)
}
