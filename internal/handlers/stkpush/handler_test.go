package stkpush

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/stkpush-service/internal/adapters/lipana"
	"github.com/kevin07696/stkpush-service/internal/adapters/memory"
	"github.com/kevin07696/stkpush-service/internal/domain"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
	"github.com/kevin07696/stkpush-service/internal/services/payment"
	"github.com/kevin07696/stkpush-service/internal/services/reconciliation"
	"github.com/kevin07696/stkpush-service/pkg/resilience"
	"github.com/kevin07696/stkpush-service/pkg/security"
)

const testWebhookSecret = "whsec_test"

type staticWebhookURL struct{}

func (staticWebhookURL) ResolveWebhookURL(context.Context) ports.WebhookURL {
	return ports.WebhookURL{URL: "https://abc.ngrok.app/webhook", Source: "tunnel", Reachable: true}
}

// fakeLipana answers push requests with trackingID and lists no transactions
type fakeLipana struct {
	server     *httptest.Server
	pushCalls  atomic.Int64
	listCalls  atomic.Int64
	trackingID string
}

func newFakeLipana(t *testing.T, trackingID string) *fakeLipana {
	t.Helper()
	f := &fakeLipana{trackingID: trackingID}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions/push-stk", func(w http.ResponseWriter, r *http.Request) {
		f.pushCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"transactionId":"` + f.trackingID + `"}}`))
	})
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"pagination":{"pages":1}}`))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func setupAPI(t *testing.T) (http.Handler, *fakeLipana) {
	t.Helper()
	fake := newFakeLipana(t, "txn_e2e")

	cfg := lipana.DefaultConfig("sk_test")
	cfg.BaseURL = fake.server.URL
	client := lipana.NewClient(cfg, fake.server.Client(),
		resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("lipana")),
		security.NewZapLogger(zap.NewNop()))

	store := memory.NewTransactionStore(domain.FirstTerminalWins)
	engine := reconciliation.NewEngine(store, client, zap.NewNop())
	initiator := payment.NewInitiator(payment.DefaultConfig(), client, store, zap.NewNop())

	mux := http.NewServeMux()
	NewHandler(initiator, engine, staticWebhookURL{}, testWebhookSecret, zap.NewNop()).Register(mux)
	return mux, fake
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func signed(body string) map[string]string {
	return map[string]string{lipana.SignatureHeader: lipana.Sign([]byte(body), []byte(testWebhookSecret))}
}

func TestAPI_PayWebhookStatus(t *testing.T) {
	api, fake := setupAPI(t)

	rec, out := do(t, api, http.MethodPost, "/pay", `{"phone":"0712345678","amount":50}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "txn_e2e", out["trackingId"])
	assert.Equal(t, int64(1), fake.pushCalls.Load())

	// Webhook not yet delivered; provider has nothing either
	rec, out = do(t, api, http.MethodGet, "/status/txn_e2e", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", out["status"])

	webhook := `{"event":"payment.success","data":{"transactionId":"txn_e2e","amount":50,"currency":"KES","status":"success","phone":"+254712345678"}}`
	rec, out = do(t, api, http.MethodPost, "/webhook", webhook, signed(webhook))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["received"])

	listCallsBefore := fake.listCalls.Load()
	rec, out = do(t, api, http.MethodGet, "/status/txn_e2e", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "254712345678", out["phone"])
	assert.Equal(t, float64(50), out["amount"])
	assert.Equal(t, listCallsBefore, fake.listCalls.Load(), "terminal status is answered locally")

	// Replayed webhook is accepted and changes nothing
	rec, _ = do(t, api, http.MethodPost, "/webhook", webhook, signed(webhook))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out = do(t, api, http.MethodGet, "/webhook-info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://abc.ngrok.app/webhook", out["webhook_url"])
	assert.Equal(t, float64(1), out["tracked_transactions"])
	txns := out["transactions"].(map[string]interface{})
	assert.Equal(t, "success", txns["txn_e2e"].(map[string]interface{})["status"])
}

func TestAPI_UnknownStatus(t *testing.T) {
	api, fake := setupAPI(t)

	rec, out := do(t, api, http.MethodGet, "/status/txn_nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", out["status"])
	assert.Equal(t, int64(1), fake.listCalls.Load())
}

func TestAPI_Pay_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "below_minimum", body: `{"phone":"0712345678","amount":5}`, message: "Minimum payment amount is KES 10"},
		{name: "missing_phone", body: `{"amount":50}`, message: "Phone number is required"},
		{name: "missing_amount", body: `{"phone":"0712345678"}`, message: "Amount is required"},
		{name: "null_amount", body: `{"phone":"0712345678","amount":null}`, message: "Amount is required"},
		{name: "string_amount_invalid", body: `{"phone":"0712345678","amount":"ten"}`, message: "Amount must be a valid number"},
		{name: "malformed_json", body: `{"phone":`, message: "Invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, fake := setupAPI(t)

			rec, out := do(t, api, http.MethodPost, "/pay", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, out["error"])
			assert.Equal(t, int64(0), fake.pushCalls.Load(), "no outbound call on invalid input")
		})
	}
}

func TestAPI_Pay_StringAmount(t *testing.T) {
	api, _ := setupAPI(t)

	rec, out := do(t, api, http.MethodPost, "/pay", `{"phone":"+254712345678","amount":"100"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "txn_e2e", out["trackingId"])
}

func TestAPI_Webhook_Rejections(t *testing.T) {
	body := `{"event":"payment.success","data":{"transactionId":"txn_1","status":"success"}}`

	tests := []struct {
		name    string
		body    string
		headers map[string]string
		code    int
	}{
		{name: "missing_signature", body: body, code: http.StatusUnauthorized},
		{name: "wrong_signature", body: body, headers: signed(body + " "), code: http.StatusUnauthorized},
		{name: "uppercase_signature", body: body, headers: map[string]string{
			lipana.SignatureHeader: strings.ToUpper(lipana.Sign([]byte(body), []byte(testWebhookSecret))),
		}, code: http.StatusUnauthorized},
		{name: "signed_invalid_json", body: `{"event":`, headers: signed(`{"event":`), code: http.StatusBadRequest},
		{name: "signed_without_transaction_id", body: `{"event":"payment.success","data":{"status":"success"}}`,
			headers: signed(`{"event":"payment.success","data":{"status":"success"}}`), code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, _ := setupAPI(t)

			rec, out := do(t, api, http.MethodPost, "/webhook", tt.body, tt.headers)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, out["error"])

			// Nothing is recorded from a rejected delivery
			_, info := do(t, api, http.MethodGet, "/webhook-info", "", nil)
			assert.Equal(t, float64(0), info["tracked_transactions"])
		})
	}
}

func TestAPI_Webhook_SignatureCoversRawBytes(t *testing.T) {
	api, _ := setupAPI(t)

	// Same JSON value, different bytes
	signedBody := `{"event":"payment.success","data":{"transactionId":"txn_1","status":"success"}}`
	sent := `{"event": "payment.success", "data": {"transactionId": "txn_1", "status": "success"}}`

	rec, _ := do(t, api, http.MethodPost, "/webhook", sent, signed(signedBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	api, _ := setupAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/pay", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(domain.ErrAmountTooLow))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(domain.ErrGatewayProtocol))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(domain.ErrGatewayUnreachable))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(domain.ErrGatewayTimedOut))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(domain.ErrSignatureInvalid))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(domain.ErrTxnNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(domain.ErrStoreError))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(context.Canceled))
}
