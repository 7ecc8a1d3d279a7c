package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clickfix.ru/clickfix-bot/internal/features/catalog"
	"clickfix.ru/clickfix-bot/internal/payments/razorpay"
)

const testSecret = "whsec_test_secret"

var errTestDown = errors.New("connection refused")

func newTestServer(t *testing.T) (*Server, *fakeLedger, *fakeDeliverer) {
	t.Helper()

	ledger := newFakeLedger()
	cat := &fakeCatalog{matches: map[string]*catalog.Match{
		"finals": {MatchName: "finals", ContentRef: "/data/finals.mp4", Description: "Финал"},
	}}
	del := &fakeDeliverer{}
	reconciler := NewReconciler(ledger, cat, del, 5*time.Second)

	srv := NewServer(":0", testSecret, reconciler, nil, "test")
	return srv, ledger, del
}

func postWebhook(t *testing.T, srv *Server, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("невалидный JSON в ответе: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestWebhook_ValidSignature(t *testing.T) {
	srv, ledger, del := newTestServer(t)
	ledger.addSale(42, "finals")

	body := paymentBody("42", "finals")
	rec := postWebhook(t, srv, body, razorpay.SignWebhookBody(body, testSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp["status"] != "success" {
		t.Errorf(`status = %q, want "success"`, resp["status"])
	}
	if del.deliveries() != 1 {
		t.Errorf("deliveries = %d, want 1", del.deliveries())
	}
}

func TestWebhook_InvalidSignature(t *testing.T) {
	srv, ledger, del := newTestServer(t)
	ledger.addSale(42, "finals")

	body := paymentBody("42", "finals")

	tests := []struct {
		name      string
		signature string
	}{
		{"no header", ""},
		{"garbage", "deadbeef"},
		{"other secret", razorpay.SignWebhookBody(body, "wrong_secret")},
		{"other body", razorpay.SignWebhookBody([]byte(`{}`), testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(t, srv, body, tt.signature)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeResponse(t, rec)
			if resp["status"] != "failure" || resp["reason"] != "invalid signature" {
				t.Errorf("response = %v", resp)
			}
		})
	}

	// Неподписанные запросы не должны доходить до книги продаж
	sale, _ := ledger.GetSale(context.Background(), 42, "finals")
	if sale.Paid {
		t.Error("sale mutated by unsigned request")
	}
	if del.deliveries() != 0 {
		t.Errorf("deliveries = %d, want 0", del.deliveries())
	}
}

func TestWebhook_PayloadDefects(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		wantReason string
	}{
		{"missing entity", []byte(`{"event":"x","payload":{}}`), "missing entity"},
		{"missing identity", []byte(`{"payload":{"payment":{"entity":{"id":"pay_1","notes":{}}}}}`), "missing identity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t)
			rec := postWebhook(t, srv, tt.body, razorpay.SignWebhookBody(tt.body, testSecret))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if resp["status"] != "failure" || resp["reason"] != tt.wantReason {
				t.Errorf("response = %v, want reason %q", resp, tt.wantReason)
			}
		})
	}
}

func TestWebhook_UnknownSaleAcknowledged(t *testing.T) {
	srv, _, del := newTestServer(t)

	body := paymentBody("42", "ghost")
	rec := postWebhook(t, srv, body, razorpay.SignWebhookBody(body, testSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp["status"] != "success" {
		t.Errorf(`status = %q, want "success"`, resp["status"])
	}
	if del.deliveries() != 0 {
		t.Errorf("deliveries = %d, want 0", del.deliveries())
	}
}

func TestWebhook_DuplicateAcknowledged(t *testing.T) {
	srv, ledger, del := newTestServer(t)
	ledger.addSale(42, "finals")

	body := paymentBody("42", "finals")
	sig := razorpay.SignWebhookBody(body, testSecret)

	first := postWebhook(t, srv, body, sig)
	second := postWebhook(t, srv, body, sig)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d; want 200, 200", first.Code, second.Code)
	}
	if del.deliveries() != 1 {
		t.Errorf("deliveries = %d, want 1", del.deliveries())
	}
}

func TestWebhook_StoreFailure(t *testing.T) {
	srv, ledger, _ := newTestServer(t)
	ledger.failure = errTestDown

	body := paymentBody("42", "finals")
	rec := postWebhook(t, srv, body, razorpay.SignWebhookBody(body, testSecret))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp["reason"] != "server error" {
		t.Errorf(`reason = %q, want "server error"`, resp["reason"])
	}
}

func TestHealthz_NoDB(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPaymentCallback(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/payment_callback?razorpay_payment_id=pay_1&razorpay_payment_link_status=paid", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
