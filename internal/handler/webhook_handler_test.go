package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookSignatureValidation(t *testing.T) {
	h := NewWebhookHandler(nil, "whsec_test")
	body := []byte(`{"event_id":"evt_1","user_id":"u","amount":"10","type":"deposit"}`)

	assert.True(t, h.validSignature(body, sign("whsec_test", body)))
	assert.False(t, h.validSignature(body, sign("wrong-secret", body)))
	assert.False(t, h.validSignature(body, "not-hex"))
	assert.False(t, h.validSignature(body, ""))
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	h := NewWebhookHandler(nil, "")
	body := []byte(`{}`)

	assert.False(t, h.validSignature(body, sign("", body)))
}

func TestWebhookRejectsBadSignatureRequest(t *testing.T) {
	h := NewWebhookHandler(nil, "whsec_test")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-gateway", strings.NewReader(`{}`))
	req.Header.Set("X-Gateway-Signature", "deadbeef")
	rec := httptest.NewRecorder()

	h.HandlePaymentGateway(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookIgnoresNonDepositEvents(t *testing.T) {
	h := NewWebhookHandler(nil, "whsec_test")

	body := `{"event_id":"evt_2","user_id":"u","amount":"10","type":"payment_failed"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-gateway", strings.NewReader(body))
	req.Header.Set("X-Gateway-Signature", sign("whsec_test", []byte(body)))
	rec := httptest.NewRecorder()

	h.HandlePaymentGateway(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
}
