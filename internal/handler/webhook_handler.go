package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"growthfund/internal/errors"
	"growthfund/internal/service"
)

// WebhookHandler receives payment-gateway callbacks after an out-of-band
// checkout completes. The gateway signs the raw body with a shared secret and
// may redeliver events; deduplication happens in the service layer.
type WebhookHandler struct {
	transactionService *service.TransactionService
	secret             []byte
}

func NewWebhookHandler(transactionService *service.TransactionService, secret string) *WebhookHandler {
	return &WebhookHandler{
		transactionService: transactionService,
		secret:             []byte(secret),
	}
}

type GatewayEvent struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	Amount  string `json:"amount"`
	Type    string `json:"type"`
}

type WebhookResponse struct {
	Received      bool   `json:"received"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func (h *WebhookHandler) HandlePaymentGateway(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "failed to read request body"))
		return
	}

	if !h.validSignature(body, r.Header.Get("X-Gateway-Signature")) {
		writeError(w, errors.ErrInvalidSignature)
		return
	}

	var event GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid event payload").WithDetails(err.Error()))
		return
	}

	if event.Type != "deposit" {
		// Only completed checkouts fund accounts; everything else is acknowledged
		// so the gateway stops redelivering.
		writeJSON(w, http.StatusOK, WebhookResponse{Received: true})
		return
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid user_id in event"))
		return
	}

	amount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount in event"))
		return
	}

	transaction, err := h.transactionService.RecordGatewayDeposit(r.Context(), event.EventID, userID, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Received:      true,
		TransactionID: transaction.ID.String(),
	})
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
