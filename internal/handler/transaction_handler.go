package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
	"growthfund/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
	otpService         *service.OTPService
}

func NewTransactionHandler(transactionService *service.TransactionService, otpService *service.OTPService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		otpService:         otpService,
	}
}

type InitiateTransactionRequest struct {
	Amount string `json:"amount"`
	Type   string `json:"type"`
}

type InitiateTransactionResponse struct {
	TransactionID    string `json:"transaction_id"`
	Status           string `json:"status"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func (h *TransactionHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := accountIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req InitiateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	transaction, err := h.transactionService.Initiate(r.Context(), accountID, domain.TransactionKind(req.Type), amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, InitiateTransactionResponse{
		TransactionID:    transaction.ID.String(),
		Status:           string(transaction.Status),
		ExpiresInSeconds: int(h.otpService.TTL().Seconds()),
	})
}

type VerifyTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
	Code          string `json:"code"`
}

type VerifyTransactionResponse struct {
	Success    bool   `json:"success"`
	NewBalance string `json:"new_balance"`
	Status     string `json:"status"`
}

func (h *TransactionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := accountIDFromRequest(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req VerifyTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid transaction_id format"))
		return
	}
	if req.Code == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "code is required"))
		return
	}

	transaction, newBalance, err := h.transactionService.Verify(r.Context(), accountID, transactionID, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VerifyTransactionResponse{
		Success:    true,
		NewBalance: newBalance.String(),
		Status:     string(transaction.Status),
	})
}
