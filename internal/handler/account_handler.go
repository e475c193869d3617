package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
	"growthfund/internal/service"
)

type AccountHandler struct {
	accountService     *service.AccountService
	transactionService *service.TransactionService
	defaultRate        decimal.Decimal
}

func NewAccountHandler(
	accountService *service.AccountService,
	transactionService *service.TransactionService,
	defaultRate decimal.Decimal,
) *AccountHandler {
	return &AccountHandler{
		accountService:     accountService,
		transactionService: transactionService,
		defaultRate:        defaultRate,
	}
}

type CreateAccountRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type AccountResponse struct {
	AccountID      string `json:"account_id"`
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Balance        string `json:"balance"`
	InterestEarned string `json:"interest_earned"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:      account.ID.String(),
		UserID:         account.UserID.String(),
		Email:          account.Email,
		Balance:        account.Balance.String(),
		InterestEarned: account.InterestEarned.String(),
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid user_id format"))
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), userID, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	accountID, err := uuid.Parse(vars["account_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id format"))
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

type TransactionResponse struct {
	TransactionID string  `json:"transaction_id"`
	Kind          string  `json:"type"`
	Amount        string  `json:"amount"`
	Status        string  `json:"status"`
	BalanceAfter  *string `json:"balance_after,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID: tx.ID.String(),
		Kind:          string(tx.Kind),
		Amount:        tx.Amount.String(),
		Status:        string(tx.Status),
		CreatedAt:     tx.CreatedAt.UTC().Format(time.RFC3339),
	}
	if tx.BalanceAfter != nil {
		after := tx.BalanceAfter.String()
		resp.BalanceAfter = &after
	}
	return resp
}

func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	accountID, err := uuid.Parse(vars["account_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id format"))
		return
	}

	transactions, err := h.transactionService.History(r.Context(), accountID, 50)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, toTransactionResponse(&transactions[i]))
	}

	writeJSON(w, http.StatusOK, responses)
}

type RateResponse struct {
	Rate string `json:"rate"`
}

type UpdateRateRequest struct {
	Rate      string `json:"rate"`
	UpdatedBy string `json:"updated_by"`
}

func (h *AccountHandler) GetInterestRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.accountService.GetDailyRate(r.Context(), h.defaultRate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RateResponse{Rate: rate.String()})
}

func (h *AccountHandler) UpdateInterestRate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid rate format"))
		return
	}

	if err := h.accountService.SetDailyRate(r.Context(), rate, req.UpdatedBy); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RateResponse{Rate: rate.String()})
}
