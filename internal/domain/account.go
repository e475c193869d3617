package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID             uuid.UUID       `json:"account_id"`
	UserID         uuid.UUID       `json:"user_id"`
	Email          string          `json:"email"`
	Balance        decimal.Decimal `json:"balance"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	InterestEarned decimal.Decimal `json:"interest_earned"`
	LastInterestAt *time.Time      `json:"last_interest_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type AccountRepository interface {
	CreateAccount(account *Account) error
	GetAccount(id uuid.UUID) (*Account, error)
	GetAccountByUserID(userID uuid.UUID) (*Account, error)
	// GetAccountForUpdate locks the row until the surrounding DB transaction ends.
	GetAccountForUpdate(id uuid.UUID) (*Account, error)
	UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error
	// ApplyInterest updates balance, cumulative interest and the accrual timestamp together.
	ApplyInterest(id uuid.UUID, newBalance, interestEarned decimal.Decimal, accruedAt time.Time) error
	// ListAccrualCandidates returns ids of accounts with a positive balance whose
	// last accrual predates cutoff (or never happened).
	ListAccrualCandidates(cutoff time.Time) ([]uuid.UUID, error)
}
