package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindInterest   TransactionKind = "interest"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindInterest:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	AccountID      uuid.UUID         `json:"account_id"`
	Kind           TransactionKind   `json:"kind"`
	Amount         decimal.Decimal   `json:"amount"`
	Status         TransactionStatus `json:"status"`
	CodeID         *uuid.UUID        `json:"code_id,omitempty"`
	BalanceAfter   *decimal.Decimal  `json:"balance_after,omitempty"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type TransactionRepository interface {
	CreateTransaction(tx *Transaction) error
	GetTransactionByID(id uuid.UUID) (*Transaction, error)
	GetTransactionByIdempotencyKey(key string) (*Transaction, error)
	UpdateTransactionStatus(id uuid.UUID, status TransactionStatus) error
	// CompleteTransaction marks the record completed and snapshots the balance.
	CompleteTransaction(id uuid.UUID, balanceAfter decimal.Decimal) error
	ListTransactionsByAccount(accountID uuid.UUID, limit int) ([]Transaction, error)
}
