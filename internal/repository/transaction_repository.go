package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

const transactionColumns = `id, account_id, kind, amount, status, code_id, balance_after, idempotency_key, created_at, updated_at`

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, account_id, kind, amount, status, code_id, balance_after, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()

	var balanceAfter interface{}
	if tx.BalanceAfter != nil {
		balanceAfter = tx.BalanceAfter.String()
	}

	var codeID interface{}
	if tx.CodeID != nil {
		codeID = *tx.CodeID
	}

	var idempotencyKey interface{}
	if tx.IdempotencyKey != nil {
		idempotencyKey = *tx.IdempotencyKey
	}

	_, err := r.db.Exec(
		query,
		tx.ID,
		tx.AccountID,
		string(tx.Kind),
		tx.Amount.String(),
		string(tx.Status),
		codeID,
		balanceAfter,
		idempotencyKey,
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				if pqErr.Constraint == "idx_transactions_idempotency_key" {
					r.logger.Warn("Duplicate idempotency key", "idempotency_key", tx.IdempotencyKey)
					return errors.ErrDuplicateTransaction
				}
			}
		}
		r.logger.Error("Failed to create transaction",
			"account_id", tx.AccountID,
			"kind", tx.Kind,
			"amount", tx.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "kind", tx.Kind, "status", tx.Status)
	return nil
}

func (r *transactionRepository) GetTransactionByID(id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanTransaction(r.db.QueryRow(query, id))
}

func (r *transactionRepository) GetTransactionByIdempotencyKey(key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	return r.scanTransaction(r.db.QueryRow(query, key))
}

func (r *transactionRepository) scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	tx, err := scanTransactionFields(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction", "error", err)
		return nil, toInternalError("failed to get transaction", err)
	}
	return tx, nil
}

type scanFunc func(dest ...interface{}) error

func scanTransactionFields(scan scanFunc) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var kind, status, amountStr string
	var codeID, idempotencyKey sql.NullString
	var balanceAfter sql.NullString

	err := scan(
		&transaction.ID,
		&transaction.AccountID,
		&kind,
		&amountStr,
		&status,
		&codeID,
		&balanceAfter,
		&idempotencyKey,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	transaction.Kind = domain.TransactionKind(kind)
	transaction.Status = domain.TransactionStatus(status)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	transaction.Amount = amount

	if balanceAfter.Valid {
		value, err := decimal.NewFromString(balanceAfter.String)
		if err != nil {
			return nil, err
		}
		transaction.BalanceAfter = &value
	}

	if codeID.Valid {
		id, err := uuid.Parse(codeID.String)
		if err != nil {
			return nil, err
		}
		transaction.CodeID = &id
	}

	if idempotencyKey.Valid {
		key := idempotencyKey.String
		transaction.IdempotencyKey = &key
	}

	return &transaction, nil
}

func (r *transactionRepository) UpdateTransactionStatus(id uuid.UUID, status domain.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = 'pending'`

	result, err := r.db.Exec(query, string(status), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update transaction status",
			"transaction_id", id, "status", status, "error", err)
		return toInternalError("failed to update transaction status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return toInternalError("failed to get rows affected", err)
	}

	// Status is monotonic: only pending rows transition.
	if rowsAffected == 0 {
		r.logger.Warn("Transaction not pending, status unchanged", "transaction_id", id, "status", status)
		return errors.ErrTransactionAlreadyProcessed
	}

	r.logger.Info("Transaction status updated", "transaction_id", id, "status", status)
	return nil
}

func (r *transactionRepository) CompleteTransaction(id uuid.UUID, balanceAfter decimal.Decimal) error {
	query := `
		UPDATE transactions
		SET status = 'completed', balance_after = $1, updated_at = $2
		WHERE id = $3 AND status = 'pending'
	`

	result, err := r.db.Exec(query, balanceAfter.String(), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to complete transaction", "transaction_id", id, "error", err)
		return toInternalError("failed to complete transaction", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return toInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("Transaction not pending, cannot complete", "transaction_id", id)
		return errors.ErrTransactionAlreadyProcessed
	}

	r.logger.Info("Transaction completed", "transaction_id", id, "balance_after", balanceAfter)
	return nil
}

func (r *transactionRepository) ListTransactionsByAccount(accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, accountID, limit)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, toInternalError("failed to list transactions", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransactionFields(rows.Scan)
		if err != nil {
			return nil, toInternalError("failed to scan transaction", err)
		}
		transactions = append(transactions, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, toInternalError("failed to iterate transactions", err)
	}

	return transactions, nil
}

func toInternalError(message string, err error) *errors.AppError {
	return errors.NewAppError(errors.InternalError, message).WithDetails(err.Error())
}
