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

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, user_id, email, balance, interest_rate, interest_earned, last_interest_at, created_at, updated_at`

func (r *accountRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, email, balance, interest_rate, interest_earned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	_, err := r.db.Exec(
		query,
		account.ID,
		account.UserID,
		account.Email,
		account.Balance.String(),
		account.InterestRate.String(),
		account.InterestEarned.String(),
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				r.logger.Warn("Duplicate account creation attempt", "account_id", account.ID, "email", account.Email)
				return errors.ErrDuplicateAccount
			}
		}
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(query, id)
}

func (r *accountRepository) GetAccountByUserID(userID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`
	return r.scanAccount(query, userID)
}

func (r *accountRepository) GetAccountForUpdate(id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.scanAccount(query, id)
}

func (r *accountRepository) scanAccount(query string, arg interface{}) (*domain.Account, error) {
	var account domain.Account
	var balanceStr, rateStr, earnedStr string
	var lastInterestAt sql.NullTime

	err := r.db.QueryRow(query, arg).Scan(
		&account.ID,
		&account.UserID,
		&account.Email,
		&balanceStr,
		&rateStr,
		&earnedStr,
		&lastInterestAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "arg", arg)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "arg", arg, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&account.Balance, balanceStr},
		{&account.InterestRate, rateStr},
		{&account.InterestEarned, earnedStr},
	} {
		value, err := decimal.NewFromString(field.src)
		if err != nil {
			r.logger.Error("Failed to parse account decimal", "account_id", account.ID, "value", field.src, "error", err)
			return nil, errors.NewAppError(errors.InternalError, "failed to parse account balance").WithDetails(err.Error())
		}
		*field.dst = value
	}

	if lastInterestAt.Valid {
		t := lastInterestAt.Time
		account.LastInterestAt = &t
	}

	return &account, nil
}

func (r *accountRepository) UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, newBalance.String(), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account balance updated", "account_id", id, "new_balance", newBalance)
	return nil
}

func (r *accountRepository) ApplyInterest(id uuid.UUID, newBalance, interestEarned decimal.Decimal, accruedAt time.Time) error {
	query := `
		UPDATE accounts
		SET balance = $1, interest_earned = $2, last_interest_at = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(query, newBalance.String(), interestEarned.String(), accruedAt, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to apply interest", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to apply interest").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to apply interest", "account_id", id)
		return errors.ErrAccountNotFound
	}

	return nil
}

func (r *accountRepository) ListAccrualCandidates(cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM accounts
		WHERE balance > 0 AND (last_interest_at IS NULL OR last_interest_at < $1)
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		r.logger.Error("Failed to list accrual candidates", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accrual candidates").WithDetails(err.Error())
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account id").WithDetails(err.Error())
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to iterate accrual candidates").WithDetails(err.Error())
	}

	return ids, nil
}
