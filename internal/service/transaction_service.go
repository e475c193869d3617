package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
	"growthfund/internal/repository"
)

// TransactionService orchestrates the OTP-gated deposit/withdrawal flow:
// initiate -> notify -> verify -> mutate -> finalize.
type TransactionService struct {
	store     repository.Storage
	otp       *OTPService
	logger    *slog.Logger
	minAmount decimal.Decimal
}

func NewTransactionService(
	store repository.Storage,
	otp *OTPService,
	logger *slog.Logger,
	minAmount decimal.Decimal,
) *TransactionService {
	return &TransactionService{
		store:     store,
		otp:       otp,
		logger:    logger,
		minAmount: minAmount,
	}
}

// applyBalanceDelta is the single code path that changes an account balance.
// It must run inside a DB transaction: the FOR UPDATE read serializes
// concurrent mutations on the same account.
func applyBalanceDelta(repo domain.AccountRepository, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	account, err := repo.GetAccountForUpdate(id)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, errors.ErrInsufficientBalance
	}

	if err := repo.UpdateAccountBalance(id, newBalance); err != nil {
		return decimal.Zero, err
	}

	return newBalance, nil
}

func purposeForKind(kind domain.TransactionKind) domain.OTPPurpose {
	if kind == domain.KindWithdrawal {
		return domain.PurposeWithdrawal
	}
	return domain.PurposeDeposit
}

// Initiate validates the request, issues a confirmation code to the account
// owner and persists a pending transaction referencing it. A withdrawal that
// exceeds the current balance is rejected here with no record persisted.
func (s *TransactionService) Initiate(ctx context.Context, accountID uuid.UUID, kind domain.TransactionKind, amount decimal.Decimal) (*domain.Transaction, error) {
	if kind != domain.KindDeposit && kind != domain.KindWithdrawal {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unsupported transaction type %q", kind)
	}

	if amount.IsNegative() || amount.IsZero() {
		return nil, errors.ErrInvalidAmount
	}
	if amount.LessThan(s.minAmount) {
		return nil, errors.NewAppErrorf(errors.InvalidAmount, "minimum amount is %s", s.minAmount.String())
	}

	account, err := s.store.Account().GetAccount(accountID)
	if err != nil {
		return nil, err
	}

	if kind == domain.KindWithdrawal && account.Balance.LessThan(amount) {
		s.logger.Warn("Withdrawal rejected at initiation",
			"account_id", accountID, "amount", amount, "balance", account.Balance)
		return nil, errors.ErrInsufficientBalance
	}

	code, err := s.otp.Issue(ctx, account.Email, purposeForKind(kind), "")
	if err != nil {
		return nil, err
	}

	transaction := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Status:    domain.StatusPending,
		CodeID:    &code.ID,
	}

	if err := s.store.Transaction().CreateTransaction(transaction); err != nil {
		// Without a pending record the code is orphaned, and leaving it would
		// hold the resend cool-down against an immediate retry.
		if delErr := s.store.Codes().DeleteCode(code.ID); delErr != nil {
			s.logger.Error("Failed to delete orphaned code", "code_id", code.ID, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("Transaction initiated",
		"transaction_id", transaction.ID, "account_id", accountID, "kind", kind, "amount", amount)
	return transaction, nil
}

// Verify consumes the confirmation code and, on success, applies the balance
// mutation and finalizes the record atomically. The funds check for
// withdrawals is repeated under the row lock: the balance may have moved
// between initiation and verification.
func (s *TransactionService) Verify(ctx context.Context, accountID, transactionID uuid.UUID, submittedCode string) (*domain.Transaction, decimal.Decimal, error) {
	transaction, err := s.store.Transaction().GetTransactionByID(transactionID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if transaction == nil || transaction.AccountID != accountID {
		return nil, decimal.Zero, errors.ErrTransactionNotFound
	}
	if transaction.Status != domain.StatusPending {
		return nil, decimal.Zero, errors.ErrTransactionAlreadyProcessed
	}

	account, err := s.store.Account().GetAccount(accountID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	result, err := s.otp.Verify(ctx, account.Email, purposeForKind(transaction.Kind), submittedCode)
	if err != nil {
		return nil, decimal.Zero, err
	}

	switch result {
	case domain.VerificationExpired:
		s.markFailed(transaction.ID)
		return nil, decimal.Zero, errors.ErrCodeExpired
	case domain.VerificationMismatch:
		// Retained for retry while the code is live.
		return nil, decimal.Zero, errors.ErrCodeMismatch
	case domain.VerificationNotFound:
		return nil, decimal.Zero, errors.ErrCodeNotFound
	}

	delta := transaction.Amount
	if transaction.Kind == domain.KindWithdrawal {
		delta = transaction.Amount.Neg()
	}

	var newBalance decimal.Decimal
	err = s.store.WithTransaction(func(store repository.Storage) error {
		balance, err := applyBalanceDelta(store.Account(), accountID, delta)
		if err != nil {
			return err
		}
		newBalance = balance
		return store.Transaction().CompleteTransaction(transaction.ID, balance)
	})

	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.InsufficientBalance {
			s.markFailed(transaction.ID)
		}
		s.logger.Error("Transaction completion failed", "transaction_id", transaction.ID, "error", err)
		return nil, decimal.Zero, err
	}

	transaction.Status = domain.StatusCompleted
	transaction.BalanceAfter = &newBalance

	s.logger.Info("Transaction completed",
		"transaction_id", transaction.ID, "kind", transaction.Kind, "new_balance", newBalance)
	return transaction, newBalance, nil
}

func (s *TransactionService) markFailed(id uuid.UUID) {
	if err := s.store.Transaction().UpdateTransactionStatus(id, domain.StatusFailed); err != nil {
		s.logger.Error("Failed to mark transaction failed", "transaction_id", id, "error", err)
	}
}

// RecordGatewayDeposit applies a deposit delivered by the payment gateway
// webhook. The gateway may redeliver events, so the ledger insert carries an
// idempotency key derived from the event id; a redelivered event returns the
// original transaction untouched.
func (s *TransactionService) RecordGatewayDeposit(ctx context.Context, eventID string, userID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error) {
	if eventID == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "event id is required")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, errors.ErrInvalidAmount
	}

	idempotencyKey := "gw:" + eventID

	existing, err := s.store.Transaction().GetTransactionByIdempotencyKey(idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Gateway event already applied", "event_id", eventID, "transaction_id", existing.ID)
		return existing, nil
	}

	account, err := s.store.Account().GetAccountByUserID(userID)
	if err != nil {
		return nil, err
	}

	transaction := &domain.Transaction{
		ID:             uuid.New(),
		AccountID:      account.ID,
		Kind:           domain.KindDeposit,
		Amount:         amount,
		Status:         domain.StatusCompleted,
		IdempotencyKey: &idempotencyKey,
	}

	err = s.store.WithTransaction(func(store repository.Storage) error {
		balance, err := applyBalanceDelta(store.Account(), account.ID, amount)
		if err != nil {
			return err
		}
		transaction.BalanceAfter = &balance
		return store.Transaction().CreateTransaction(transaction)
	})

	if err != nil {
		// A concurrent redelivery can win the unique-index race.
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.DuplicateTransaction {
			return s.store.Transaction().GetTransactionByIdempotencyKey(idempotencyKey)
		}
		return nil, err
	}

	s.logger.Info("Gateway deposit recorded",
		"event_id", eventID, "transaction_id", transaction.ID, "amount", amount)
	return transaction, nil
}

// History lists an account's ledger, newest first.
func (s *TransactionService) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	if _, err := s.store.Account().GetAccount(accountID); err != nil {
		return nil, err
	}

	return s.store.Transaction().ListTransactionsByAccount(accountID, limit)
}
