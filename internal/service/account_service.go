package service

import (
	"context"
	"log/slog"
	"net/mail"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
	"growthfund/internal/repository"
)

type AccountService struct {
	store  repository.Storage
	logger *slog.Logger
}

func NewAccountService(store repository.Storage, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

// CreateAccount opens a zero-balance account for a registered user.
func (s *AccountService) CreateAccount(ctx context.Context, userID uuid.UUID, email string) (*domain.Account, error) {
	if userID == uuid.Nil {
		return nil, errors.NewAppError(errors.InvalidInput, "user id is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.NewAppError(errors.InvalidInput, "invalid email address")
	}

	account := &domain.Account{
		ID:             uuid.New(),
		UserID:         userID,
		Email:          email,
		Balance:        decimal.Zero,
		InterestRate:   decimal.Zero,
		InterestEarned: decimal.Zero,
	}

	if err := s.store.Account().CreateAccount(account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", account.ID, "user_id", userID)
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.store.Account().GetAccount(accountID)
}

// GetDailyRate reads the administrative rate setting.
func (s *AccountService) GetDailyRate(ctx context.Context, fallback decimal.Decimal) (decimal.Decimal, error) {
	rate, found, err := s.store.Settings().GetDailyRate()
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return fallback, nil
	}
	return rate, nil
}

// SetDailyRate updates the administrative rate setting.
func (s *AccountService) SetDailyRate(ctx context.Context, rate decimal.Decimal, updatedBy string) error {
	if rate.IsNegative() {
		return errors.NewAppError(errors.InvalidInput, "rate must not be negative")
	}
	return s.store.Settings().SetDailyRate(rate, updatedBy)
}
