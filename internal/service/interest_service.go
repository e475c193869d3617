package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/repository"
)

var oneHundred = decimal.NewFromInt(100)

// InterestService is the daily accrual batch job. An account is credited at
// most once per UTC calendar day; individual failures are skipped so one bad
// row cannot starve the rest of the run.
type InterestService struct {
	store       repository.Storage
	logger      *slog.Logger
	defaultRate decimal.Decimal
	now         func() time.Time
}

func NewInterestService(store repository.Storage, logger *slog.Logger, defaultRate decimal.Decimal) *InterestService {
	return &InterestService{
		store:       store,
		logger:      logger,
		defaultRate: defaultRate,
		now:         time.Now,
	}
}

type RunResult struct {
	Processed     int             `json:"processed"`
	TotalInterest decimal.Decimal `json:"total_interest_paid"`
	Rate          decimal.Decimal `json:"rate"`
}

// Run applies the configured daily rate to every eligible account.
func (s *InterestService) Run(ctx context.Context) (*RunResult, error) {
	rate, err := s.currentRate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	dayStart := startOfDayUTC(now)

	candidates, err := s.store.Account().ListAccrualCandidates(dayStart)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Rate: rate, TotalInterest: decimal.Zero}

	for _, accountID := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		interest, err := s.accrueOne(accountID, rate, dayStart, now)
		if err != nil {
			s.logger.Error("Interest accrual failed for account, skipping",
				"account_id", accountID, "error", err)
			continue
		}
		if interest.IsZero() {
			continue
		}

		result.Processed++
		result.TotalInterest = result.TotalInterest.Add(interest)
	}

	s.logger.Info("Interest run finished",
		"processed", result.Processed,
		"total_interest", result.TotalInterest,
		"rate", rate)
	return result, nil
}

// accrueOne credits a single account inside its own DB transaction. The
// already-accrued-today guard is re-checked under the row lock so two
// overlapping runs cannot double-apply.
func (s *InterestService) accrueOne(accountID uuid.UUID, rate decimal.Decimal, dayStart, now time.Time) (decimal.Decimal, error) {
	var interest decimal.Decimal

	err := s.store.WithTransaction(func(store repository.Storage) error {
		account, err := store.Account().GetAccountForUpdate(accountID)
		if err != nil {
			return err
		}

		if account.LastInterestAt != nil && !account.LastInterestAt.Before(dayStart) {
			interest = decimal.Zero
			return nil
		}
		if !account.Balance.IsPositive() {
			interest = decimal.Zero
			return nil
		}

		effectiveRate := rate
		if account.InterestRate.IsPositive() {
			effectiveRate = account.InterestRate
		}

		interest = account.Balance.Mul(effectiveRate).Div(oneHundred).Round(2)
		if interest.IsZero() {
			return nil
		}

		newBalance := account.Balance.Add(interest)
		earned := account.InterestEarned.Add(interest)

		if err := store.Account().ApplyInterest(accountID, newBalance, earned, now); err != nil {
			return err
		}

		transaction := &domain.Transaction{
			ID:           uuid.New(),
			AccountID:    accountID,
			Kind:         domain.KindInterest,
			Amount:       interest,
			Status:       domain.StatusCompleted,
			BalanceAfter: &newBalance,
		}
		return store.Transaction().CreateTransaction(transaction)
	})
	if err != nil {
		return decimal.Zero, err
	}

	return interest, nil
}

// currentRate reads the administrative setting, falling back to the
// configured default when no row exists.
func (s *InterestService) currentRate() (decimal.Decimal, error) {
	rate, found, err := s.store.Settings().GetDailyRate()
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return s.defaultRate, nil
	}
	return rate, nil
}

func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
