package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettingDailyInterestRate holds the daily accrual rate as a percentage,
// e.g. "0.05" means 0.05% per day.
const SettingDailyInterestRate = "daily_interest_rate"

type RateSetting struct {
	Name      string          `json:"name"`
	Value     decimal.Decimal `json:"value"`
	UpdatedBy string          `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type SettingsRepository interface {
	// GetDailyRate reports the configured rate; found is false when no row exists
	// and the caller should fall back to its default.
	GetDailyRate() (rate decimal.Decimal, found bool, err error)
	SetDailyRate(rate decimal.Decimal, updatedBy string) error
}
