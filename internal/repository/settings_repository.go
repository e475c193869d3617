package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
)

type settingsRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewSettingsRepository(db SQLExecutor, logger *slog.Logger) domain.SettingsRepository {
	return &settingsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *settingsRepository) GetDailyRate() (decimal.Decimal, bool, error) {
	query := `SELECT value FROM settings WHERE name = $1`

	var valueStr string
	err := r.db.QueryRow(query, domain.SettingDailyInterestRate).Scan(&valueStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, false, nil
		}
		r.logger.Error("Failed to read interest rate setting", "error", err)
		return decimal.Zero, false, errors.NewAppError(errors.InternalError, "failed to read interest rate").WithDetails(err.Error())
	}

	rate, err := decimal.NewFromString(valueStr)
	if err != nil {
		r.logger.Error("Failed to parse interest rate setting", "value", valueStr, "error", err)
		return decimal.Zero, false, errors.NewAppError(errors.InternalError, "failed to parse interest rate").WithDetails(err.Error())
	}

	return rate, true, nil
}

func (r *settingsRepository) SetDailyRate(rate decimal.Decimal, updatedBy string) error {
	query := `
		INSERT INTO settings (name, value, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET value = $2, updated_by = $3, updated_at = $4
	`

	_, err := r.db.Exec(query, domain.SettingDailyInterestRate, rate.String(), updatedBy, time.Now())
	if err != nil {
		r.logger.Error("Failed to update interest rate setting", "rate", rate, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update interest rate").WithDetails(err.Error())
	}

	r.logger.Info("Interest rate setting updated", "rate", rate, "updated_by", updatedBy)
	return nil
}
