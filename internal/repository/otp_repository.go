package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
)

type oneTimeCodeRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewOneTimeCodeRepository(db SQLExecutor, logger *slog.Logger) domain.OneTimeCodeRepository {
	return &oneTimeCodeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *oneTimeCodeRepository) CreateCode(code *domain.OneTimeCode) error {
	query := `
		INSERT INTO otp_codes (id, email, purpose, code, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	_, err := r.db.Exec(
		query,
		code.ID,
		code.Email,
		string(code.Purpose),
		code.Code,
		code.ExpiresAt,
		code.Verified,
		now,
	)

	if err != nil {
		r.logger.Error("Failed to store OTP code", "email", code.Email, "purpose", code.Purpose, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to store code").WithDetails(err.Error())
	}

	code.CreatedAt = now
	r.logger.Info("OTP code stored", "email", code.Email, "purpose", code.Purpose, "expires_at", code.ExpiresAt)
	return nil
}

func (r *oneTimeCodeRepository) LatestUnverified(email string, purpose domain.OTPPurpose) (*domain.OneTimeCode, error) {
	query := `
		SELECT id, email, purpose, code, expires_at, verified, created_at
		FROM otp_codes
		WHERE email = $1 AND purpose = $2 AND verified = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`

	var code domain.OneTimeCode
	var purposeStr string

	err := r.db.QueryRow(query, email, string(purpose)).Scan(
		&code.ID,
		&code.Email,
		&purposeStr,
		&code.Code,
		&code.ExpiresAt,
		&code.Verified,
		&code.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to fetch OTP code", "email", email, "purpose", purpose, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to fetch code").WithDetails(err.Error())
	}

	code.Purpose = domain.OTPPurpose(purposeStr)
	return &code, nil
}

func (r *oneTimeCodeRepository) MarkVerified(id uuid.UUID) error {
	// Write-once: a verified row never flips back.
	query := `UPDATE otp_codes SET verified = TRUE WHERE id = $1 AND verified = FALSE`

	result, err := r.db.Exec(query, id)
	if err != nil {
		r.logger.Error("Failed to mark code verified", "code_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to mark code verified").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrCodeNotFound
	}

	return nil
}

func (r *oneTimeCodeRepository) DeleteCode(id uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM otp_codes WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete code", "code_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete code").WithDetails(err.Error())
	}
	return nil
}

func (r *oneTimeCodeRepository) DeleteUnverified(email string, purpose domain.OTPPurpose) error {
	_, err := r.db.Exec(
		`DELETE FROM otp_codes WHERE email = $1 AND purpose = $2 AND verified = FALSE`,
		email, string(purpose),
	)
	if err != nil {
		r.logger.Error("Failed to delete unverified codes", "email", email, "purpose", purpose, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete codes").WithDetails(err.Error())
	}
	return nil
}

func (r *oneTimeCodeRepository) DeleteOthersForEmail(email string, keep uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM otp_codes WHERE email = $1 AND id <> $2`, email, keep)
	if err != nil {
		r.logger.Error("Failed to purge other codes for email", "email", email, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to purge codes").WithDetails(err.Error())
	}
	return nil
}

func (r *oneTimeCodeRepository) PurgeExpired(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM otp_codes WHERE expires_at < $1`, before)
	if err != nil {
		r.logger.Error("Failed to purge expired codes", "error", err)
		return 0, errors.NewAppError(errors.InternalError, "failed to purge expired codes").WithDetails(err.Error())
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	return purged, nil
}
