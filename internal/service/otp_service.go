package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
	"growthfund/internal/notify"
	"growthfund/internal/repository"
)

// OTPService issues and verifies one-time email codes. Only the most recently
// issued unverified code per (email, purpose) pair is ever live.
type OTPService struct {
	store          repository.Storage
	mailer         notify.Mailer
	logger         *slog.Logger
	ttl            time.Duration
	resendCooldown time.Duration
	now            func() time.Time
}

func NewOTPService(
	store repository.Storage,
	mailer notify.Mailer,
	logger *slog.Logger,
	ttl time.Duration,
	resendCooldown time.Duration,
) *OTPService {
	return &OTPService{
		store:          store,
		mailer:         mailer,
		logger:         logger,
		ttl:            ttl,
		resendCooldown: resendCooldown,
		now:            time.Now,
	}
}

// CanResend decides whether a replacement code may be issued. Pure function of
// the clock and the previous issuance time; no client-supplied state.
func CanResend(now, issuedAt time.Time, cooldown time.Duration) bool {
	return !now.Before(issuedAt.Add(cooldown))
}

// Issue generates a fresh 6-digit code for the pair, replacing any outstanding
// unverified codes, and dispatches it by email in the background.
func (s *OTPService) Issue(ctx context.Context, email string, purpose domain.OTPPurpose, userName string) (*domain.OneTimeCode, error) {
	if email == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "email is required")
	}
	if !purpose.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown OTP purpose %q", purpose)
	}

	now := s.now()

	previous, err := s.store.Codes().LatestUnverified(email, purpose)
	if err != nil {
		return nil, err
	}
	if previous != nil && !previous.ExpiredAt(now) && !CanResend(now, previous.CreatedAt, s.resendCooldown) {
		wait := previous.CreatedAt.Add(s.resendCooldown).Sub(now)
		s.logger.Warn("OTP resend refused during cool-down", "email", email, "purpose", purpose, "retry_in", wait)
		return nil, errors.NewAppErrorf(errors.ResendCooldown, "please wait %d seconds before requesting a new code", int(wait.Seconds())+1)
	}

	value, err := generateCode()
	if err != nil {
		s.logger.Error("Failed to generate OTP code", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to generate code").WithDetails(err.Error())
	}

	code := &domain.OneTimeCode{
		ID:        uuid.New(),
		Email:     email,
		Purpose:   purpose,
		Code:      value,
		ExpiresAt: now.Add(s.ttl),
	}

	err = s.store.WithTransaction(func(store repository.Storage) error {
		if err := store.Codes().DeleteUnverified(email, purpose); err != nil {
			return err
		}
		return store.Codes().CreateCode(code)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(email, userName, purpose, value)
	return code, nil
}

// dispatch sends the code without blocking the request. Failures are logged;
// the user can ask for a resend once the cool-down allows.
func (s *OTPService) dispatch(email, userName string, purpose domain.OTPPurpose, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.mailer.SendCode(ctx, email, userName, purpose, code, s.ttl); err != nil {
			s.logger.Error("OTP email delivery failed", "email", email, "purpose", purpose, "error", err)
		}
	}()
}

// Verify checks a submitted code against the latest unverified record for the
// pair. An expired record is purged; a mismatched one is retained for retry;
// a matching one is consumed and the email's other codes are purged.
func (s *OTPService) Verify(ctx context.Context, email string, purpose domain.OTPPurpose, submitted string) (domain.VerificationResult, error) {
	if !purpose.Valid() {
		return domain.VerificationNotFound, errors.NewAppErrorf(errors.InvalidInput, "unknown OTP purpose %q", purpose)
	}

	record, err := s.store.Codes().LatestUnverified(email, purpose)
	if err != nil {
		return domain.VerificationNotFound, err
	}
	if record == nil {
		return domain.VerificationNotFound, nil
	}

	if record.ExpiredAt(s.now()) {
		if err := s.store.Codes().DeleteCode(record.ID); err != nil {
			s.logger.Error("Failed to purge expired code", "code_id", record.ID, "error", err)
		}
		return domain.VerificationExpired, nil
	}

	if record.Code != submitted {
		return domain.VerificationMismatch, nil
	}

	err = s.store.WithTransaction(func(store repository.Storage) error {
		if err := store.Codes().MarkVerified(record.ID); err != nil {
			return err
		}
		return store.Codes().DeleteOthersForEmail(email, record.ID)
	})
	if err != nil {
		return domain.VerificationNotFound, err
	}

	s.logger.Info("OTP verified", "email", email, "purpose", purpose)
	return domain.VerificationValid, nil
}

// TTL reports the configured code lifetime.
func (s *OTPService) TTL() time.Duration {
	return s.ttl
}

// PurgeExpired removes every code past its expiry.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.Codes().PurgeExpired(s.now())
}

var codeSpace = big.NewInt(1_000_000)

// generateCode draws uniformly from 000000 to 999999; leading zeros are kept.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
