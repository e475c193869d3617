package domain

import (
	"time"

	"github.com/google/uuid"
)

type OTPPurpose string

const (
	PurposeRegistration  OTPPurpose = "registration"
	PurposeLogin         OTPPurpose = "login"
	PurposeDeposit       OTPPurpose = "deposit"
	PurposeWithdrawal    OTPPurpose = "withdrawal"
	PurposePasswordReset OTPPurpose = "password_reset"
)

func (p OTPPurpose) Valid() bool {
	switch p {
	case PurposeRegistration, PurposeLogin, PurposeDeposit, PurposeWithdrawal, PurposePasswordReset:
		return true
	}
	return false
}

// OneTimeCode is a 6-digit email verification code. At most one unverified code
// per (email, purpose) pair is considered live; issuing a new one replaces it.
type OneTimeCode struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Purpose   OTPPurpose `json:"purpose"`
	Code      string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Verified  bool       `json:"verified"`
	CreatedAt time.Time  `json:"created_at"`
}

func (c *OneTimeCode) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// VerificationResult classifies a code submission.
type VerificationResult int

const (
	VerificationNotFound VerificationResult = iota
	VerificationExpired
	VerificationMismatch
	VerificationValid
)

func (r VerificationResult) String() string {
	switch r {
	case VerificationValid:
		return "valid"
	case VerificationExpired:
		return "expired"
	case VerificationMismatch:
		return "mismatch"
	default:
		return "not_found"
	}
}

type OneTimeCodeRepository interface {
	CreateCode(code *OneTimeCode) error
	// LatestUnverified returns the most recently issued unverified code for the
	// pair, or nil when none exists.
	LatestUnverified(email string, purpose OTPPurpose) (*OneTimeCode, error)
	MarkVerified(id uuid.UUID) error
	DeleteCode(id uuid.UUID) error
	DeleteUnverified(email string, purpose OTPPurpose) error
	// DeleteOthersForEmail purges every code for the email except keep.
	DeleteOthersForEmail(email string, keep uuid.UUID) error
	PurgeExpired(before time.Time) (int64, error)
}
