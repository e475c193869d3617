package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput                ErrorCode = "invalid_input"
	InvalidAmount               ErrorCode = "invalid_amount"
	InsufficientBalance         ErrorCode = "insufficient_balance"
	AccountNotFound             ErrorCode = "account_not_found"
	DuplicateAccount            ErrorCode = "duplicate_account"
	TransactionNotFound         ErrorCode = "transaction_not_found"
	TransactionAlreadyProcessed ErrorCode = "transaction_already_processed"
	DuplicateTransaction        ErrorCode = "duplicate_transaction"
	CodeExpired                 ErrorCode = "code_expired"
	CodeMismatch                ErrorCode = "code_mismatch"
	CodeNotFound                ErrorCode = "code_not_found"
	ResendCooldown              ErrorCode = "resend_cooldown"
	InvalidSignature            ErrorCode = "invalid_signature"
	CannotBeginTransaction      ErrorCode = "cannot_begin_transaction"
	InternalError               ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps the stable error code to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount,
		CodeExpired, CodeMismatch, CodeNotFound, InvalidSignature:
		return http.StatusBadRequest
	case InsufficientBalance:
		return http.StatusUnprocessableEntity
	case AccountNotFound, TransactionNotFound:
		return http.StatusNotFound
	case DuplicateAccount, DuplicateTransaction, TransactionAlreadyProcessed:
		return http.StatusConflict
	case ResendCooldown:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound             = NewAppError(AccountNotFound, "account not found")
	ErrDuplicateAccount            = NewAppError(DuplicateAccount, "account already exists")
	ErrTransactionNotFound         = NewAppError(TransactionNotFound, "transaction not found")
	ErrTransactionAlreadyProcessed = NewAppError(TransactionAlreadyProcessed, "transaction already processed")
	ErrDuplicateTransaction        = NewAppError(DuplicateTransaction, "transaction already processed")
	ErrInvalidAmount               = NewAppError(InvalidAmount, "invalid amount")
	ErrInsufficientBalance         = NewAppError(InsufficientBalance, "insufficient balance")
	ErrCodeExpired                 = NewAppError(CodeExpired, "OTP expired")
	ErrCodeMismatch                = NewAppError(CodeMismatch, "invalid OTP code")
	ErrCodeNotFound                = NewAppError(CodeNotFound, "no OTP found, request a new code")
	ErrInvalidSignature            = NewAppError(InvalidSignature, "invalid webhook signature")
	ErrCannotBeginTransaction      = NewAppError(CannotBeginTransaction, "cannot begin transaction from within a transaction")
)
