package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthfund/internal/errors"
)

func TestCreateAccountStartsAtZero(t *testing.T) {
	store := newMemoryStore()
	svc := NewAccountService(store, discardLogger())

	account, err := svc.CreateAccount(context.Background(), uuid.New(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())
	assert.True(t, account.InterestEarned.IsZero())
}

func TestCreateAccountValidatesInput(t *testing.T) {
	store := newMemoryStore()
	svc := NewAccountService(store, discardLogger())

	_, err := svc.CreateAccount(context.Background(), uuid.Nil, "alice@example.com")
	assert.Equal(t, errors.InvalidInput, appErrCode(t, err))

	_, err = svc.CreateAccount(context.Background(), uuid.New(), "not-an-email")
	assert.Equal(t, errors.InvalidInput, appErrCode(t, err))
}

func TestCreateAccountRejectsDuplicateUser(t *testing.T) {
	store := newMemoryStore()
	svc := NewAccountService(store, discardLogger())

	userID := uuid.New()
	_, err := svc.CreateAccount(context.Background(), userID, "alice@example.com")
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), userID, "alice2@example.com")
	assert.Equal(t, errors.DuplicateAccount, appErrCode(t, err))
}

func TestDailyRateFallback(t *testing.T) {
	store := newMemoryStore()
	svc := NewAccountService(store, discardLogger())

	fallback := decimal.RequireFromString("0.05")
	rate, err := svc.GetDailyRate(context.Background(), fallback)
	require.NoError(t, err)
	assert.True(t, rate.Equal(fallback))

	require.NoError(t, svc.SetDailyRate(context.Background(), decimal.RequireFromString("0.07"), "admin"))
	rate, err = svc.GetDailyRate(context.Background(), fallback)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.07")))

	err = svc.SetDailyRate(context.Background(), decimal.NewFromInt(-1), "admin")
	assert.Equal(t, errors.InvalidInput, appErrCode(t, err))
}
