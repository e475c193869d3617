package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthfund/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResendMailerSendsCode(t *testing.T) {
	var captured resendRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/emails", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	mailer := NewResendMailer(server.URL, "test-key", "GrowthFund <noreply@example.com>", testLogger())

	err := mailer.SendCode(context.Background(), "user@example.com", "Alice", domain.PurposeDeposit, "042137", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, []string{"user@example.com"}, captured.To)
	assert.Equal(t, "Deposit Confirmation - Your OTP Code", captured.Subject)
	assert.Contains(t, captured.HTML, "042137")
	assert.Contains(t, captured.HTML, "Hi Alice")
	assert.Contains(t, captured.HTML, "10 minutes")
}

func TestResendMailerReportsProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer server.Close()

	mailer := NewResendMailer(server.URL, "test-key", "bad", testLogger())

	err := mailer.SendCode(context.Background(), "user@example.com", "", domain.PurposeLogin, "123456", 10*time.Minute)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "422"))
}

func TestLogMailerNeverFails(t *testing.T) {
	mailer := NewLogMailer(testLogger())

	err := mailer.SendCode(context.Background(), "user@example.com", "Alice", domain.PurposeWithdrawal, "654321", 10*time.Minute)
	assert.NoError(t, err)
}
