package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"growthfund/internal/domain"
)

// Mailer delivers one-time codes. Delivery is best-effort: callers log failures
// and carry on, they never fail the operation that issued the code.
type Mailer interface {
	SendCode(ctx context.Context, email, userName string, purpose domain.OTPPurpose, code string, ttl time.Duration) error
}

var purposeSubjects = map[domain.OTPPurpose]string{
	domain.PurposeRegistration:  "Registration",
	domain.PurposeLogin:         "Login",
	domain.PurposeDeposit:       "Deposit Confirmation",
	domain.PurposeWithdrawal:    "Withdrawal Confirmation",
	domain.PurposePasswordReset: "Password Reset",
}

// ResendMailer sends codes through the Resend email API.
type ResendMailer struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
	logger  *slog.Logger
}

func NewResendMailer(baseURL, apiKey, from string, logger *slog.Logger) *ResendMailer {
	return &ResendMailer{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) SendCode(ctx context.Context, email, userName string, purpose domain.OTPPurpose, code string, ttl time.Duration) error {
	label := purposeSubjects[purpose]

	greeting := "Hello"
	if userName != "" {
		greeting = "Hi " + userName
	}

	payload := resendRequest{
		From:    m.from,
		To:      []string{email},
		Subject: fmt.Sprintf("%s - Your OTP Code", label),
		HTML: fmt.Sprintf(
			"<p>%s,</p><p>Your verification code is:</p><h2>%s</h2><p>This code will expire in %d minutes.</p><p>Never share this code with anyone.</p>",
			greeting, code, int(ttl.Minutes()),
		),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, string(detail))
	}

	m.logger.Info("OTP email sent", "email", email, "purpose", purpose)
	return nil
}

// LogMailer is the fallback when no provider key is configured. It logs the
// code instead of delivering it, which keeps local development usable.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendCode(_ context.Context, email, _ string, purpose domain.OTPPurpose, code string, _ time.Duration) error {
	m.logger.Info("OTP code issued (email delivery disabled)", "email", email, "purpose", purpose, "code", code)
	return nil
}
