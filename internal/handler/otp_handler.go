package handler

import (
	"encoding/json"
	"net/http"

	"growthfund/internal/domain"
	"growthfund/internal/errors"
	"growthfund/internal/service"
)

type OTPHandler struct {
	otpService *service.OTPService
}

func NewOTPHandler(otpService *service.OTPService) *OTPHandler {
	return &OTPHandler{otpService: otpService}
}

type SendOTPRequest struct {
	Email    string `json:"email"`
	Type     string `json:"type"`
	UserName string `json:"user_name,omitempty"`
}

type SendOTPResponse struct {
	Success          bool `json:"success"`
	ExpiresInSeconds int  `json:"expires_in_seconds"`
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	_, err := h.otpService.Issue(r.Context(), req.Email, domain.OTPPurpose(req.Type), req.UserName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SendOTPResponse{
		Success:          true,
		ExpiresInSeconds: int(h.otpService.TTL().Seconds()),
	})
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

type VerifyOTPResponse struct {
	Success bool `json:"success"`
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	result, err := h.otpService.Verify(r.Context(), req.Email, domain.OTPPurpose(req.Type), req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch result {
	case domain.VerificationValid:
		writeJSON(w, http.StatusOK, VerifyOTPResponse{Success: true})
	case domain.VerificationExpired:
		writeError(w, errors.ErrCodeExpired)
	case domain.VerificationMismatch:
		writeError(w, errors.ErrCodeMismatch)
	default:
		writeError(w, errors.ErrCodeNotFound)
	}
}
