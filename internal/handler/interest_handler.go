package handler

import (
	"net/http"

	"growthfund/internal/service"
)

type InterestHandler struct {
	interestService *service.InterestService
}

func NewInterestHandler(interestService *service.InterestService) *InterestHandler {
	return &InterestHandler{interestService: interestService}
}

type InterestRunResponse struct {
	Processed         int    `json:"processed"`
	TotalInterestPaid string `json:"total_interest_paid"`
	Rate              string `json:"rate"`
}

// Run triggers an accrual pass. The external scheduler owns the cadence; the
// day-boundary guard makes repeated triggers within one day harmless.
func (h *InterestHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.interestService.Run(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InterestRunResponse{
		Processed:         result.Processed,
		TotalInterestPaid: result.TotalInterest.String(),
		Rate:              result.Rate.String(),
	})
}
