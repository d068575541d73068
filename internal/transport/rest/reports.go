package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) startReport(w http.ResponseWriter, r *http.Request) {
	reportID, err := h.reports.StartPortfolioReport(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}

	SuccessAccepted(w, "report queued", map[string]interface{}{
		"report_id": reportID,
	})
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.GetReports(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "", reports)
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")
	if reportID == "" {
		ErrorBadRequest(w, "invalid report id")
		return
	}

	report, err := h.reports.GetReport(r.Context(), reportID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "", report)
}
