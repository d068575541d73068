package rest

import (
	"encoding/json"
	"net/http"

	"debtster-collector/internal/domain"
)

type registerDebtorRequest struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        *string `json:"email"`
	Company      *string `json:"company"`
	Address      *string `json:"address"`
	BusinessType string  `json:"business_type"`
}

func (h *Handler) registerDebtor(w http.ResponseWriter, r *http.Request) {
	var req registerDebtorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}
	if req.Name == "" || req.Phone == "" {
		ErrorBadRequest(w, "name and phone are required")
		return
	}

	debtor := &domain.Debtor{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Company:      req.Company,
		Address:      req.Address,
		BusinessType: domain.BusinessType(req.BusinessType),
	}

	id, err := h.ledger.RegisterDebtor(r.Context(), debtor)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	SuccessCreated(w, "debtor registered", map[string]interface{}{
		"id":    id,
		"phone": debtor.Phone,
	})
}

func (h *Handler) getDebtor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debtor_id")
	if !ok {
		ErrorBadRequest(w, "invalid debtor id")
		return
	}

	debtor, err := h.ledger.GetDebtor(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "", debtorView(debtor))
}

type blacklistRequest struct {
	Blacklisted bool `json:"blacklisted"`
}

func (h *Handler) setBlacklist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debtor_id")
	if !ok {
		ErrorBadRequest(w, "invalid debtor id")
		return
	}

	var req blacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	if err := h.ledger.SetBlacklisted(r.Context(), id, req.Blacklisted); err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "blacklist updated", map[string]interface{}{
		"debtor_id":   id,
		"blacklisted": req.Blacklisted,
	})
}
