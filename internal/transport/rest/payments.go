package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/transport/auth"
)

type recordPaymentRequest struct {
	Amount      float64 `json:"amount"`
	PaymentDate string  `json:"payment_date"`
	Method      string  `json:"method"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		var err error
		paymentDate, err = time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			ErrorBadRequest(w, "payment_date must be YYYY-MM-DD")
			return
		}
	}

	var verifier *string
	if userID, err := auth.GetUserID(r.Context()); err == nil {
		v := "user:" + strconv.FormatInt(userID, 10)
		verifier = &v
	}

	payment, err := h.ledger.RecordPayment(r.Context(), id, req.Amount, paymentDate, domain.PaymentMethod(req.Method), verifier)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	// the confirmation message is best-effort; a channel failure does not
	// undo the recorded payment
	if err := h.outreach.SendPaymentConfirmation(r.Context(), id, payment); err != nil && !errors.Is(err, domain.ErrBlacklisted) {
		h.log.Warnw("payment confirmation failed", "debt_id", id, "error", err)
	}

	debt, err := h.ledger.GetDebt(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	SuccessCreated(w, "payment recorded", map[string]interface{}{
		"payment_id":        payment.ID,
		"debt_id":           id,
		"amount":            payment.Amount,
		"status":            string(debt.Status),
		"remaining_balance": debt.RemainingBalance(),
	})
}
