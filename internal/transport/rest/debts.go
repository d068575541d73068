package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"debtster-collector/internal/domain"
)

type createDebtRequest struct {
	DebtorID      int64    `json:"debtor_id"`
	InvoiceNumber string   `json:"invoice_number"`
	Amount        float64  `json:"amount"`
	Currency      string   `json:"currency"`
	IssueDate     string   `json:"issue_date"`
	DueDate       string   `json:"due_date"`
	Priority      string   `json:"priority"`
	AssignedTo    *int64   `json:"assigned_to"`
	Tags          []string `json:"tags"`
	Notes         *string  `json:"notes"`
}

const dateLayout = "2006-01-02"

func (h *Handler) createDebt(w http.ResponseWriter, r *http.Request) {
	var req createDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		ErrorBadRequest(w, "due_date must be YYYY-MM-DD")
		return
	}
	issueDate := time.Now()
	if req.IssueDate != "" {
		issueDate, err = time.Parse(dateLayout, req.IssueDate)
		if err != nil {
			ErrorBadRequest(w, "issue_date must be YYYY-MM-DD")
			return
		}
	}

	debt := &domain.Debt{
		DebtorID:      req.DebtorID,
		InvoiceNumber: req.InvoiceNumber,
		Amount:        req.Amount,
		Currency:      req.Currency,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Priority:      domain.DebtPriority(req.Priority),
		AssignedTo:    req.AssignedTo,
		Tags:          req.Tags,
		Notes:         req.Notes,
	}

	id, err := h.ledger.CreateDebt(r.Context(), debt)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	SuccessCreated(w, "debt created", map[string]interface{}{
		"id":      id,
		"status":  string(debt.Status),
		"invoice": debt.InvoiceNumber,
	})
}

func (h *Handler) getDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	debt, err := h.ledger.GetDebt(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "", debtView(debt))
}

func (h *Handler) deleteDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	if err := h.ledger.DeleteDebt(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "debt deleted", nil)
}

func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	if err := h.ledger.WriteOff(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "debt written off", nil)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	if err := h.ledger.Cancel(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "debt cancelled", nil)
}

func (h *Handler) listDue(w http.ResponseWriter, r *http.Request) {
	due, err := h.ledger.FindDueForReminder(r.Context(), time.Now())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "", debtViews(due))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.ledger.Stats(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}

	byStatus := make(map[string]int, len(counts))
	for st, n := range counts {
		byStatus[string(st)] = n
	}
	Success(w, "", map[string]interface{}{"by_status": byStatus})
}

func (h *Handler) reminderLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	logs, err := h.outreach.ReminderHistory(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	views := make([]map[string]interface{}, 0, len(logs))
	for _, l := range logs {
		views = append(views, reminderLogView(l))
	}
	Success(w, "", views)
}

func (h *Handler) responseLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	logs, err := h.responses.ResponseHistory(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	views := make([]map[string]interface{}, 0, len(logs))
	for _, l := range logs {
		views = append(views, responseLogView(l))
	}
	Success(w, "", views)
}
