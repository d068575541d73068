package rest

import (
	"encoding/json"
	"net/http"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/service"
)

type sendReminderRequest struct {
	Level int `json:"level"`
}

func (h *Handler) sendReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	var req sendReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}
	if req.Level < 1 || req.Level > domain.MaxReminderLevel {
		ErrorBadRequest(w, "level must be between 1 and 5")
		return
	}

	res, err := h.outreach.SendReminder(r.Context(), id, req.Level)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	Success(w, "reminder processed", map[string]interface{}{
		"debt_id":    res.DebtID,
		"sent":       res.Sent,
		"skipped":    res.Skipped,
		"reason":     res.Reason,
		"message_id": res.MessageID,
	})
}

type bulkRemindersRequest struct {
	Level          int      `json:"level"`
	Statuses       []string `json:"statuses"`
	Priority       *string  `json:"priority"`
	MinDaysOverdue int      `json:"min_days_overdue"`
}

func (h *Handler) bulkReminders(w http.ResponseWriter, r *http.Request) {
	var req bulkRemindersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}
	if req.Level < 1 || req.Level > domain.MaxReminderLevel {
		ErrorBadRequest(w, "level must be between 1 and 5")
		return
	}

	criteria := service.BulkCriteria{MinDaysOverdue: req.MinDaysOverdue}
	for _, st := range req.Statuses {
		criteria.Statuses = append(criteria.Statuses, domain.DebtStatus(st))
	}
	if req.Priority != nil {
		p := domain.DebtPriority(*req.Priority)
		criteria.Priority = &p
	}

	res, err := h.outreach.SendBulkReminders(r.Context(), criteria, req.Level)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	Success(w, "bulk reminders processed", map[string]interface{}{
		"total":   res.Total,
		"sent":    res.Sent,
		"skipped": res.Skipped,
		"failed":  res.Failed,
	})
}

type escalateRequest struct {
	Type string `json:"type"`
}

func (h *Handler) escalate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "debt_id")
	if !ok {
		ErrorBadRequest(w, "invalid debt id")
		return
	}

	var req escalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	escType := domain.EscalationType(req.Type)
	switch escType {
	case domain.EscalationLegal, domain.EscalationCollectionAgency, domain.EscalationWriteOff:
	default:
		ErrorBadRequest(w, "type must be legal, collection_agency or write_off")
		return
	}

	if err := h.outreach.EscalateDebt(r.Context(), id, escType); err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "debt escalated", map[string]interface{}{
		"debt_id": id,
		"type":    string(escType),
	})
}
