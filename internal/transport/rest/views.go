package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func debtorView(d *domain.Debtor) map[string]interface{} {
	return map[string]interface{}{
		"id":            d.ID,
		"name":          d.Name,
		"phone":         d.Phone,
		"email":         d.Email,
		"company":       d.Company,
		"business_type": string(d.BusinessType),
		"credit_rating": string(d.CreditRating),
		"payment_history": map[string]interface{}{
			"total":              d.History.TotalPayments,
			"on_time":            d.History.OnTimePayments,
			"late":               d.History.LatePayments,
			"defaulted":          d.History.DefaultedPayments,
			"average_delay_days": d.History.AverageDelayDays,
		},
		"is_blacklisted": d.IsBlacklisted,
		"is_active":      d.IsActive,
	}
}

func debtView(d *repository.DebtWithDebtor) map[string]interface{} {
	now := time.Now()
	return map[string]interface{}{
		"id":                 d.ID,
		"debtor_id":          d.DebtorID,
		"debtor_name":        d.DebtorName,
		"debtor_phone":       d.DebtorPhone,
		"invoice_number":     d.InvoiceNumber,
		"amount":             d.Amount,
		"currency":           d.Currency,
		"total_paid":         d.TotalPaid(),
		"remaining_balance":  d.RemainingBalance(),
		"payment_percentage": d.PaymentPercentage(),
		"issue_date":         d.IssueDate,
		"due_date":           d.DueDate,
		"days_overdue":       d.DaysOverdue(now),
		"status":             string(d.Status),
		"priority":           string(d.Priority),
		"reminder_count":     d.ReminderCount,
		"last_reminder_at":   d.LastReminderDate,
		"next_reminder_at":   d.NextReminderDate,
		"escalated_at":       d.EscalationDate,
		"assigned_to":        d.AssignedTo,
		"tags":               d.Tags,
		"notes":              d.Notes,
	}
}

func debtViews(debts []repository.DebtWithDebtor) []map[string]interface{} {
	views := make([]map[string]interface{}, 0, len(debts))
	for i := range debts {
		views = append(views, debtView(&debts[i]))
	}
	return views
}

func reminderLogView(l domain.ReminderLog) map[string]interface{} {
	return map[string]interface{}{
		"id":      l.ID,
		"debt_id": l.DebtID,
		"level":   l.Level,
		"message": l.Message,
		"status":  string(l.Status),
		"error":   l.Error,
		"sent_at": l.SentAt,
	}
}

func responseLogView(l domain.DebtorResponseLog) map[string]interface{} {
	return map[string]interface{}{
		"id":          l.ID,
		"debt_id":     l.DebtID,
		"phone":       l.Phone,
		"message":     l.Message,
		"received_at": l.ReceivedAt,
		"classification": map[string]interface{}{
			"intent":             string(l.Classification.Intent),
			"sentiment":          l.Classification.Sentiment,
			"urgency":            l.Classification.Urgency,
			"payment_commitment": l.Classification.PaymentCommitment,
			"suggested_action":   string(l.Classification.SuggestedAction),
			"confidence":         l.Classification.Confidence,
			"summary":            l.Classification.Summary,
		},
	}
}
