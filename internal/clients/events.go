package clients

import (
	"context"

	ws "debtster-collector/internal/transport/websocket"

	"debtster-collector/internal/domain"
)

// EventNotifier fans collection events out to connected operators. Events for
// a debt with an assigned collector go to that collector only; unassigned
// events go to everyone.
type EventNotifier struct {
	hub *ws.Hub
}

func NewEventNotifier(hub *ws.Hub) *EventNotifier {
	return &EventNotifier{hub: hub}
}

func (n *EventNotifier) send(assignedTo *int64, message *ws.Message) {
	if n == nil || n.hub == nil {
		return
	}
	if assignedTo != nil {
		n.hub.Broadcast(*assignedTo, message)
		return
	}
	n.hub.BroadcastAll(message)
}

func (n *EventNotifier) NotifyReminderSent(ctx context.Context, debt *domain.Debt, level int, outcome domain.ReminderOutcome) {
	eventType := ws.EventReminderSent
	if outcome == domain.ReminderFailed {
		eventType = ws.EventReminderFailed
	}

	n.send(debt.AssignedTo, &ws.Message{
		Type: eventType,
		Data: map[string]interface{}{
			"debt_id": debt.ID,
			"invoice": debt.InvoiceNumber,
			"level":   level,
			"count":   debt.ReminderCount,
		},
	})
}

func (n *EventNotifier) NotifyEscalation(ctx context.Context, debt *domain.Debt, escType domain.EscalationType) {
	n.send(debt.AssignedTo, &ws.Message{
		Type: ws.EventDebtEscalated,
		Data: map[string]interface{}{
			"debt_id":         debt.ID,
			"invoice":         debt.InvoiceNumber,
			"escalation_type": string(escType),
		},
	})
}

func (n *EventNotifier) NotifyInboundResponse(ctx context.Context, debt *domain.Debt, c domain.Classification) {
	n.send(debt.AssignedTo, &ws.Message{
		Type: ws.EventInboundResponse,
		Data: map[string]interface{}{
			"debt_id":          debt.ID,
			"invoice":          debt.InvoiceNumber,
			"intent":           string(c.Intent),
			"suggested_action": string(c.SuggestedAction),
			"confidence":       c.Confidence,
			"summary":          c.Summary,
		},
	})
}

func (n *EventNotifier) NotifyReportReady(ctx context.Context, reportID, url, filename string) {
	n.send(nil, &ws.Message{
		Type: ws.EventReportReady,
		Data: map[string]interface{}{
			"id":       reportID,
			"url":      url,
			"filename": filename,
		},
	})
}
