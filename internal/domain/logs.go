package domain

import "time"

type ReminderOutcome string

const (
	ReminderSent   ReminderOutcome = "sent"
	ReminderFailed ReminderOutcome = "failed"
)

// ReminderLog is an append-only audit entry, one per outbound attempt.
// Escalation messages use level EscalationLogLevel.
type ReminderLog struct {
	ID      string
	DebtID  int64
	Level   int
	Message string
	Status  ReminderOutcome
	Error   *string
	SentAt  time.Time
}

// DebtorResponseLog is an append-only audit entry for one classified inbound
// reply. A reply matching several open debts is logged against each of them.
type DebtorResponseLog struct {
	ID             string
	DebtID         int64
	Phone          string
	Message        string
	Classification Classification
	ReceivedAt     time.Time
}
