package domain

import "time"

type DebtStatus string

const (
	StatusPending       DebtStatus = "pending"
	StatusOverdue       DebtStatus = "overdue"
	StatusPartiallyPaid DebtStatus = "partially_paid"
	StatusPaid          DebtStatus = "paid"
	StatusCancelled     DebtStatus = "cancelled"
	StatusEscalated     DebtStatus = "escalated"
	StatusWrittenOff    DebtStatus = "written_off"
)

// Terminal reports whether no further reminders or automatic status changes
// apply. Escalated is deliberately not terminal: it is a hand-off track that a
// payment can still close.
func (s DebtStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled || s == StatusWrittenOff
}

// Open reports whether the debt still participates in reminder scheduling.
func (s DebtStatus) Open() bool {
	return s == StatusPending || s == StatusOverdue || s == StatusPartiallyPaid
}

type DebtPriority string

const (
	PriorityLow    DebtPriority = "low"
	PriorityMedium DebtPriority = "medium"
	PriorityHigh   DebtPriority = "high"
	PriorityUrgent DebtPriority = "urgent"
)

type EscalationType string

const (
	EscalationLegal            EscalationType = "legal"
	EscalationCollectionAgency EscalationType = "collection_agency"
	EscalationWriteOff         EscalationType = "write_off"
)

type Debt struct {
	ID            int64
	DebtorID      int64
	InvoiceNumber string // unique
	Amount        float64
	Currency      string
	IssueDate     time.Time
	DueDate       time.Time

	Payments []Payment

	Status   DebtStatus
	Priority DebtPriority

	ReminderCount     int
	LastReminderDate  *time.Time
	NextReminderDate  *time.Time
	LastReminderLevel int

	EscalationDate *time.Time
	EscalationType *EscalationType

	AssignedTo *int64
	Tags       []string
	Notes      *string

	IsActive bool

	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// TotalPaid sums the recorded payments.
func (d *Debt) TotalPaid() float64 {
	var sum float64
	for _, p := range d.Payments {
		sum += p.Amount
	}
	return sum
}

// RemainingBalance is amount minus payments, floored at zero. Over-payments
// are kept in the payment rows but never surface as a negative balance.
func (d *Debt) RemainingBalance() float64 {
	rem := d.Amount - d.TotalPaid()
	if rem < 0 {
		return 0
	}
	return rem
}

// DaysOverdue returns full days past the due date, zero if not yet due.
func (d *Debt) DaysOverdue(now time.Time) int {
	if !now.After(d.DueDate) {
		return 0
	}
	return int(now.Sub(d.DueDate).Hours() / 24)
}

// PaymentPercentage returns paid/amount in percent, capped at 100.
func (d *Debt) PaymentPercentage() float64 {
	if d.Amount <= 0 {
		return 0
	}
	pct := d.TotalPaid() / d.Amount * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Recompute derives the status from payments and the due date. It is pure and
// idempotent and must be applied on every mutation, never only at read time.
// Terminal statuses and escalation are left alone except that a full payment
// closes any non-terminal debt.
func Recompute(d *Debt, now time.Time) DebtStatus {
	paid := d.TotalPaid()

	switch {
	case d.Status.Terminal():
		return d.Status
	case paid >= d.Amount:
		return StatusPaid
	case d.Status == StatusEscalated:
		return StatusEscalated
	case paid > 0:
		return StatusPartiallyPaid
	case d.Status == StatusPending && now.After(d.DueDate):
		return StatusOverdue
	default:
		return d.Status
	}
}

// ReminderPolicy carries the scheduling knobs. Values come from configuration.
type ReminderPolicy struct {
	IntervalHours       int
	MaxAttempts         int
	EscalationAfterDays int
}

// MaxReminderLevel is the final-warning tone tier; EscalationLogLevel marks
// escalation entries in the reminder log so they sort apart from ordinary
// reminders.
const (
	MaxReminderLevel   = 5
	EscalationLogLevel = 99
)

// NextLevel picks the tone tier for the next reminder, capped at the final
// warning.
func (d *Debt) NextLevel() int {
	level := d.ReminderCount + 1
	if level > MaxReminderLevel {
		level = MaxReminderLevel
	}
	return level
}

// RecomputeNextReminder returns the next reminder timestamp, or nil when the
// status is terminal, the debt was escalated, or attempts are exhausted.
func RecomputeNextReminder(d *Debt, p ReminderPolicy) *time.Time {
	if d.Status.Terminal() || d.Status == StatusEscalated {
		return nil
	}
	if d.ReminderCount >= p.MaxAttempts {
		return nil
	}

	base := d.DueDate
	if d.LastReminderDate != nil {
		base = *d.LastReminderDate
	}
	next := base.Add(time.Duration(p.IntervalHours) * time.Hour)
	return &next
}

// DueForReminder re-validates a debt at dispatch time. The selection query
// applies the same rule; this guards against staleness between query and send.
func DueForReminder(d *Debt, now time.Time) bool {
	if !d.IsActive || !d.Status.Open() {
		return false
	}
	if d.NextReminderDate != nil {
		return !d.NextReminderDate.After(now)
	}
	// never reminded: first reminder once the due date has passed
	return d.ReminderCount == 0 && d.DueDate.Before(now)
}

// DueForEscalation reports whether a debt qualifies for escalation: either
// long enough overdue, or out of reminder attempts.
func DueForEscalation(d *Debt, now time.Time, p ReminderPolicy) bool {
	if !d.IsActive || !d.Status.Open() {
		return false
	}
	if d.ReminderCount >= p.MaxAttempts {
		return true
	}
	if d.Status == StatusOverdue || d.Status == StatusPartiallyPaid {
		return d.DaysOverdue(now) >= p.EscalationAfterDays
	}
	return false
}
