package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"debtster-collector/internal/clients"
	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
)

// MessageChannel is the outbound messaging capability. Addresses are opaque
// to the core; Address converts a canonical phone into one.
type MessageChannel interface {
	Address(phone string) string
	Send(ctx context.Context, address, text string) (string, error)
	IsReachable(ctx context.Context, address string) bool
}

// TextIntelligence generates contact messages and classifies replies. Every
// call may fail; the orchestrator falls back to template content.
type TextIntelligence interface {
	GenerateReminder(ctx context.Context, debtorName string, debt *domain.Debt, level int) (string, error)
	GenerateConfirmation(ctx context.Context, debtorName string, debt *domain.Debt, p *domain.Payment) (string, error)
	GenerateEscalation(ctx context.Context, debtorName string, debt *domain.Debt, escType domain.EscalationType) (string, error)
	GenerateNegotiationReply(ctx context.Context, debtorName string, debts []domain.Debt, inbound string) (string, error)
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// ReminderLogRepository is the append-only outbound audit trail.
type ReminderLogRepository interface {
	Insert(ctx context.Context, l *domain.ReminderLog) error
	ListByDebt(ctx context.Context, debtID int64) ([]domain.ReminderLog, error)
}

// ReminderClaimer is the optional cross-instance dedup: the first instance to
// claim a debt sends, the others skip. Satisfied by the redis client.
type ReminderClaimer interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

// SendResult reports one outreach attempt. A refused send (terminal status,
// blacklist, lost claim) is Skipped with a Reason, not an error.
type SendResult struct {
	DebtID    int64
	Sent      bool
	Skipped   bool
	Reason    string
	MessageID string
}

// BulkCriteria filters the debt set for SendBulkReminders.
type BulkCriteria struct {
	Statuses       []domain.DebtStatus
	Priority       *domain.DebtPriority
	MinDaysOverdue int
}

// BulkResult aggregates per-debt outcomes of a bulk send.
type BulkResult struct {
	Total   int
	Sent    int
	Skipped int
	Failed  int
}

type OutreachService struct {
	debts   DebtRepository
	logs    ReminderLogRepository
	channel MessageChannel
	intel   TextIntelligence
	tmpl    *clients.TemplateIntelligence
	events  *clients.EventNotifier

	claims   ReminderClaimer
	claimTTL time.Duration

	policy domain.ReminderPolicy
	delay  time.Duration

	locks *DebtLocks
	log   *zap.SugaredLogger
}

func NewOutreachService(
	debts DebtRepository,
	logs ReminderLogRepository,
	channel MessageChannel,
	intel TextIntelligence,
	events *clients.EventNotifier,
	policy domain.ReminderPolicy,
	delay time.Duration,
	locks *DebtLocks,
	log *zap.SugaredLogger,
) *OutreachService {
	return &OutreachService{
		debts:   debts,
		logs:    logs,
		channel: channel,
		intel:   intel,
		tmpl:    clients.NewTemplateIntelligence(),
		events:  events,
		policy:  policy,
		delay:   delay,
		locks:   locks,
		log:     log,
	}
}

// WithReminderClaims enables the redis SET NX claim used when more than one
// instance runs against the same database.
func (s *OutreachService) WithReminderClaims(claims ReminderClaimer, ttl time.Duration) *OutreachService {
	s.claims = claims
	s.claimTTL = ttl
	return s
}

// SendReminder generates and sends one reminder at the given tone level and
// commits the reminder counters on success. Terminal, escalated and
// blacklisted debts are refused without error.
func (s *OutreachService) SendReminder(ctx context.Context, debtID int64, level int) (*SendResult, error) {
	dw, err := s.debts.GetWithDebtor(ctx, debtID)
	if err != nil {
		return nil, err
	}

	if skip := s.refusalReason(dw); skip != "" {
		s.log.Debugw("reminder skipped", "debt_id", debtID, "reason", skip)
		return &SendResult{DebtID: debtID, Skipped: true, Reason: skip}, nil
	}

	if s.claims != nil && s.claimTTL > 0 {
		key := fmt.Sprintf("reminder_claim:%d", debtID)
		ok, err := s.claims.SetNX(ctx, key, time.Now().Unix(), s.claimTTL)
		if err != nil {
			s.log.Warnw("reminder claim failed, proceeding unclaimed", "debt_id", debtID, "error", err)
		} else if !ok {
			return &SendResult{DebtID: debtID, Skipped: true, Reason: "claimed by another instance"}, nil
		}
	}

	if level < 1 {
		level = 1
	}
	if level > domain.MaxReminderLevel {
		level = domain.MaxReminderLevel
	}

	// Message generation and the channel call happen before the lock is
	// taken: only the counter commit needs exclusion.
	text := s.reminderText(ctx, dw, level)
	messageID, sendErr := s.send(ctx, dw.DebtorPhone, text)

	s.appendLog(ctx, debtID, level, text, sendErr)

	if sendErr != nil {
		s.events.NotifyReminderSent(ctx, &dw.Debt, level, domain.ReminderFailed)
		return &SendResult{DebtID: debtID, Reason: sendErr.Error()},
			fmt.Errorf("send reminder for debt %d: %w", debtID, sendErr)
	}

	unlock := s.locks.Lock(debtID)
	defer unlock()

	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	debt.ReminderCount++
	debt.LastReminderDate = &now
	debt.LastReminderLevel = level
	debt.NextReminderDate = domain.RecomputeNextReminder(debt, s.policy)

	if err := s.debts.Update(ctx, debt); err != nil {
		return nil, fmt.Errorf("commit reminder state for debt %d: %w", debtID, err)
	}

	s.events.NotifyReminderSent(ctx, debt, level, domain.ReminderSent)
	s.log.Infow("reminder sent",
		"debt_id", debtID,
		"level", level,
		"count", debt.ReminderCount,
		"message_id", messageID,
	)
	return &SendResult{DebtID: debtID, Sent: true, MessageID: messageID}, nil
}

func (s *OutreachService) refusalReason(dw *repository.DebtWithDebtor) string {
	switch {
	case dw.Status.Terminal():
		return fmt.Sprintf("status %s is terminal", dw.Status)
	case dw.Status == domain.StatusEscalated:
		return "debt is escalated"
	case !dw.IsActive:
		return "debt is inactive"
	case dw.DebtorBlacklisted:
		return "debtor is blacklisted"
	default:
		return ""
	}
}

func (s *OutreachService) reminderText(ctx context.Context, dw *repository.DebtWithDebtor, level int) string {
	text, err := s.intel.GenerateReminder(ctx, dw.DebtorName, &dw.Debt, level)
	if err != nil {
		s.log.Warnw("reminder generation failed, using template", "debt_id", dw.ID, "error", err)
		text, _ = s.tmpl.GenerateReminder(ctx, dw.DebtorName, &dw.Debt, level)
	}
	return text
}

// send pushes one message through the channel with a short bounded backoff
// for transient failures.
func (s *OutreachService) send(ctx context.Context, phone, text string) (string, error) {
	address := s.channel.Address(phone)

	var messageID string
	backoff := retry.WithMaxRetries(2, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, err := s.channel.Send(ctx, address, text)
		if err != nil {
			return retry.RetryableError(err)
		}
		messageID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (s *OutreachService) appendLog(ctx context.Context, debtID int64, level int, text string, sendErr error) {
	entry := &domain.ReminderLog{
		ID:      uuid.NewString(),
		DebtID:  debtID,
		Level:   level,
		Message: text,
		Status:  domain.ReminderSent,
		SentAt:  time.Now(),
	}
	if sendErr != nil {
		entry.Status = domain.ReminderFailed
		msg := sendErr.Error()
		entry.Error = &msg
	}

	if err := s.logs.Insert(ctx, entry); err != nil {
		s.log.Errorw("append reminder log", "debt_id", debtID, "error", err)
	}
}

// SendPaymentConfirmation thanks the debtor for a recorded payment. It logs
// the attempt but never mutates debt state.
func (s *OutreachService) SendPaymentConfirmation(ctx context.Context, debtID int64, payment *domain.Payment) error {
	dw, err := s.debts.GetWithDebtor(ctx, debtID)
	if err != nil {
		return err
	}
	if dw.DebtorBlacklisted {
		return domain.ErrBlacklisted
	}

	text, err := s.intel.GenerateConfirmation(ctx, dw.DebtorName, &dw.Debt, payment)
	if err != nil {
		s.log.Warnw("confirmation generation failed, using template", "debt_id", debtID, "error", err)
		text, _ = s.tmpl.GenerateConfirmation(ctx, dw.DebtorName, &dw.Debt, payment)
	}

	_, sendErr := s.send(ctx, dw.DebtorPhone, text)
	s.appendLog(ctx, debtID, 0, text, sendErr)
	if sendErr != nil {
		return fmt.Errorf("send confirmation for debt %d: %w", debtID, sendErr)
	}
	return nil
}

// EscalateDebt transitions the debt to escalated, notifies the debtor and
// logs the attempt with the escalation sentinel level. Escalating an already
// escalated debt is a no-op; terminal debts are silently skipped. The status
// commit happens regardless of the message outcome so a channel failure
// cannot cause repeated escalations.
func (s *OutreachService) EscalateDebt(ctx context.Context, debtID int64, escType domain.EscalationType) error {
	dw, err := s.debts.GetWithDebtor(ctx, debtID)
	if err != nil {
		return err
	}
	if dw.Status == domain.StatusEscalated || dw.Status.Terminal() {
		return nil
	}

	text, genErr := s.intel.GenerateEscalation(ctx, dw.DebtorName, &dw.Debt, escType)
	if genErr != nil {
		s.log.Warnw("escalation generation failed, using template", "debt_id", debtID, "error", genErr)
		text, _ = s.tmpl.GenerateEscalation(ctx, dw.DebtorName, &dw.Debt, escType)
	}

	var sendErr error
	if dw.DebtorBlacklisted {
		sendErr = nil // state change still applies, message suppressed
	} else {
		_, sendErr = s.send(ctx, dw.DebtorPhone, text)
		s.appendLog(ctx, debtID, domain.EscalationLogLevel, text, sendErr)
	}

	unlock := s.locks.Lock(debtID)
	defer unlock()

	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return err
	}
	if debt.Status == domain.StatusEscalated || debt.Status.Terminal() {
		return nil
	}

	now := time.Now()
	debt.Status = domain.StatusEscalated
	debt.EscalationDate = &now
	debt.EscalationType = &escType
	debt.NextReminderDate = nil

	if err := s.debts.Update(ctx, debt); err != nil {
		return fmt.Errorf("commit escalation for debt %d: %w", debtID, err)
	}

	s.events.NotifyEscalation(ctx, debt, escType)
	s.log.Infow("debt escalated", "debt_id", debtID, "type", escType)

	if sendErr != nil {
		return fmt.Errorf("send escalation notice for debt %d: %w", debtID, sendErr)
	}
	return nil
}

// SendBulkReminders applies SendReminder across the filtered active debt set,
// sequentially and with the same inter-message delay as the scheduler. One
// debt's failure never aborts the batch.
func (s *OutreachService) SendBulkReminders(ctx context.Context, criteria BulkCriteria, level int) (*BulkResult, error) {
	all, err := s.debts.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var matched []repository.DebtWithDebtor
	for _, dw := range all {
		if !matchesCriteria(&dw, criteria, now) {
			continue
		}
		matched = append(matched, dw)
	}

	result := &BulkResult{Total: len(matched)}
	for i, dw := range matched {
		if i > 0 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				return result, err
			}
		}

		res, err := s.SendReminder(ctx, dw.ID, level)
		switch {
		case err != nil:
			result.Failed++
			s.log.Errorw("bulk reminder failed", "debt_id", dw.ID, "error", err)
		case res.Skipped:
			result.Skipped++
		default:
			result.Sent++
		}
	}
	return result, nil
}

func matchesCriteria(dw *repository.DebtWithDebtor, c BulkCriteria, now time.Time) bool {
	if !dw.Status.Open() {
		return false
	}
	if len(c.Statuses) > 0 {
		found := false
		for _, st := range c.Statuses {
			if dw.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.Priority != nil && dw.Priority != *c.Priority {
		return false
	}
	if c.MinDaysOverdue > 0 && dw.DaysOverdue(now) < c.MinDaysOverdue {
		return false
	}
	return true
}

// ReminderHistory exposes the audit trail for one debt.
func (s *OutreachService) ReminderHistory(ctx context.Context, debtID int64) ([]domain.ReminderLog, error) {
	return s.logs.ListByDebt(ctx, debtID)
}

// sleepCtx waits for d or until the context is cancelled. Sweeps use it so
// cancellation lands at the delay boundary, never mid-send.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
