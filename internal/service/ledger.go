// Package service implements the debt lifecycle: the ledger, the outreach
// orchestration and the inbound-response workflow.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
)

// DebtRepository is the ledger's view of debt storage.
type DebtRepository interface {
	Create(ctx context.Context, d *domain.Debt) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Debt, error)
	GetWithDebtor(ctx context.Context, id int64) (*repository.DebtWithDebtor, error)
	Update(ctx context.Context, d *domain.Debt) error
	AddPayment(ctx context.Context, p *domain.Payment) error
	ListDueForReminder(ctx context.Context, now time.Time) ([]repository.DebtWithDebtor, error)
	ListDueForEscalation(ctx context.Context, now time.Time, p domain.ReminderPolicy) ([]repository.DebtWithDebtor, error)
	ListOpenByPhone(ctx context.Context, phone string) ([]repository.DebtWithDebtor, error)
	ListPendingPastDue(ctx context.Context, now time.Time) ([]repository.DebtWithDebtor, error)
	ListActive(ctx context.Context) ([]repository.DebtWithDebtor, error)
	CountByStatus(ctx context.Context) (map[domain.DebtStatus]int, error)
	SoftDelete(ctx context.Context, id int64) error
}

// DebtorRepository is the ledger's view of debtor storage.
type DebtorRepository interface {
	Create(ctx context.Context, d *domain.Debtor) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Debtor, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Debtor, error)
	UpdateHistory(ctx context.Context, d *domain.Debtor) error
	SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error
}

type LedgerService struct {
	debts   DebtRepository
	debtors DebtorRepository

	policy     domain.ReminderPolicy
	thresholds domain.RatingThresholds

	locks *DebtLocks
	log   *zap.SugaredLogger
}

func NewLedgerService(
	debts DebtRepository,
	debtors DebtorRepository,
	policy domain.ReminderPolicy,
	thresholds domain.RatingThresholds,
	locks *DebtLocks,
	log *zap.SugaredLogger,
) *LedgerService {
	return &LedgerService{
		debts:      debts,
		debtors:    debtors,
		policy:     policy,
		thresholds: thresholds,
		locks:      locks,
		log:        log,
	}
}

// RegisterDebtor normalizes the phone and creates the debtor record.
func (s *LedgerService) RegisterDebtor(ctx context.Context, d *domain.Debtor) (int64, error) {
	phone, err := domain.NormalizePhone(d.Phone)
	if err != nil {
		return 0, err
	}
	d.Phone = phone

	if d.BusinessType == "" {
		d.BusinessType = domain.BusinessIndividual
	}
	d.CreditRating = domain.RatingUnknown
	d.IsActive = true

	id, err := s.debtors.Create(ctx, d)
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

// CreateDebt opens a new debt with status pending.
func (s *LedgerService) CreateDebt(ctx context.Context, d *domain.Debt) (int64, error) {
	if d.Amount <= 0 {
		return 0, fmt.Errorf("%w: debt amount must be positive", domain.ErrValidation)
	}
	if d.InvoiceNumber == "" {
		return 0, fmt.Errorf("%w: invoice number is required", domain.ErrValidation)
	}
	if _, err := s.debtors.GetByID(ctx, d.DebtorID); err != nil {
		return 0, err
	}

	d.Status = domain.StatusPending
	if d.Priority == "" {
		d.Priority = domain.PriorityMedium
	}
	if d.Currency == "" {
		d.Currency = "IDR"
	}
	d.IsActive = true

	id, err := s.debts.Create(ctx, d)
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

// RecordPayment appends a payment event, recomputes the debt's status and
// next reminder, and folds the payment into the debtor's history.
func (s *LedgerService) RecordPayment(
	ctx context.Context,
	debtID int64,
	amount float64,
	date time.Time,
	method domain.PaymentMethod,
	verifier *string,
) (*domain.Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", domain.ErrValidation)
	}
	if method == "" {
		method = domain.MethodBankTransfer
	}

	unlock := s.locks.Lock(debtID)
	defer unlock()

	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:          uuid.NewString(),
		DebtID:      debtID,
		Amount:      amount,
		PaymentDate: date,
		Method:      method,
		VerifiedBy:  verifier,
	}
	if err := s.debts.AddPayment(ctx, payment); err != nil {
		return nil, err
	}

	debt.Payments = append(debt.Payments, *payment)
	debt.Status = domain.Recompute(debt, time.Now())
	debt.NextReminderDate = domain.RecomputeNextReminder(debt, s.policy)

	if err := s.debts.Update(ctx, debt); err != nil {
		return nil, err
	}

	if err := s.updateDebtorHistory(ctx, debt, date); err != nil {
		// the payment itself is committed; a history failure is not fatal
		s.log.Errorw("update debtor history", "debt_id", debtID, "error", err)
	}

	s.log.Infow("payment recorded",
		"debt_id", debtID,
		"amount", amount,
		"status", debt.Status,
		"remaining", debt.RemainingBalance(),
	)
	return payment, nil
}

func (s *LedgerService) updateDebtorHistory(ctx context.Context, debt *domain.Debt, paymentDate time.Time) error {
	debtor, err := s.debtors.GetByID(ctx, debt.DebtorID)
	if err != nil {
		return err
	}

	onTime := !paymentDate.After(debt.DueDate)
	var delayDays float64
	if !onTime {
		delayDays = paymentDate.Sub(debt.DueDate).Hours() / 24
	}

	debtor.History.Record(onTime, delayDays)
	debtor.CreditRating = debtor.History.Rating(s.thresholds)

	return s.debtors.UpdateHistory(ctx, debtor)
}

// WriteOff closes a debt as uncollectable and records the default against the
// debtor's history. Operator action only.
func (s *LedgerService) WriteOff(ctx context.Context, debtID int64) error {
	unlock := s.locks.Lock(debtID)
	defer unlock()

	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return err
	}
	if debt.Status.Terminal() {
		return fmt.Errorf("%w: debt %d is already closed", domain.ErrValidation, debtID)
	}

	debt.Status = domain.StatusWrittenOff
	debt.NextReminderDate = nil
	if err := s.debts.Update(ctx, debt); err != nil {
		return err
	}

	debtor, err := s.debtors.GetByID(ctx, debt.DebtorID)
	if err != nil {
		return err
	}
	debtor.History.DefaultedPayments++
	debtor.History.TotalPayments++
	debtor.CreditRating = debtor.History.Rating(s.thresholds)
	return s.debtors.UpdateHistory(ctx, debtor)
}

// Cancel closes a debt without prejudice to the debtor's history. Operator
// action only.
func (s *LedgerService) Cancel(ctx context.Context, debtID int64) error {
	unlock := s.locks.Lock(debtID)
	defer unlock()

	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return err
	}
	if debt.Status.Terminal() {
		return fmt.Errorf("%w: debt %d is already closed", domain.ErrValidation, debtID)
	}

	debt.Status = domain.StatusCancelled
	debt.NextReminderDate = nil
	return s.debts.Update(ctx, debt)
}

// SetBlacklisted flips the operator blacklist flag; outreach to blacklisted
// debtors is suppressed until cleared.
func (s *LedgerService) SetBlacklisted(ctx context.Context, debtorID int64, blacklisted bool) error {
	return s.debtors.SetBlacklisted(ctx, debtorID, blacklisted)
}

// GetDebt returns one debt with the joined debtor columns.
func (s *LedgerService) GetDebt(ctx context.Context, debtID int64) (*repository.DebtWithDebtor, error) {
	return s.debts.GetWithDebtor(ctx, debtID)
}

// GetDebtor returns one debtor record.
func (s *LedgerService) GetDebtor(ctx context.Context, debtorID int64) (*domain.Debtor, error) {
	return s.debtors.GetByID(ctx, debtorID)
}

// DeleteDebt soft-deletes a debt; it drops out of every sweep and listing.
func (s *LedgerService) DeleteDebt(ctx context.Context, debtID int64) error {
	return s.debts.SoftDelete(ctx, debtID)
}

// Policy exposes the reminder policy for dispatch-time re-validation.
func (s *LedgerService) Policy() domain.ReminderPolicy {
	return s.policy
}

// FindDueForReminder returns the debts due for a reminder right now.
func (s *LedgerService) FindDueForReminder(ctx context.Context, now time.Time) ([]repository.DebtWithDebtor, error) {
	return s.debts.ListDueForReminder(ctx, now)
}

// FindDueForEscalation returns the debts qualifying for escalation right now.
func (s *LedgerService) FindDueForEscalation(ctx context.Context, now time.Time) ([]repository.DebtWithDebtor, error) {
	return s.debts.ListDueForEscalation(ctx, now, s.policy)
}

// RecomputeStale refreshes stored statuses that drifted from the state
// machine (pending debts whose due date passed with no write since). Run by
// the daily sweep.
func (s *LedgerService) RecomputeStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.debts.ListPendingPastDue(ctx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range stale {
		debt := &stale[i].Debt

		unlock := s.locks.Lock(debt.ID)
		fresh, err := s.debts.GetByID(ctx, debt.ID)
		if err != nil {
			unlock()
			s.log.Errorw("recompute stale: reload", "debt_id", debt.ID, "error", err)
			continue
		}

		status := domain.Recompute(fresh, now)
		if status != fresh.Status {
			fresh.Status = status
			fresh.NextReminderDate = domain.RecomputeNextReminder(fresh, s.policy)
			if err := s.debts.Update(ctx, fresh); err != nil {
				unlock()
				s.log.Errorw("recompute stale: update", "debt_id", debt.ID, "error", err)
				continue
			}
			updated++
		}
		unlock()
	}
	return updated, nil
}

// Stats returns the active-portfolio breakdown by status.
func (s *LedgerService) Stats(ctx context.Context) (map[domain.DebtStatus]int, error) {
	return s.debts.CountByStatus(ctx)
}
