package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debtster-collector/internal/domain"
)

func newLedger(store *memStore) *LedgerService {
	return NewLedgerService(
		store,
		debtorFacade{store},
		testPolicy(),
		domain.DefaultRatingThresholds(),
		NewDebtLocks(),
		testLogger(),
	)
}

func seedDebtor(store *memStore) int64 {
	return store.addDebtor(&domain.Debtor{
		Name:         "Budi Santoso",
		Phone:        "6281234567890",
		BusinessType: domain.BusinessIndividual,
		CreditRating: domain.RatingUnknown,
		IsActive:     true,
	})
}

func seedDebt(store *memStore, debtorID int64, amount float64, dueDate time.Time) int64 {
	return store.addDebt(&domain.Debt{
		DebtorID:      debtorID,
		InvoiceNumber: "INV-001",
		Amount:        amount,
		Currency:      "IDR",
		DueDate:       dueDate,
		Status:        domain.StatusPending,
		Priority:      domain.PriorityMedium,
		IsActive:      true,
	})
}

func TestRegisterDebtor_NormalizesPhone(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)

	id, err := svc.RegisterDebtor(context.Background(), &domain.Debtor{
		Name:  "Budi",
		Phone: "0812-3456-7890",
	})
	require.NoError(t, err)

	debtor, err := store.GetDebtorByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "6281234567890", debtor.Phone)
	assert.Equal(t, domain.BusinessIndividual, debtor.BusinessType)
	assert.Equal(t, domain.RatingUnknown, debtor.CreditRating)
	assert.True(t, debtor.IsActive)
}

func TestRegisterDebtor_RejectsBadPhone(t *testing.T) {
	svc := newLedger(newMemStore())

	_, err := svc.RegisterDebtor(context.Background(), &domain.Debtor{Name: "X", Phone: "123"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateDebt_Defaults(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtorID := seedDebtor(store)

	id, err := svc.CreateDebt(context.Background(), &domain.Debt{
		DebtorID:      debtorID,
		InvoiceNumber: "INV-77",
		Amount:        500_000,
		DueDate:       time.Now().Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)

	debt, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, debt.Status)
	assert.Equal(t, domain.PriorityMedium, debt.Priority)
	assert.Equal(t, "IDR", debt.Currency)
	assert.True(t, debt.IsActive)
}

func TestCreateDebt_Validation(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtorID := seedDebtor(store)

	_, err := svc.CreateDebt(context.Background(), &domain.Debt{
		DebtorID: debtorID, InvoiceNumber: "INV-1", Amount: 0, DueDate: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateDebt(context.Background(), &domain.Debt{
		DebtorID: debtorID, Amount: 100, DueDate: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateDebt(context.Background(), &domain.Debt{
		DebtorID: 999, InvoiceNumber: "INV-1", Amount: 100, DueDate: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtorID := seedDebtor(store)
	due := time.Now().Add(-48 * time.Hour)
	debtID := seedDebt(store, debtorID, 1_000_000, due)

	_, err := svc.RecordPayment(context.Background(), debtID, 400_000, time.Now(), domain.MethodBankTransfer, nil)
	require.NoError(t, err)

	debt, _ := store.GetByID(context.Background(), debtID)
	assert.Equal(t, domain.StatusPartiallyPaid, debt.Status)
	assert.Equal(t, float64(600_000), debt.RemainingBalance())
	assert.NotNil(t, debt.NextReminderDate)

	_, err = svc.RecordPayment(context.Background(), debtID, 600_000, time.Now(), domain.MethodBankTransfer, nil)
	require.NoError(t, err)

	debt, _ = store.GetByID(context.Background(), debtID)
	assert.Equal(t, domain.StatusPaid, debt.Status)
	assert.Nil(t, debt.NextReminderDate)
}

func TestRecordPayment_RejectsNonPositiveAmount(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtID := seedDebt(store, seedDebtor(store), 100, time.Now())

	_, err := svc.RecordPayment(context.Background(), debtID, 0, time.Now(), domain.MethodCash, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.RecordPayment(context.Background(), debtID, -50, time.Now(), domain.MethodCash, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordPayment_UpdatesDebtorHistory(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtorID := seedDebtor(store)
	due := time.Now().Add(-10 * 24 * time.Hour)
	debtID := seedDebt(store, debtorID, 100, due)

	// paid 10 days after the due date
	_, err := svc.RecordPayment(context.Background(), debtID, 100, time.Now(), domain.MethodEWallet, nil)
	require.NoError(t, err)

	debtor, _ := store.GetDebtorByID(context.Background(), debtorID)
	assert.Equal(t, 1, debtor.History.TotalPayments)
	assert.Equal(t, 1, debtor.History.LatePayments)
	assert.InDelta(t, 10, debtor.History.AverageDelayDays, 0.1)
}

func TestRecordPayment_OnTimeCountsOnTime(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtorID := seedDebtor(store)
	due := time.Now().Add(5 * 24 * time.Hour)
	debtID := seedDebt(store, debtorID, 100, due)

	_, err := svc.RecordPayment(context.Background(), debtID, 100, time.Now(), domain.MethodCash, nil)
	require.NoError(t, err)

	debtor, _ := store.GetDebtorByID(context.Background(), debtorID)
	assert.Equal(t, 1, debtor.History.OnTimePayments)
	assert.Equal(t, float64(0), debtor.History.AverageDelayDays)
}

func TestWriteOff(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtorID := seedDebtor(store)
	debtID := seedDebt(store, debtorID, 100, time.Now().Add(-60*24*time.Hour))

	require.NoError(t, svc.WriteOff(context.Background(), debtID))

	debt, _ := store.GetByID(context.Background(), debtID)
	assert.Equal(t, domain.StatusWrittenOff, debt.Status)
	assert.Nil(t, debt.NextReminderDate)

	debtor, _ := store.GetDebtorByID(context.Background(), debtorID)
	assert.Equal(t, 1, debtor.History.DefaultedPayments)

	// closing twice is refused
	err := svc.WriteOff(context.Background(), debtID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCancel(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtID := seedDebt(store, seedDebtor(store), 100, time.Now())

	require.NoError(t, svc.Cancel(context.Background(), debtID))

	debt, _ := store.GetByID(context.Background(), debtID)
	assert.Equal(t, domain.StatusCancelled, debt.Status)

	// cancelling a closed debt is refused
	assert.ErrorIs(t, svc.Cancel(context.Background(), debtID), domain.ErrValidation)
}

func TestRecomputeStale(t *testing.T) {
	store := newMemStore()
	svc := newLedger(store)
	debtorID := seedDebtor(store)

	overdueID := seedDebt(store, debtorID, 100, time.Now().Add(-48*time.Hour))
	freshID := store.addDebt(&domain.Debt{
		DebtorID: debtorID, InvoiceNumber: "INV-002", Amount: 100, Currency: "IDR",
		DueDate: time.Now().Add(48 * time.Hour), Status: domain.StatusPending, IsActive: true,
	})

	updated, err := svc.RecomputeStale(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stale, _ := store.GetByID(context.Background(), overdueID)
	assert.Equal(t, domain.StatusOverdue, stale.Status)

	fresh, _ := store.GetByID(context.Background(), freshID)
	assert.Equal(t, domain.StatusPending, fresh.Status)
}
