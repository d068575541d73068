package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debtster-collector/internal/domain"
)

func newResponse(store *memStore, channel *stubChannel, intel *stubIntel, logs *stubResponseLogs) *ResponseService {
	outreach := newOutreach(store, channel, intel, &stubLogs{})
	return NewResponseService(
		store,
		logs,
		outreach,
		channel,
		intel,
		nil,
		testPolicy(),
		testLogger(),
	)
}

func seedOpenDebt(store *memStore, debtorID int64, invoice string, status domain.DebtStatus) int64 {
	return store.addDebt(&domain.Debt{
		DebtorID: debtorID, InvoiceNumber: invoice, Amount: 1_000_000, Currency: "IDR",
		DueDate: time.Now().Add(-72 * time.Hour), Status: status, IsActive: true,
	})
}

func TestHandleInbound_LogsAgainstEveryOpenDebt(t *testing.T) {
	store := newMemStore()
	channel := &stubChannel{}
	logs := &stubResponseLogs{}
	classification := domain.Classification{
		Intent:          domain.IntentQuestion,
		SuggestedAction: domain.ActionFollowUp,
		Confidence:      0.9,
	}
	svc := newResponse(store, channel, &stubIntel{classification: &classification}, logs)

	debtorID := seedDebtor(store)
	first := seedOpenDebt(store, debtorID, "INV-A", domain.StatusOverdue)
	second := seedOpenDebt(store, debtorID, "INV-B", domain.StatusPartiallyPaid)

	err := svc.HandleInbound(context.Background(), "0812-3456-7890", "Kapan jatuh tempo?")
	require.NoError(t, err)

	require.Len(t, logs.responses, 2)
	ids := map[int64]bool{logs.responses[0].DebtID: true, logs.responses[1].DebtID: true}
	assert.True(t, ids[first])
	assert.True(t, ids[second])
	assert.Equal(t, domain.IntentQuestion, logs.responses[0].Classification.Intent)

	// one generated reply went out
	require.Equal(t, 1, channel.sentCount())
	assert.Equal(t, "generated negotiation", channel.sent[0].Text)
}

func TestHandleInbound_UnknownSenderWritesNothing(t *testing.T) {
	store := newMemStore()
	channel := &stubChannel{}
	logs := &stubResponseLogs{}
	svc := newResponse(store, channel, &stubIntel{}, logs)

	err := svc.HandleInbound(context.Background(), "6289999999999", "halo")
	require.NoError(t, err)

	assert.Empty(t, logs.responses)
	assert.Zero(t, channel.sentCount())
}

func TestHandleInbound_UnparseablePhoneIsDropped(t *testing.T) {
	store := newMemStore()
	channel := &stubChannel{}
	logs := &stubResponseLogs{}
	svc := newResponse(store, channel, &stubIntel{}, logs)

	err := svc.HandleInbound(context.Background(), "???", "halo")
	require.NoError(t, err)
	assert.Empty(t, logs.responses)
}

func TestHandleInbound_ClassifierFailureUsesFallback(t *testing.T) {
	store := newMemStore()
	channel := &stubChannel{}
	logs := &stubResponseLogs{}
	svc := newResponse(store, channel, &stubIntel{fail: errors.New("quota")}, logs)

	debtorID := seedDebtor(store)
	seedOpenDebt(store, debtorID, "INV-A", domain.StatusOverdue)

	err := svc.HandleInbound(context.Background(), "6281234567890", "saya keberatan dengan tagihan ini")
	require.NoError(t, err)

	require.Len(t, logs.responses, 1)
	assert.Equal(t, domain.IntentUnknown, logs.responses[0].Classification.Intent)
	assert.Equal(t, domain.ActionFollowUp, logs.responses[0].Classification.SuggestedAction)

	// generation also fails, so the template reply goes out
	require.Equal(t, 1, channel.sentCount())
	assert.Contains(t, channel.sent[0].Text, "INV-A")
}

func TestHandleInbound_PaymentPromiseGetsFixedReply(t *testing.T) {
	store := newMemStore()
	channel := &stubChannel{}
	logs := &stubResponseLogs{}
	classification := domain.Classification{
		Intent:          domain.IntentPaymentPromise,
		SuggestedAction: domain.ActionWait,
		Confidence:      0.95,
	}
	svc := newResponse(store, channel, &stubIntel{classification: &classification}, logs)

	debtorID := seedDebtor(store)
	seedOpenDebt(store, debtorID, "INV-A", domain.StatusOverdue)

	err := svc.HandleInbound(context.Background(), "6281234567890", "besok saya transfer")
	require.NoError(t, err)

	require.Equal(t, 1, channel.sentCount())
	assert.Contains(t, channel.sent[0].Text, "janji pembayaran")
}

func TestHandleInbound_EscalateActionAppliesDueRule(t *testing.T) {
	store := newMemStore()
	channel := &stubChannel{}
	logs := &stubResponseLogs{}
	classification := domain.Classification{
		Intent:          domain.IntentDispute,
		SuggestedAction: domain.ActionEscalate,
		Confidence:      0.9,
	}
	svc := newResponse(store, channel, &stubIntel{classification: &classification}, logs)

	debtorID := seedDebtor(store)

	exhausted := seedOpenDebt(store, debtorID, "INV-A", domain.StatusOverdue)
	store.debts[exhausted].ReminderCount = 5

	fresh := seedOpenDebt(store, debtorID, "INV-B", domain.StatusOverdue)
	store.debts[fresh].DueDate = time.Now().Add(-24 * time.Hour)
	store.debts[fresh].ReminderCount = 1

	err := svc.HandleInbound(context.Background(), "6281234567890", "saya tidak akan bayar")
	require.NoError(t, err)

	escalated, _ := store.GetByID(context.Background(), exhausted)
	assert.Equal(t, domain.StatusEscalated, escalated.Status)

	notEscalated, _ := store.GetByID(context.Background(), fresh)
	assert.Equal(t, domain.StatusOverdue, notEscalated.Status)
}
