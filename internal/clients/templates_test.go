package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debtster-collector/internal/domain"
)

func testDebt() *domain.Debt {
	return &domain.Debt{
		InvoiceNumber: "INV-2024-001",
		Amount:        1_000_000,
		Currency:      "IDR",
		DueDate:       time.Now().Add(-5 * 24 * time.Hour),
		Status:        domain.StatusOverdue,
		IsActive:      true,
	}
}

func TestTemplateReminder_AllLevels(t *testing.T) {
	tmpl := NewTemplateIntelligence()
	debt := testDebt()

	previous := ""
	for level := 1; level <= domain.MaxReminderLevel; level++ {
		text, err := tmpl.GenerateReminder(context.Background(), "Budi", debt, level)
		require.NoError(t, err)
		assert.Contains(t, text, "Budi")
		assert.Contains(t, text, "INV-2024-001")
		assert.NotEqual(t, previous, text, "level %d should differ from level %d", level, level-1)
		previous = text
	}
}

func TestTemplateReminder_UnknownLevelFallsBackToFinal(t *testing.T) {
	tmpl := NewTemplateIntelligence()

	text, err := tmpl.GenerateReminder(context.Background(), "Budi", testDebt(), 42)
	require.NoError(t, err)
	assert.Contains(t, text, "PERINGATAN TERAKHIR")
}

func TestTemplateConfirmation(t *testing.T) {
	tmpl := NewTemplateIntelligence()

	t.Run("partial payment mentions remaining balance", func(t *testing.T) {
		debt := testDebt()
		debt.Payments = []domain.Payment{{Amount: 400_000}}
		p := &domain.Payment{Amount: 400_000}

		text, err := tmpl.GenerateConfirmation(context.Background(), "Budi", debt, p)
		require.NoError(t, err)
		assert.Contains(t, text, "Sisa tagihan")
	})

	t.Run("full payment says settled", func(t *testing.T) {
		debt := testDebt()
		debt.Payments = []domain.Payment{{Amount: 1_000_000}}
		p := &domain.Payment{Amount: 1_000_000}

		text, err := tmpl.GenerateConfirmation(context.Background(), "Budi", debt, p)
		require.NoError(t, err)
		assert.Contains(t, text, "lunas")
	})
}

func TestTemplateEscalation_PerType(t *testing.T) {
	tmpl := NewTemplateIntelligence()
	debt := testDebt()

	seen := map[string]bool{}
	for _, escType := range []domain.EscalationType{
		domain.EscalationLegal,
		domain.EscalationCollectionAgency,
		domain.EscalationWriteOff,
	} {
		text, err := tmpl.GenerateEscalation(context.Background(), "Budi", debt, escType)
		require.NoError(t, err)
		assert.Contains(t, text, "INV-2024-001")
		assert.False(t, seen[text], "escalation copy for %s duplicates another type", escType)
		seen[text] = true
	}
}

func TestTemplateClassify_AlwaysFallback(t *testing.T) {
	tmpl := NewTemplateIntelligence()

	c, err := tmpl.Classify(context.Background(), "besok saya bayar")
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackClassification(), c)
}

func TestFixedReplies(t *testing.T) {
	assert.Contains(t, PaymentPromiseReply("Budi"), "Budi")
	assert.Contains(t, AcknowledgmentReply("Budi"), "Budi")
}
