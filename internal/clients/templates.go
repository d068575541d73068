package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"debtster-collector/internal/domain"
)

// TemplateIntelligence is the deterministic fallback behind the Gemini
// client: fixed Indonesian copy per tone tier and the conservative default
// classification. It also serves as the sole implementation when no API key
// is configured. Methods never fail.
type TemplateIntelligence struct{}

func NewTemplateIntelligence() *TemplateIntelligence {
	return &TemplateIntelligence{}
}

var reminderTemplates = map[int]string{
	1: "Halo %s, ini pengingat ramah bahwa invoice %s sebesar %s %.0f sudah jatuh tempo. Mohon konfirmasi pembayarannya. Terima kasih.",
	2: "Halo %s, invoice %s sebesar %s %.0f masih belum dibayar (%d hari lewat jatuh tempo). Mohon segera diselesaikan.",
	3: "Yth. %s, kami belum menerima pembayaran invoice %s sebesar %s %.0f, sudah %d hari lewat jatuh tempo. Keterlambatan berkelanjutan dapat mempengaruhi catatan kredit Anda.",
	4: "Yth. %s, invoice %s sebesar %s %.0f sudah %d hari lewat jatuh tempo. Tanpa pembayaran atau konfirmasi, kasus ini akan segera dieskalasi.",
	5: "PERINGATAN TERAKHIR: %s, invoice %s sebesar %s %.0f sudah %d hari lewat jatuh tempo. Tanpa pembayaran dalam 48 jam, kasus akan diserahkan ke jalur hukum atau agen penagihan.",
}

func (t *TemplateIntelligence) GenerateReminder(ctx context.Context, debtorName string, debt *domain.Debt, level int) (string, error) {
	tmpl, ok := reminderTemplates[level]
	if !ok {
		tmpl = reminderTemplates[domain.MaxReminderLevel]
	}

	days := debt.DaysOverdue(time.Now())
	if level == 1 {
		return fmt.Sprintf(tmpl, debtorName, debt.InvoiceNumber, debt.Currency, debt.RemainingBalance()), nil
	}
	return fmt.Sprintf(tmpl, debtorName, debt.InvoiceNumber, debt.Currency, debt.RemainingBalance(), days), nil
}

func (t *TemplateIntelligence) GenerateConfirmation(ctx context.Context, debtorName string, debt *domain.Debt, p *domain.Payment) (string, error) {
	if debt.RemainingBalance() <= 0 {
		return fmt.Sprintf(
			"Terima kasih %s! Pembayaran %s %.0f untuk invoice %s sudah kami terima. Tagihan Anda lunas.",
			debtorName, debt.Currency, p.Amount, debt.InvoiceNumber,
		), nil
	}
	return fmt.Sprintf(
		"Terima kasih %s! Pembayaran %s %.0f untuk invoice %s sudah kami terima. Sisa tagihan: %s %.0f.",
		debtorName, debt.Currency, p.Amount, debt.InvoiceNumber, debt.Currency, debt.RemainingBalance(),
	), nil
}

var escalationTemplates = map[domain.EscalationType]string{
	domain.EscalationLegal:            "Yth. %s, karena invoice %s sebesar %s %.0f tetap belum dibayar, kasus ini kami serahkan ke penasihat hukum kami. Anda masih dapat menghubungi kami untuk penyelesaian.",
	domain.EscalationCollectionAgency: "Yth. %s, penagihan invoice %s sebesar %s %.0f kami alihkan ke agen penagihan resmi. Mereka akan menghubungi Anda langsung.",
	domain.EscalationWriteOff:         "Yth. %s, invoice %s sebesar %s %.0f dicatat sebagai piutang tak tertagih. Hal ini tercatat dalam riwayat kredit Anda.",
}

func (t *TemplateIntelligence) GenerateEscalation(ctx context.Context, debtorName string, debt *domain.Debt, escType domain.EscalationType) (string, error) {
	tmpl, ok := escalationTemplates[escType]
	if !ok {
		tmpl = escalationTemplates[domain.EscalationCollectionAgency]
	}
	return fmt.Sprintf(tmpl, debtorName, debt.InvoiceNumber, debt.Currency, debt.RemainingBalance()), nil
}

func (t *TemplateIntelligence) GenerateNegotiationReply(ctx context.Context, debtorName string, debts []domain.Debt, inbound string) (string, error) {
	var total float64
	currency := ""
	invoices := make([]string, 0, len(debts))
	for i := range debts {
		total += debts[i].RemainingBalance()
		currency = debts[i].Currency
		invoices = append(invoices, debts[i].InvoiceNumber)
	}

	return fmt.Sprintf(
		"Halo %s, terima kasih atas balasan Anda. Total tagihan terbuka Anda (%s) adalah %s %.0f. "+
			"Tim kami akan menghubungi Anda untuk membahas opsi pembayaran, termasuk kemungkinan cicilan.",
		debtorName, strings.Join(invoices, ", "), currency, total,
	), nil
}

// Classify always returns the conservative default. The template
// implementation cannot read intent from free text.
func (t *TemplateIntelligence) Classify(ctx context.Context, text string) (domain.Classification, error) {
	return domain.FallbackClassification(), nil
}

// PaymentPromiseReply and AcknowledgmentReply are the fixed replies used for
// intents that never need generated content.
func PaymentPromiseReply(debtorName string) string {
	return fmt.Sprintf(
		"Terima kasih %s, kami catat janji pembayaran Anda. Mohon kirim bukti transfer setelah pembayaran dilakukan.",
		debtorName,
	)
}

func AcknowledgmentReply(debtorName string) string {
	return fmt.Sprintf("Terima kasih atas konfirmasinya, %s.", debtorName)
}
