package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"debtster-collector/internal/domain"
)

type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient generates contact messages and classifies inbound replies via
// the Gemini API. Every method can fail; callers fall back to template
// content or the default classification.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return text, nil
}

var levelTones = map[int]string{
	1: "friendly and gentle, assume the debtor simply forgot",
	2: "polite but firm, mention the overdue period",
	3: "serious, stress the consequences of continued non-payment",
	4: "urgent, state that the case is close to escalation",
	5: "final warning before escalation to legal or a collection agency",
}

func (c *GeminiClient) GenerateReminder(ctx context.Context, debtorName string, debt *domain.Debt, level int) (string, error) {
	tone := levelTones[level]
	if tone == "" {
		tone = levelTones[domain.MaxReminderLevel]
	}

	prompt := fmt.Sprintf(
		"Write a short WhatsApp payment reminder in Indonesian.\n"+
			"Tone: %s.\n"+
			"Debtor: %s. Invoice: %s. Outstanding: %s %.0f. Days overdue: %d.\n"+
			"Keep it under 80 words, no markdown, no placeholders.",
		tone, debtorName, debt.InvoiceNumber, debt.Currency, debt.RemainingBalance(), debt.DaysOverdue(time.Now()),
	)

	return c.generate(ctx, prompt)
}

func (c *GeminiClient) GenerateConfirmation(ctx context.Context, debtorName string, debt *domain.Debt, p *domain.Payment) (string, error) {
	prompt := fmt.Sprintf(
		"Write a short, warm WhatsApp payment confirmation in Indonesian.\n"+
			"Debtor: %s. Invoice: %s. Payment received: %s %.0f. Remaining balance: %s %.0f.\n"+
			"Thank them; if a balance remains, mention it once. Under 60 words, no markdown.",
		debtorName, debt.InvoiceNumber, debt.Currency, p.Amount, debt.Currency, debt.RemainingBalance(),
	)

	return c.generate(ctx, prompt)
}

func (c *GeminiClient) GenerateEscalation(ctx context.Context, debtorName string, debt *domain.Debt, escType domain.EscalationType) (string, error) {
	prompt := fmt.Sprintf(
		"Write a formal WhatsApp notice in Indonesian informing the debtor the case is being escalated.\n"+
			"Debtor: %s. Invoice: %s. Outstanding: %s %.0f. Escalation path: %s.\n"+
			"Remain professional and factual. Under 100 words, no markdown.",
		debtorName, debt.InvoiceNumber, debt.Currency, debt.RemainingBalance(), escType,
	)

	return c.generate(ctx, prompt)
}

func (c *GeminiClient) GenerateNegotiationReply(ctx context.Context, debtorName string, debts []domain.Debt, inbound string) (string, error) {
	var total float64
	currency := ""
	invoices := make([]string, 0, len(debts))
	for i := range debts {
		total += debts[i].RemainingBalance()
		currency = debts[i].Currency
		invoices = append(invoices, debts[i].InvoiceNumber)
	}

	prompt := fmt.Sprintf(
		"You are a debt-collection assistant replying on WhatsApp in Indonesian.\n"+
			"Debtor: %s. Open invoices: %s. Total outstanding: %s %.0f.\n"+
			"Their message: %q\n"+
			"Reply helpfully: acknowledge their situation, keep the door open for a payment plan, "+
			"never promise debt forgiveness. Under 100 words, no markdown.",
		debtorName, strings.Join(invoices, ", "), currency, total, inbound,
	)

	return c.generate(ctx, prompt)
}

const classifyPrompt = `Classify this message from a debtor replying to a payment reminder.
Respond with only a JSON object, no prose, with these fields:
  intent: one of payment_promise|dispute|financial_hardship|payment_plan_request|question|acknowledgment|unknown
  sentiment: positive|neutral|negative
  urgency: low|medium|high
  payment_commitment: none|partial|full
  suggested_action: follow_up|escalate|negotiate|close_case|wait
  confidence: number between 0 and 1
  summary: one short sentence in English

Message: %q`

func (c *GeminiClient) Classify(ctx context.Context, text string) (domain.Classification, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		return domain.Classification{}, err
	}

	return parseClassification(raw)
}

// parseClassification decodes the model's JSON answer, tolerating markdown
// code fences around it.
func parseClassification(raw string) (domain.Classification, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Intent            string  `json:"intent"`
		Sentiment         string  `json:"sentiment"`
		Urgency           string  `json:"urgency"`
		PaymentCommitment string  `json:"payment_commitment"`
		SuggestedAction   string  `json:"suggested_action"`
		Confidence        float64 `json:"confidence"`
		Summary           string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("parse classification: %w", err)
	}

	c := domain.Classification{
		Intent:            domain.ResponseIntent(parsed.Intent),
		Sentiment:         parsed.Sentiment,
		Urgency:           parsed.Urgency,
		PaymentCommitment: parsed.PaymentCommitment,
		SuggestedAction:   domain.SuggestedAction(parsed.SuggestedAction),
		Confidence:        parsed.Confidence,
		Summary:           parsed.Summary,
	}

	switch c.Intent {
	case domain.IntentPaymentPromise, domain.IntentDispute, domain.IntentFinancialHardship,
		domain.IntentPaymentPlanRequest, domain.IntentQuestion, domain.IntentAcknowledgment,
		domain.IntentUnknown:
	default:
		c.Intent = domain.IntentUnknown
	}

	switch c.SuggestedAction {
	case domain.ActionFollowUp, domain.ActionEscalate, domain.ActionNegotiate,
		domain.ActionCloseCase, domain.ActionWait:
	default:
		c.SuggestedAction = domain.ActionFollowUp
	}

	return c, nil
}
