package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debtster-collector/internal/domain"
)

func TestParseClassification(t *testing.T) {
	raw := `{"intent":"payment_promise","sentiment":"positive","urgency":"medium",
	"payment_commitment":"full","suggested_action":"wait","confidence":0.92,
	"summary":"Debtor promises to pay tomorrow"}`

	c, err := parseClassification(raw)
	require.NoError(t, err)

	assert.Equal(t, domain.IntentPaymentPromise, c.Intent)
	assert.Equal(t, "positive", c.Sentiment)
	assert.Equal(t, domain.ActionWait, c.SuggestedAction)
	assert.InDelta(t, 0.92, c.Confidence, 0.001)
}

func TestParseClassification_CodeFences(t *testing.T) {
	raw := "```json\n{\"intent\":\"dispute\",\"suggested_action\":\"escalate\",\"confidence\":0.8}\n```"

	c, err := parseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentDispute, c.Intent)
	assert.Equal(t, domain.ActionEscalate, c.SuggestedAction)
}

func TestParseClassification_UnknownEnumsDefaulted(t *testing.T) {
	raw := `{"intent":"angry","suggested_action":"call_police","confidence":0.7}`

	c, err := parseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentUnknown, c.Intent)
	assert.Equal(t, domain.ActionFollowUp, c.SuggestedAction)
}

func TestParseClassification_InvalidJSON(t *testing.T) {
	_, err := parseClassification("I think the debtor is upset")
	require.Error(t, err)
}
