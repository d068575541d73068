package domain

type ResponseIntent string

const (
	IntentPaymentPromise     ResponseIntent = "payment_promise"
	IntentDispute            ResponseIntent = "dispute"
	IntentFinancialHardship  ResponseIntent = "financial_hardship"
	IntentPaymentPlanRequest ResponseIntent = "payment_plan_request"
	IntentQuestion           ResponseIntent = "question"
	IntentAcknowledgment     ResponseIntent = "acknowledgment"
	IntentUnknown            ResponseIntent = "unknown"
)

type SuggestedAction string

const (
	ActionFollowUp  SuggestedAction = "follow_up"
	ActionEscalate  SuggestedAction = "escalate"
	ActionNegotiate SuggestedAction = "negotiate"
	ActionCloseCase SuggestedAction = "close_case"
	ActionWait      SuggestedAction = "wait"
)

// Classification is the structured reading of an inbound free-text reply.
type Classification struct {
	Intent            ResponseIntent
	Sentiment         string
	Urgency           string
	PaymentCommitment string
	SuggestedAction   SuggestedAction
	Confidence        float64
	Summary           string
}

// FallbackClassification is the conservative default used when the text
// intelligence collaborator fails: nothing is assumed beyond "a reply came
// in, somebody should look at it".
func FallbackClassification() Classification {
	return Classification{
		Intent:            IntentUnknown,
		Sentiment:         "neutral",
		Urgency:           "low",
		PaymentCommitment: "none",
		SuggestedAction:   ActionFollowUp,
		Confidence:        0.2,
		Summary:           "unclassified response",
	}
}
