package rest

import (
	"net/http"

	"debtster-collector/internal/clients"
)

// inboundWebhook receives Twilio's form-encoded callback for inbound WhatsApp
// messages. Twilio retries on non-2xx, so processing errors are logged and
// answered 200: the message is already persisted or deliberately dropped.
func (h *Handler) inboundWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ErrorBadRequest(w, "invalid form payload")
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" || body == "" {
		ErrorBadRequest(w, "From and Body are required")
		return
	}

	phone := clients.ParseInboundAddress(from)
	if err := h.responses.HandleInbound(r.Context(), phone, body); err != nil {
		h.log.Errorw("inbound webhook processing failed", "from", from, "error", err)
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	// empty TwiML: replies go out through the API, not the webhook response
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
}
