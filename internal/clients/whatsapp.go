package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string // e.g. "whatsapp:+14155238886"
}

// WhatsAppClient sends outbound messages through the Twilio WhatsApp API.
type WhatsAppClient struct {
	client *twilio.RestClient
	from   string
}

func NewWhatsAppClient(cfg WhatsAppConfig) (*WhatsAppClient, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio credentials are not configured")
	}

	from := cfg.FromNumber
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}

	return &WhatsAppClient{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: from,
	}, nil
}

// Address converts a canonical digit-only phone into the channel address.
func (c *WhatsAppClient) Address(phone string) string {
	return "whatsapp:+" + phone
}

// Send delivers one message and returns the provider message id.
func (c *WhatsAppClient) Send(ctx context.Context, address, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(address)
	params.SetFrom(c.from)
	params.SetBody(text)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio send to %s: %w", address, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("twilio send to %s: no message sid returned", address)
	}
	return *resp.Sid, nil
}

// IsReachable is a shape check only; Twilio reports true deliverability
// asynchronously via status callbacks, which this service does not consume.
func (c *WhatsAppClient) IsReachable(ctx context.Context, address string) bool {
	rest := strings.TrimPrefix(address, "whatsapp:")
	rest = strings.TrimPrefix(rest, "+")
	if len(rest) < 9 || len(rest) > 15 {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseInboundAddress strips the channel prefix from a webhook "From" value,
// returning the raw phone for normalization.
func ParseInboundAddress(address string) string {
	rest := strings.TrimPrefix(address, "whatsapp:")
	return strings.TrimPrefix(rest, "+")
}
