package paystackclient

import (
	"encoding/json"
	"strings"
	"time"
)

// EventChargeSuccess is the only event type that settles a payment.
const EventChargeSuccess = "charge.success"

// WebhookEvent is the envelope Paystack posts to the webhook endpoint.
type WebhookEvent struct {
	Event string     `json:"event"`
	Data  ChargeData `json:"data"`
}

// IsChargeEvent reports whether the event belongs to the charge family.
func (e WebhookEvent) IsChargeEvent() bool {
	return strings.HasPrefix(e.Event, "charge.")
}

// ChargeData is the `data` object of a charge event.
type ChargeData struct {
	ID              int64      `json:"id"`
	Reference       string     `json:"reference"`
	Status          string     `json:"status"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	Channel         string     `json:"channel"`
	GatewayResponse string     `json:"gateway_response"`
	PaidAt          *time.Time `json:"paid_at"`
	Metadata        Metadata   `json:"metadata"`
}

// UnmarshalJSON tolerates the empty string Paystack sends when a charge has no metadata.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		*m = Metadata{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		return m.UnmarshalJSON([]byte(encoded))
	}
	type plain Metadata
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*m = Metadata(decoded)
	return nil
}
