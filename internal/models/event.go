// internal/models/event.go
package models

// EventTypePaymentSucceeded is the only provider event type the pipeline acts
// upon; every other type is acknowledged and ignored.
const EventTypePaymentSucceeded = "payment_intent.succeeded"

// PaymentEvent is the normalized form of a verified provider webhook event.
// EventID is unique per logical event; the provider may redeliver the same
// logical event with the same EventID, which must be treated as a duplicate.
type PaymentEvent struct {
	EventID       string `json:"eventId"`
	EventType     string `json:"eventType"`
	ApplicationID string `json:"applicationId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}
