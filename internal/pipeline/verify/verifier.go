// Package verify authenticates inbound payment-provider webhooks and
// normalizes them into typed payment events.
package verify

import (
	"encoding/json"
	"strings"

	"visaflow/internal/common/errors"
	"visaflow/internal/common/logger"
	"visaflow/internal/models"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// metadataApplicationID is the payment-intent metadata key carrying the
// application identifier, set by the checkout flow at intent creation.
const metadataApplicationID = "applicationId"

// Result is the outcome of verifying one delivery. Ignored and Skipped are
// deliberate non-actions: the delivery is acknowledged and nothing else
// happens. Event is set only when neither flag is.
type Result struct {
	Event   *models.PaymentEvent
	Ignored bool // event type the pipeline does not act on
	Skipped bool // actionable type but unusable payload (no application id)
}

// Verifier checks provider signatures and filters event types.
type Verifier struct {
	secret string
	log    logger.Logger
}

func NewVerifier(secret string, log logger.Logger) *Verifier {
	return &Verifier{secret: secret, log: log}
}

// Verify authenticates the raw payload against the signature header and
// extracts the payment event. Signature problems are the only errors it
// returns; everything else resolves to an Ignored or Skipped result.
func (v *Verifier) Verify(payload []byte, sigHeader string) (Result, error) {
	if v.secret == "" {
		return Result{}, errors.NewSignatureMissingError("webhook secret not configured")
	}
	if strings.TrimSpace(sigHeader) == "" {
		return Result{}, errors.NewSignatureMissingError("Stripe-Signature header absent")
	}

	// Synthetic and replayed events may carry an older API version; the
	// signature check is what matters here.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Result{}, errors.NewSignatureInvalidError(err)
	}

	if string(event.Type) != models.EventTypePaymentSucceeded {
		v.log.Debug("ignoring non-actionable event type", map[string]interface{}{
			"eventId":   event.ID,
			"eventType": string(event.Type),
		})
		return Result{Ignored: true}, nil
	}

	if err := validateIntentPayload(event.Data.Raw); err != nil {
		v.log.Warn("payment intent payload failed schema validation", map[string]interface{}{
			"eventId": event.ID,
			"error":   err.Error(),
		})
		return Result{Skipped: true}, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		v.log.Warn("payment intent payload unreadable", map[string]interface{}{
			"eventId": event.ID,
			"error":   err.Error(),
		})
		return Result{Skipped: true}, nil
	}

	applicationID := strings.TrimSpace(intent.Metadata[metadataApplicationID])
	if applicationID == "" {
		// Malformed metadata must never cause provider retries.
		v.log.Warn("payment event has no application id", map[string]interface{}{
			"eventId":       event.ID,
			"paymentIntent": intent.ID,
		})
		return Result{Skipped: true}, nil
	}

	return Result{
		Event: &models.PaymentEvent{
			EventID:       event.ID,
			EventType:     string(event.Type),
			ApplicationID: applicationID,
			Amount:        intent.Amount,
			Currency:      string(intent.Currency),
		},
	}, nil
}
