// Package transition advances an application to its post-payment state.
package transition

import (
	"context"
	"time"

	"visaflow/internal/common/errors"
	"visaflow/internal/common/logger"
	"visaflow/internal/models"
	"visaflow/internal/store"
)

// Applier performs the paid-state merge-write. It runs only after the
// notification step succeeded or was deliberately skipped.
type Applier struct {
	store  store.Store
	logger logger.Logger
	now    func() time.Time
}

func NewApplier(st store.Store, log logger.Logger) *Applier {
	return &Applier{store: st, logger: log, now: time.Now}
}

// Apply sets the root status to processing, records the settlement amount and
// currency, and advances every applicant to the same status while preserving
// their other fields. An empty applicant list is left untouched; the root
// markers still apply.
func (a *Applier) Apply(ctx context.Context, app *models.Application, event *models.PaymentEvent) error {
	status := models.StatusProcessing
	now := a.now().UTC()
	mut := store.Mutation{
		Status:       &status,
		PaidAmount:   &event.Amount,
		PaidCurrency: &event.Currency,
		UpdatedAt:    &now,
	}

	if len(app.Applicants) > 0 {
		applicants := make([]models.Applicant, len(app.Applicants))
		copy(applicants, app.Applicants)
		for i := range applicants {
			applicants[i].Status = models.StatusProcessing
		}
		mut.Applicants = applicants
	}

	if err := a.store.Merge(ctx, app.ID, mut); err != nil {
		a.logger.WithError(err).Error("paid-state write failed after notification", map[string]interface{}{
			"applicationId": app.ID,
			"eventId":       event.EventID,
		})
		return errors.NewTransitionWriteFailedError(app.ID, err)
	}

	a.logger.Info("application advanced to processing", map[string]interface{}{
		"applicationId": app.ID,
		"eventId":       event.EventID,
		"amount":        event.Amount,
		"currency":      event.Currency,
	})
	return nil
}
