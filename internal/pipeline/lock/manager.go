// Package lock implements the idempotency guard for payment notifications.
// A claim is a single-document transaction against the application record,
// so concurrent webhook redeliveries are linearized by the store.
package lock

import (
	"context"
	"time"

	"visaflow/internal/common/errors"
	"visaflow/internal/common/logger"
	"visaflow/internal/common/metrics"
	"visaflow/internal/models"
	"visaflow/internal/store"
)

// Reason explains why a claim was rejected. Rejections are ordinary results,
// not errors: every one of them means the delivery is acknowledged with no
// further action.
type Reason string

const (
	ReasonNotFound               Reason = "not_found"
	ReasonAlreadyEmailed         Reason = "already_emailed"
	ReasonAlreadyProcessedEvent  Reason = "already_processed_event"
	ReasonAlreadyLockedSameEvent Reason = "already_locked_same_event"
	ReasonLockedRecently         Reason = "locked_recently"
)

// Decision is the outcome of a claim attempt.
type Decision struct {
	OK     bool
	Reason Reason
}

// Manager owns claim/release/commit against the application record store.
type Manager struct {
	store store.Store
	log   logger.Logger
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(st store.Store, log logger.Logger, ttl time.Duration) *Manager {
	return &Manager{
		store: st,
		log:   log,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Claim attempts to reserve the right to notify for (applicationID, eventID).
// The decision table runs inside one atomic read-modify-write; first matching
// rule wins:
//
//  1. record missing                          -> not_found
//  2. notification already sent               -> already_emailed
//  3. this event already committed            -> already_processed_event
//  4. lock held for this same event           -> already_locked_same_event
//  5. lock held for another event, not stale  -> locked_recently
//  6. otherwise write the lock and succeed
//
// A rejected claim returns (Decision, nil); only storage failures return an
// error, and those are retryable.
func (m *Manager) Claim(ctx context.Context, applicationID, eventID string) (Decision, error) {
	decision := Decision{}

	err := m.store.UpdateTx(ctx, applicationID, func(app *models.Application) (store.Mutation, error) {
		switch {
		case app.NotificationSent:
			decision = Decision{Reason: ReasonAlreadyEmailed}
		case app.PaidPaymentEventID == eventID:
			decision = Decision{Reason: ReasonAlreadyProcessedEvent}
		case app.NotificationLock != nil && app.NotificationLock.EventID == eventID:
			decision = Decision{Reason: ReasonAlreadyLockedSameEvent}
		case app.NotificationLock != nil && m.now().Sub(app.NotificationLock.ClaimedAt) < m.ttl:
			decision = Decision{Reason: ReasonLockedRecently}
		default:
			decision = Decision{OK: true}
			return store.Mutation{
				Lock: &models.NotificationLock{EventID: eventID, ClaimedAt: m.now().UTC()},
			}, nil
		}
		return store.Mutation{}, nil
	})
	if err != nil {
		if err == store.ErrNotFound {
			decision = Decision{Reason: ReasonNotFound}
		} else {
			return Decision{}, errors.NewStoreUnavailableError(err)
		}
	}

	if !decision.OK {
		metrics.ClaimRejections.WithLabelValues(string(decision.Reason)).Inc()
		m.log.Info("notification claim rejected", map[string]interface{}{
			"applicationId": applicationID,
			"eventId":       eventID,
			"reason":        string(decision.Reason),
		})
	}
	return decision, nil
}

// Release unconditionally clears the notification lock so a future redelivery
// can retry. It never touches other fields.
func (m *Manager) Release(ctx context.Context, applicationID string) error {
	err := m.store.Merge(ctx, applicationID, store.Mutation{ClearLock: true})
	if err != nil && err != store.ErrNotFound {
		return errors.NewStoreUnavailableError(err)
	}
	return nil
}

// Commit converts a held lock into the permanent processed markers: the event
// id that paid this application and the sent flag. Safe to call even when the
// lock was already released or never written.
func (m *Manager) Commit(ctx context.Context, applicationID, eventID string) error {
	sent := true
	now := m.now().UTC()
	err := m.store.Merge(ctx, applicationID, store.Mutation{
		PaidPaymentEventID: &eventID,
		NotificationSent:   &sent,
		ClearLock:          true,
		UpdatedAt:          &now,
	})
	if err != nil {
		return errors.NewCommitFailedError(applicationID, err)
	}
	return nil
}
