// Package webhook drives the payment confirmation pipeline:
// verify -> claim -> dispatch -> transition -> commit.
package webhook

import (
	"context"
	"time"

	"visaflow/internal/audit"
	stderrors "visaflow/internal/common/errors"
	"visaflow/internal/common/logger"
	"visaflow/internal/common/metrics"
	"visaflow/internal/common/observability"
	"visaflow/internal/models"
	"visaflow/internal/pipeline/dedup"
	"visaflow/internal/pipeline/lock"
	"visaflow/internal/pipeline/notify"
	"visaflow/internal/pipeline/transition"
	"visaflow/internal/pipeline/verify"
	"visaflow/internal/store"
)

// Outcome classifies one delivery for responses, metrics and the audit trail.
// Everything except OutcomeFailed is acknowledged to the provider.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	// OutcomePartial: emails went out and the processed marker is stamped,
	// but the status transition write failed and needs manual review.
	OutcomePartial  Outcome = "partial"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDupe     Outcome = "duplicate"
	OutcomeNotFound Outcome = "not_found"
	OutcomeInFlight Outcome = "in_flight"
	OutcomeFailed   Outcome = "failed"
)

// Pipeline wires the stages together. The cache, alerter and auditor are
// optional; a nil value disables that concern.
type Pipeline struct {
	verifier   *verify.Verifier
	cache      *dedup.Cache
	locks      *lock.Manager
	store      store.Store
	dispatcher *notify.Dispatcher
	applier    *transition.Applier
	alerter    *notify.Alerter
	auditor    *audit.Recorder
	obs        *observability.Observability
	logger     logger.Logger
}

type PipelineParams struct {
	Verifier   *verify.Verifier
	Cache      *dedup.Cache
	Locks      *lock.Manager
	Store      store.Store
	Dispatcher *notify.Dispatcher
	Applier    *transition.Applier
	Alerter    *notify.Alerter
	Auditor    *audit.Recorder
	Obs        *observability.Observability
	Logger     logger.Logger
}

func NewPipeline(p PipelineParams) *Pipeline {
	return &Pipeline{
		verifier:   p.Verifier,
		cache:      p.Cache,
		locks:      p.Locks,
		store:      p.Store,
		dispatcher: p.Dispatcher,
		applier:    p.Applier,
		alerter:    p.Alerter,
		auditor:    p.Auditor,
		obs:        p.Obs,
		logger:     p.Logger,
	}
}

// Handle processes one raw delivery end to end. The returned error, when
// non-nil, carries the retryability the HTTP layer translates into a status;
// the Outcome is always meaningful for observability.
func (p *Pipeline) Handle(ctx context.Context, payload []byte, sigHeader string) (Outcome, error) {
	start := time.Now()
	outcome, event, err := p.run(ctx, payload, sigHeader)
	p.observe(ctx, outcome, event, err, time.Since(start))
	return outcome, err
}

func (p *Pipeline) run(ctx context.Context, payload []byte, sigHeader string) (Outcome, *models.PaymentEvent, error) {
	res, err := p.verifier.Verify(payload, sigHeader)
	if err != nil {
		return OutcomeFailed, nil, err
	}
	if res.Ignored {
		return OutcomeIgnored, nil, nil
	}
	if res.Skipped {
		return OutcomeSkipped, nil, nil
	}
	event := res.Event

	log := p.logger.WithFields(map[string]interface{}{
		"eventId":       event.EventID,
		"applicationId": event.ApplicationID,
	})

	// Fast path for redeliveries of already-committed events; the
	// transactional claim below remains the authority.
	if p.cache != nil && p.cache.Seen(ctx, event.EventID) {
		log.Info("event already processed (cache)", nil)
		return OutcomeDupe, event, nil
	}

	decision, err := p.locks.Claim(ctx, event.ApplicationID, event.EventID)
	if err != nil {
		return OutcomeFailed, event, err
	}
	if !decision.OK {
		return p.rejectedOutcome(ctx, event, decision.Reason), event, nil
	}

	app, err := p.store.Get(ctx, event.ApplicationID)
	if err != nil {
		// The claim just saw the record; losing it here is a store fault.
		p.releaseAfterFailure(ctx, event, log)
		return OutcomeFailed, event, stderrors.NewStoreUnavailableError(err)
	}

	dispatched, err := p.dispatcher.Dispatch(ctx, app, event)
	if err != nil {
		p.releaseAfterFailure(ctx, event, log)
		return OutcomeFailed, event, err
	}
	if dispatched.Skipped {
		log.Info("dispatch skipped, proceeding to mark paid", nil)
	}

	if err := p.applier.Apply(ctx, app, event); err != nil {
		// The dangerous case: emails are out but the status write failed.
		// Stamp the processed marker anyway so a redelivery cannot notify a
		// second time; the status transition is repaired manually.
		log.WithError(err).Error("paid-state write failed after dispatch, stamping processed marker", nil)
		if p.alerter != nil {
			p.alerter.TransitionWriteFailed(ctx, event.ApplicationID, event.EventID, err)
		}
		if commitErr := p.locks.Commit(ctx, event.ApplicationID, event.EventID); commitErr != nil {
			log.WithError(commitErr).Error("processed-marker stamp failed, provider will retry", nil)
			return OutcomeFailed, event, err
		}
		p.markProcessed(ctx, event)
		return OutcomePartial, event, nil
	}

	if err := p.locks.Commit(ctx, event.ApplicationID, event.EventID); err != nil {
		// Status is advanced but the processed markers are not; the lock
		// dangles until the TTL and the redelivery retries the commit.
		return OutcomeFailed, event, err
	}

	p.markProcessed(ctx, event)
	log.Info("payment event processed", map[string]interface{}{
		"emailsSent": len(dispatched.Sent),
	})
	return OutcomeProcessed, event, nil
}

func (p *Pipeline) rejectedOutcome(ctx context.Context, event *models.PaymentEvent, reason lock.Reason) Outcome {
	switch reason {
	case lock.ReasonNotFound:
		return OutcomeNotFound
	case lock.ReasonAlreadyEmailed, lock.ReasonAlreadyProcessedEvent:
		p.markProcessed(ctx, event)
		return OutcomeDupe
	default:
		return OutcomeInFlight
	}
}

func (p *Pipeline) releaseAfterFailure(ctx context.Context, event *models.PaymentEvent, log logger.Logger) {
	if err := p.locks.Release(ctx, event.ApplicationID); err != nil {
		// The TTL reclaims it eventually; retries in the window are blocked.
		log.WithError(err).Error("lock release failed", nil)
	}
}

func (p *Pipeline) markProcessed(ctx context.Context, event *models.PaymentEvent) {
	if p.cache != nil {
		p.cache.Mark(ctx, event.EventID)
	}
}

func (p *Pipeline) observe(ctx context.Context, outcome Outcome, event *models.PaymentEvent, err error, elapsed time.Duration) {
	metrics.WebhookDeliveries.WithLabelValues(string(outcome)).Inc()
	metrics.PipelineDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
	if p.obs != nil {
		p.obs.RecordDelivery(ctx, string(outcome))
		p.obs.RecordDuration(ctx, elapsed, string(outcome))
	}

	if p.auditor != nil {
		rec := audit.DeliveryRecord{
			Outcome:    string(outcome),
			DurationMS: elapsed.Milliseconds(),
			ReceivedAt: time.Now().UTC(),
		}
		if event != nil {
			rec.EventID = event.EventID
			rec.EventType = event.EventType
			rec.ApplicationID = event.ApplicationID
		}
		if err != nil {
			rec.Detail = err.Error()
		}
		p.auditor.Record(ctx, rec)
	}
}
