// Package notify composes and sends the post-payment emails.
package notify

import (
	"context"
	"strings"
	"time"

	"visaflow/internal/common/errors"
	"visaflow/internal/common/logger"
	"visaflow/internal/common/metrics"
	"visaflow/internal/common/validation"
	"visaflow/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Config holds the dispatcher's delivery settings.
type Config struct {
	Enabled     bool
	FromEmail   string
	AdminEmail  string
	SiteBaseURL string
}

// Result reports what the dispatcher actually did. Skipped means no
// deliverable recipients existed; the caller still proceeds to mark the
// record paid.
type Result struct {
	Skipped bool
	Sent    []models.NotificationRecord
}

// Dispatcher sends payment-confirmation emails over SES and records every
// delivery in the notification log.
type Dispatcher struct {
	config    Config
	sesClient SESService
	records   *Log
	logger    logger.Logger
}

// NewDispatcher builds a dispatcher. records may be nil when no notification
// log database is configured.
func NewDispatcher(cfg Config, sesClient SESService, records *Log, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		config:    cfg,
		sesClient: sesClient,
		records:   records,
		logger:    log,
	}
}

// Dispatch sends the payment-confirmation emails for one claimed event.
//
// If any applicant carries an individual document link, each applicant gets a
// personalized email referencing only their own link. Otherwise one batch
// email goes to the de-duplicated set of applicant addresses. Any send
// failure aborts and propagates; partial sends are retried in full on the
// next delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, app *models.Application, event *models.PaymentEvent) (*Result, error) {
	if !d.config.Enabled {
		d.logger.Info("email delivery disabled, skipping dispatch", map[string]interface{}{
			"applicationId": app.ID,
			"eventId":       event.EventID,
		})
		return &Result{Skipped: true}, nil
	}

	var result *Result
	var err error
	if hasPersonalDeliverables(app) {
		result, err = d.dispatchPersonalized(ctx, app, event)
	} else {
		result, err = d.dispatchBatch(ctx, app, event)
	}
	if err != nil {
		return nil, err
	}

	d.sendAdminCopy(ctx, app, event)
	return result, nil
}

func (d *Dispatcher) dispatchBatch(ctx context.Context, app *models.Application, event *models.PaymentEvent) (*Result, error) {
	recipients := d.normalizeRecipients(app.Applicants)
	if len(recipients) == 0 {
		d.logger.Warn("no deliverable recipients, skipping dispatch", map[string]interface{}{
			"applicationId": app.ID,
			"eventId":       event.EventID,
		})
		return &Result{Skipped: true}, nil
	}

	subject, html, text := renderBatchEmail(app, event, d.config.SiteBaseURL)
	messageID, err := d.sendEmail(ctx, recipients, subject, html, text)
	if err != nil {
		return nil, errors.NewDispatchFailedError(err)
	}

	result := &Result{}
	for _, recipient := range recipients {
		result.Sent = append(result.Sent, d.recordDelivery(ctx, app, event, models.NotificationModeBatch, recipient, messageID))
	}
	metrics.EmailsSent.WithLabelValues(models.NotificationModeBatch).Inc()
	return result, nil
}

func (d *Dispatcher) dispatchPersonalized(ctx context.Context, app *models.Application, event *models.PaymentEvent) (*Result, error) {
	result := &Result{}
	for _, applicant := range app.Applicants {
		address := normalizeAddress(applicant.Email)
		if address == "" {
			continue
		}
		if !validation.ValidateEmail(address) {
			d.logger.Warn("dropping invalid applicant address", map[string]interface{}{
				"applicationId": app.ID,
				"recipient":     address,
			})
			continue
		}

		subject, html, text := renderPersonalizedEmail(app, applicant, event, d.config.SiteBaseURL)
		messageID, err := d.sendEmail(ctx, []string{address}, subject, html, text)
		if err != nil {
			return nil, errors.NewDispatchFailedError(err)
		}
		result.Sent = append(result.Sent, d.recordDelivery(ctx, app, event, models.NotificationModePersonalized, address, messageID))
		metrics.EmailsSent.WithLabelValues(models.NotificationModePersonalized).Inc()
	}

	if len(result.Sent) == 0 {
		d.logger.Warn("no deliverable recipients, skipping dispatch", map[string]interface{}{
			"applicationId": app.ID,
			"eventId":       event.EventID,
		})
		return &Result{Skipped: true}, nil
	}
	return result, nil
}

// sendAdminCopy notifies operations about the settled payment. Best effort:
// an admin delivery failure must never fail the pipeline or re-trigger
// applicant emails.
func (d *Dispatcher) sendAdminCopy(ctx context.Context, app *models.Application, event *models.PaymentEvent) {
	if d.config.AdminEmail == "" {
		return
	}

	subject, html, text := renderAdminEmail(app, event)
	messageID, err := d.sendEmail(ctx, []string{d.config.AdminEmail}, subject, html, text)
	if err != nil {
		d.logger.WithError(err).Warn("admin copy failed", map[string]interface{}{
			"applicationId": app.ID,
			"eventId":       event.EventID,
		})
		return
	}
	d.recordDelivery(ctx, app, event, models.NotificationModeAdmin, d.config.AdminEmail, messageID)
	metrics.EmailsSent.WithLabelValues(models.NotificationModeAdmin).Inc()
}

func (d *Dispatcher) sendEmail(ctx context.Context, to []string, subject, html, text string) (string, error) {
	out, err := d.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html)},
				Text: &types.Content{Data: aws.String(text)},
			},
		},
		Source: aws.String(d.config.FromEmail),
	})
	if err != nil {
		return "", err
	}
	if out.MessageId != nil {
		return *out.MessageId, nil
	}
	return "", nil
}

// recordDelivery appends to the notification log. Best effort: a log write
// failure is support-tooling degradation, not a delivery failure.
func (d *Dispatcher) recordDelivery(ctx context.Context, app *models.Application, event *models.PaymentEvent, mode, recipient, messageID string) models.NotificationRecord {
	rec := models.NotificationRecord{
		ID:            uuid.New().String(),
		ApplicationID: app.ID,
		EventID:       event.EventID,
		Mode:          mode,
		Recipient:     recipient,
		MessageID:     messageID,
		SentAt:        time.Now().UTC(),
	}
	if d.records != nil {
		if err := d.records.Insert(ctx, rec); err != nil {
			d.logger.WithError(err).Warn("notification log write failed", map[string]interface{}{
				"applicationId": app.ID,
				"eventId":       event.EventID,
			})
		}
	}
	return rec
}

// normalizeRecipients returns the trimmed, lowercased, de-duplicated set of
// applicant addresses, in first-seen order. Empty addresses are dropped
// silently; syntactically invalid ones are dropped with a warning.
func (d *Dispatcher) normalizeRecipients(applicants []models.Applicant) []string {
	seen := make(map[string]bool)
	var recipients []string
	for _, applicant := range applicants {
		address := normalizeAddress(applicant.Email)
		if address == "" || seen[address] {
			continue
		}
		if !validation.ValidateEmail(address) {
			d.logger.Warn("dropping invalid applicant address", map[string]interface{}{
				"recipient": address,
			})
			continue
		}
		seen[address] = true
		recipients = append(recipients, address)
	}
	return recipients
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func hasPersonalDeliverables(app *models.Application) bool {
	for _, applicant := range app.Applicants {
		if applicant.DocumentURL != "" {
			return true
		}
	}
	return false
}
