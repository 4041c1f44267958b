// Package store persists Application records as single mutable documents.
// All writes are partial: a Mutation only touches the fields it names, so
// concurrent updates to unrelated fields are never clobbered.
package store

import (
	"context"
	"errors"
	"time"

	"visaflow/internal/models"
)

// ErrNotFound is returned when no Application document exists for an id.
var ErrNotFound = errors.New("application not found")

// Mutation describes a partial write against one Application document.
// Nil pointer fields are left untouched.
type Mutation struct {
	Status             *string
	NotificationSent   *bool
	PaidPaymentEventID *string
	PaidAmount         *int64
	PaidCurrency       *string
	UpdatedAt          *time.Time

	// Lock sets the notification lock; ClearLock deletes the lock field.
	// Setting wins when both are present.
	Lock      *models.NotificationLock
	ClearLock bool

	// Applicants replaces the applicants array when non-nil.
	Applicants []models.Applicant
}

// IsZero reports whether the mutation would write nothing.
func (m Mutation) IsZero() bool {
	return m.Status == nil &&
		m.NotificationSent == nil &&
		m.PaidPaymentEventID == nil &&
		m.PaidAmount == nil &&
		m.PaidCurrency == nil &&
		m.UpdatedAt == nil &&
		m.Lock == nil &&
		!m.ClearLock &&
		m.Applicants == nil
}

// Store is the Application record store the pipeline runs against.
type Store interface {
	// Get fetches one application by id. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*models.Application, error)

	// Merge applies a partial write outside any transaction.
	Merge(ctx context.Context, id string, mut Mutation) error

	// UpdateTx runs fn inside a single-document atomic read-modify-write.
	// fn receives the current record and returns the mutation to apply in
	// the same transaction; a zero mutation commits without writing.
	// Errors returned by fn abort the transaction and are passed through.
	UpdateTx(ctx context.Context, id string, fn func(app *models.Application) (Mutation, error)) error
}
