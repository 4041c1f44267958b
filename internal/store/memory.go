package store

import (
	"context"
	"sync"

	"visaflow/internal/models"
)

// Memory is an in-process Store used by tests and local development. A
// single mutex linearizes UpdateTx the same way the document store's
// transaction mechanism does.
type Memory struct {
	mu   sync.Mutex
	apps map[string]*models.Application
}

func NewMemory() *Memory {
	return &Memory{apps: make(map[string]*models.Application)}
}

// Put seeds or replaces a record.
func (m *Memory) Put(app *models.Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = clone(app)
}

func (m *Memory) Get(ctx context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(app), nil
}

func (m *Memory) Merge(ctx context.Context, id string, mut Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return ErrNotFound
	}
	apply(app, mut)
	return nil
}

func (m *Memory) UpdateTx(ctx context.Context, id string, fn func(app *models.Application) (Mutation, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return ErrNotFound
	}
	mut, err := fn(clone(app))
	if err != nil {
		return err
	}
	if mut.IsZero() {
		return nil
	}
	apply(app, mut)
	return nil
}

func apply(app *models.Application, mut Mutation) {
	if mut.Status != nil {
		app.Status = *mut.Status
	}
	if mut.NotificationSent != nil {
		app.NotificationSent = *mut.NotificationSent
	}
	if mut.PaidPaymentEventID != nil {
		app.PaidPaymentEventID = *mut.PaidPaymentEventID
	}
	if mut.PaidAmount != nil {
		app.PaidAmount = *mut.PaidAmount
	}
	if mut.PaidCurrency != nil {
		app.PaidCurrency = *mut.PaidCurrency
	}
	if mut.UpdatedAt != nil {
		app.UpdatedAt = *mut.UpdatedAt
	}
	switch {
	case mut.Lock != nil:
		lock := *mut.Lock
		app.NotificationLock = &lock
	case mut.ClearLock:
		app.NotificationLock = nil
	}
	if mut.Applicants != nil {
		app.Applicants = append([]models.Applicant(nil), mut.Applicants...)
	}
}

func clone(app *models.Application) *models.Application {
	out := *app
	out.Applicants = append([]models.Applicant(nil), app.Applicants...)
	if app.NotificationLock != nil {
		lock := *app.NotificationLock
		out.NotificationLock = &lock
	}
	return &out
}
