package store

import (
	"context"
	"fmt"

	"visaflow/internal/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores each Application as one document in a collection.
// Single-document transactions give the linearized read-modify-write the
// claim step depends on.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	return &Firestore{client: client, collection: collection}
}

func (s *Firestore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *Firestore) Get(ctx context.Context, id string) (*models.Application, error) {
	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return decode(snap)
}

func (s *Firestore) Merge(ctx context.Context, id string, mut Mutation) error {
	updates := fieldUpdates(mut)
	if len(updates) == 0 {
		return nil
	}
	if _, err := s.doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("merge application %s: %w", id, err)
	}
	return nil
}

func (s *Firestore) UpdateTx(ctx context.Context, id string, fn func(app *models.Application) (Mutation, error)) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(s.doc(id))
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return fmt.Errorf("tx get application %s: %w", id, err)
		}

		app, err := decode(snap)
		if err != nil {
			return err
		}

		mut, err := fn(app)
		if err != nil {
			return err
		}
		if mut.IsZero() {
			return nil
		}
		return tx.Update(s.doc(id), fieldUpdates(mut))
	})
}

func decode(snap *firestore.DocumentSnapshot) (*models.Application, error) {
	var app models.Application
	if err := snap.DataTo(&app); err != nil {
		return nil, fmt.Errorf("decode application %s: %w", snap.Ref.ID, err)
	}
	app.ID = snap.Ref.ID
	return &app, nil
}

func fieldUpdates(mut Mutation) []firestore.Update {
	var updates []firestore.Update
	if mut.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: *mut.Status})
	}
	if mut.NotificationSent != nil {
		updates = append(updates, firestore.Update{Path: "notificationSent", Value: *mut.NotificationSent})
	}
	if mut.PaidPaymentEventID != nil {
		updates = append(updates, firestore.Update{Path: "paidPaymentEventId", Value: *mut.PaidPaymentEventID})
	}
	if mut.PaidAmount != nil {
		updates = append(updates, firestore.Update{Path: "paidAmount", Value: *mut.PaidAmount})
	}
	if mut.PaidCurrency != nil {
		updates = append(updates, firestore.Update{Path: "paidCurrency", Value: *mut.PaidCurrency})
	}
	if mut.UpdatedAt != nil {
		updates = append(updates, firestore.Update{Path: "updatedAt", Value: *mut.UpdatedAt})
	}
	switch {
	case mut.Lock != nil:
		updates = append(updates, firestore.Update{Path: "notificationLock", Value: *mut.Lock})
	case mut.ClearLock:
		updates = append(updates, firestore.Update{Path: "notificationLock", Value: firestore.Delete})
	}
	if mut.Applicants != nil {
		updates = append(updates, firestore.Update{Path: "applicants", Value: mut.Applicants})
	}
	return updates
}
