package store

import (
	"context"
	"testing"
	"time"

	"visaflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGet(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.Put(&models.Application{
		ID:     "app-1",
		Status: models.StatusSubmitted,
		Applicants: []models.Applicant{
			{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		},
	})

	t.Run("returns a copy of the stored record", func(t *testing.T) {
		app, err := mem.Get(ctx, "app-1")
		require.NoError(t, err)
		assert.Equal(t, "app-1", app.ID)
		assert.Equal(t, models.StatusSubmitted, app.Status)

		// Mutating the returned record must not leak into the store.
		app.Status = models.StatusCancelled
		app.Applicants[0].Email = "mutated@example.com"

		again, err := mem.Get(ctx, "app-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSubmitted, again.Status)
		assert.Equal(t, "ada@example.com", again.Applicants[0].Email)
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		_, err := mem.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("partial write leaves unrelated fields intact", func(t *testing.T) {
		mem := NewMemory()
		mem.Put(&models.Application{
			ID:      "app-1",
			Country: "JP",
			Status:  models.StatusSubmitted,
		})

		status := models.StatusProcessing
		sent := true
		require.NoError(t, mem.Merge(ctx, "app-1", Mutation{
			Status:           &status,
			NotificationSent: &sent,
		}))

		app, err := mem.Get(ctx, "app-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, app.Status)
		assert.True(t, app.NotificationSent)
		assert.Equal(t, "JP", app.Country)
	})

	t.Run("ClearLock removes the lock only", func(t *testing.T) {
		mem := NewMemory()
		mem.Put(&models.Application{
			ID:               "app-1",
			Status:           models.StatusSubmitted,
			NotificationLock: &models.NotificationLock{EventID: "evt_1", ClaimedAt: time.Now()},
		})

		require.NoError(t, mem.Merge(ctx, "app-1", Mutation{ClearLock: true}))

		app, err := mem.Get(ctx, "app-1")
		require.NoError(t, err)
		assert.Nil(t, app.NotificationLock)
		assert.Equal(t, models.StatusSubmitted, app.Status)
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		mem := NewMemory()
		err := mem.Merge(ctx, "missing", Mutation{ClearLock: true})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryUpdateTx(t *testing.T) {
	ctx := context.Background()

	t.Run("zero mutation commits without writing", func(t *testing.T) {
		mem := NewMemory()
		mem.Put(&models.Application{ID: "app-1", Status: models.StatusSubmitted})

		err := mem.UpdateTx(ctx, "app-1", func(app *models.Application) (Mutation, error) {
			return Mutation{}, nil
		})
		require.NoError(t, err)

		app, err := mem.Get(ctx, "app-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSubmitted, app.Status)
	})

	t.Run("fn error aborts the transaction", func(t *testing.T) {
		mem := NewMemory()
		mem.Put(&models.Application{ID: "app-1", Status: models.StatusSubmitted})

		sentinel := assert.AnError
		status := models.StatusProcessing
		err := mem.UpdateTx(ctx, "app-1", func(app *models.Application) (Mutation, error) {
			return Mutation{Status: &status}, sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		app, getErr := mem.Get(ctx, "app-1")
		require.NoError(t, getErr)
		assert.Equal(t, models.StatusSubmitted, app.Status)
	})
}

// Concurrent pipeline writes and admin-style edits to unrelated fields must
// both survive.
func TestMemoryConcurrentMergesDoNotClobber(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.Put(&models.Application{ID: "app-1", Status: models.StatusSubmitted, Country: "JP"})

	done := make(chan error, 2)
	go func() {
		status := models.StatusProcessing
		done <- mem.Merge(ctx, "app-1", Mutation{Status: &status})
	}()
	go func() {
		done <- mem.Merge(ctx, "app-1", Mutation{
			Lock: &models.NotificationLock{EventID: "evt_1", ClaimedAt: time.Now()},
		})
	}()
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}

	app, err := mem.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, app.Status)
	require.NotNil(t, app.NotificationLock)
	assert.Equal(t, "evt_1", app.NotificationLock.EventID)
	assert.Equal(t, "JP", app.Country)
}
