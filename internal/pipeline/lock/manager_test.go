package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	stderrors "visaflow/internal/common/errors"
	"visaflow/internal/common/logger"
	"visaflow/internal/models"
	"visaflow/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, st store.Store) *Manager {
	t.Helper()
	return NewManager(st, logger.NewTestLogger(t), 10*time.Minute)
}

func TestClaimDecisionTable(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tests := []struct {
		name       string
		app        *models.Application
		eventID    string
		wantOK     bool
		wantReason Reason
	}{
		{
			name:       "fresh submitted application claims successfully",
			app:        &models.Application{ID: "app-1", Status: models.StatusSubmitted},
			eventID:    "evt_1",
			wantOK:     true,
		},
		{
			name: "notification already sent wins over everything",
			app: &models.Application{
				ID:                 "app-1",
				Status:             models.StatusProcessing,
				NotificationSent:   true,
				PaidPaymentEventID: "evt_1",
			},
			eventID:    "evt_1",
			wantReason: ReasonAlreadyEmailed,
		},
		{
			name: "same event already committed",
			app: &models.Application{
				ID:                 "app-1",
				Status:             models.StatusProcessing,
				PaidPaymentEventID: "evt_1",
			},
			eventID:    "evt_1",
			wantReason: ReasonAlreadyProcessedEvent,
		},
		{
			name: "same event currently locked",
			app: &models.Application{
				ID:               "app-1",
				Status:           models.StatusSubmitted,
				NotificationLock: &models.NotificationLock{EventID: "evt_1", ClaimedAt: now},
			},
			eventID:    "evt_1",
			wantReason: ReasonAlreadyLockedSameEvent,
		},
		{
			name: "different event holds a fresh lock",
			app: &models.Application{
				ID:               "app-1",
				Status:           models.StatusSubmitted,
				NotificationLock: &models.NotificationLock{EventID: "evt_other", ClaimedAt: now.Add(-time.Minute)},
			},
			eventID:    "evt_1",
			wantReason: ReasonLockedRecently,
		},
		{
			name: "stale lock from a different event is reclaimed",
			app: &models.Application{
				ID:               "app-1",
				Status:           models.StatusSubmitted,
				NotificationLock: &models.NotificationLock{EventID: "evt_other", ClaimedAt: now.Add(-time.Hour)},
			},
			eventID: "evt_1",
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			mem.Put(tt.app)
			mgr := newTestManager(t, mem)

			decision, err := mgr.Claim(ctx, tt.app.ID, tt.eventID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, decision.OK)
			assert.Equal(t, tt.wantReason, decision.Reason)

			app, err := mem.Get(ctx, tt.app.ID)
			require.NoError(t, err)
			if tt.wantOK {
				require.NotNil(t, app.NotificationLock)
				assert.Equal(t, tt.eventID, app.NotificationLock.EventID)
			} else {
				// A rejected claim writes nothing.
				assert.Equal(t, tt.app.NotificationLock, app.NotificationLock)
			}
		})
	}
}

func TestClaimMissingApplication(t *testing.T) {
	mgr := newTestManager(t, store.NewMemory())

	decision, err := mgr.Claim(context.Background(), "missing", "evt_1")
	require.NoError(t, err)
	assert.False(t, decision.OK)
	assert.Equal(t, ReasonNotFound, decision.Reason)
}

func TestClaimStoreFailureIsRetryable(t *testing.T) {
	mgr := newTestManager(t, failingStore{})

	_, err := mgr.Claim(context.Background(), "app-1", "evt_1")
	require.Error(t, err)
	stdErr := stderrors.Normalize(err)
	assert.Equal(t, stderrors.ErrCodeStoreUnavailable, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// At most one of N concurrent claims for the same (application, event) may
// succeed; everyone else sees the lock.
func TestConcurrentClaimsSingleWinner(t *testing.T) {
	const attempts = 32

	mem := store.NewMemory()
	mem.Put(&models.Application{ID: "app-1", Status: models.StatusSubmitted})
	mgr := NewManager(mem, logger.NewNoOpLogger(), 10*time.Minute)

	var wg sync.WaitGroup
	decisions := make([]Decision, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := mgr.Claim(context.Background(), "app-1", "evt_1")
			assert.NoError(t, err)
			decisions[i] = d
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, d := range decisions {
		if d.OK {
			winners++
		} else {
			assert.Equal(t, ReasonAlreadyLockedSameEvent, d.Reason)
		}
	}
	assert.Equal(t, 1, winners)
}

// Release after a failed dispatch re-opens the door for the same event.
func TestReleaseEnablesRetry(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.Put(&models.Application{ID: "app-1", Status: models.StatusSubmitted})
	mgr := newTestManager(t, mem)

	first, err := mgr.Claim(ctx, "app-1", "evt_1")
	require.NoError(t, err)
	require.True(t, first.OK)

	blocked, err := mgr.Claim(ctx, "app-1", "evt_1")
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyLockedSameEvent, blocked.Reason)

	require.NoError(t, mgr.Release(ctx, "app-1"))

	retry, err := mgr.Claim(ctx, "app-1", "evt_1")
	require.NoError(t, err)
	assert.True(t, retry.OK)
}

func TestStaleLockReclaimHonorsTTL(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.Put(&models.Application{ID: "app-1", Status: models.StatusSubmitted})
	mgr := newTestManager(t, mem)

	base := time.Now().UTC()
	mgr.now = func() time.Time { return base }

	first, err := mgr.Claim(ctx, "app-1", "evt_1")
	require.NoError(t, err)
	require.True(t, first.OK)

	// Just inside the TTL: a different event is still blocked.
	mgr.now = func() time.Time { return base.Add(9 * time.Minute) }
	blocked, err := mgr.Claim(ctx, "app-1", "evt_2")
	require.NoError(t, err)
	assert.Equal(t, ReasonLockedRecently, blocked.Reason)

	// Past the TTL the lock counts as abandoned.
	mgr.now = func() time.Time { return base.Add(11 * time.Minute) }
	reclaimed, err := mgr.Claim(ctx, "app-1", "evt_2")
	require.NoError(t, err)
	assert.True(t, reclaimed.OK)

	app, err := mem.Get(ctx, "app-1")
	require.NoError(t, err)
	require.NotNil(t, app.NotificationLock)
	assert.Equal(t, "evt_2", app.NotificationLock.EventID)
}

func TestCommitStampsProcessedMarkers(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.Put(&models.Application{
		ID:               "app-1",
		Status:           models.StatusSubmitted,
		NotificationLock: &models.NotificationLock{EventID: "evt_1", ClaimedAt: time.Now()},
	})
	mgr := newTestManager(t, mem)

	require.NoError(t, mgr.Commit(ctx, "app-1", "evt_1"))

	app, err := mem.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.True(t, app.NotificationSent)
	assert.Equal(t, "evt_1", app.PaidPaymentEventID)
	assert.Nil(t, app.NotificationLock)

	// Replays of the committed event are rejected without touching the record.
	decision, err := mgr.Claim(ctx, "app-1", "evt_1")
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyEmailed, decision.Reason)
}

// failingStore simulates an unavailable document store.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, id string) (*models.Application, error) {
	return nil, assert.AnError
}

func (failingStore) Merge(ctx context.Context, id string, mut store.Mutation) error {
	return assert.AnError
}

func (failingStore) UpdateTx(ctx context.Context, id string, fn func(*models.Application) (store.Mutation, error)) error {
	return assert.AnError
}
