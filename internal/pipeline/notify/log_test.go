package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"visaflow/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := models.NotificationRecord{
		ID:            "rec-1",
		ApplicationID: "app-1",
		EventID:       "evt_1",
		Mode:          models.NotificationModeBatch,
		Recipient:     "ada@example.com",
		MessageID:     "msg-1",
		SentAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(rec.ID, rec.ApplicationID, rec.EventID, rec.Mode, rec.Recipient, rec.MessageID, rec.SentAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewLog(db).Insert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO notifications").
		WillReturnError(errors.New("connection reset"))

	err = NewLog(db).Insert(context.Background(), models.NotificationRecord{ID: "rec-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert notification record")
}
