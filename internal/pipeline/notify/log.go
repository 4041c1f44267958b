package notify

import (
	"context"
	"database/sql"
	"fmt"

	"visaflow/internal/models"
)

// Log persists one row per delivered email for support and reconciliation.
// It is an append-only audit trail; the pipeline never reads it back.
type Log struct {
	db *sql.DB
}

func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

func (l *Log) Insert(ctx context.Context, rec models.NotificationRecord) error {
	query := `INSERT INTO notifications (id, application_id, event_id, mode, recipient, message_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := l.db.ExecContext(ctx, query,
		rec.ID, rec.ApplicationID, rec.EventID, rec.Mode, rec.Recipient, rec.MessageID, rec.SentAt)
	if err != nil {
		return fmt.Errorf("insert notification record: %w", err)
	}
	return nil
}
