// internal/models/notification.go
package models

import "time"

// Notification delivery modes.
const (
	NotificationModeBatch        = "batch"
	NotificationModePersonalized = "personalized"
	NotificationModeAdmin        = "admin"
)

// NotificationRecord is one delivered email, persisted to the notification
// log for support and reconciliation.
type NotificationRecord struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	EventID       string    `json:"eventId"`
	Mode          string    `json:"mode"`
	Recipient     string    `json:"recipient"`
	MessageID     string    `json:"messageId,omitempty"`
	SentAt        time.Time `json:"sentAt"`
}
