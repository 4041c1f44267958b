// internal/models/application.go
package models

import "time"

// Application lifecycle statuses. The payment pipeline only ever moves a
// record from a pre-paid status to StatusProcessing; the remaining statuses
// are set by admin actions outside this service.
const (
	StatusDraft      = "draft"
	StatusSubmitted  = "submitted"
	StatusProcessing = "processing"
	StatusIssued     = "issued"
	StatusRejected   = "rejected"
	StatusCancelled  = "cancelled"
)

// Application is the persisted record for one visa application and its
// applicants. It is stored as a single document keyed by ID; all writes made
// by the pipeline are partial writes so that concurrent admin edits to other
// fields survive.
type Application struct {
	ID        string `json:"id" firestore:"-"`
	Country   string `json:"country" firestore:"country"`
	VisaType  string `json:"visaType" firestore:"visaType"`
	Status    string `json:"status" firestore:"status"`
	Reference string `json:"reference,omitempty" firestore:"reference,omitempty"`

	Applicants []Applicant `json:"applicants" firestore:"applicants"`

	// PaidPaymentEventID is the payment event that transitioned this record to
	// paid. Set exactly once per successful payment; used for de-duplication.
	PaidPaymentEventID string `json:"paidPaymentEventId,omitempty" firestore:"paidPaymentEventId,omitempty"`
	PaidAmount         int64  `json:"paidAmount,omitempty" firestore:"paidAmount,omitempty"`
	PaidCurrency       string `json:"paidCurrency,omitempty" firestore:"paidCurrency,omitempty"`

	// NotificationSent is true once the post-payment notification went out.
	// Once true, no further notification attempts are permitted.
	NotificationSent bool `json:"notificationSent" firestore:"notificationSent"`

	// NotificationLock exists only while a notification attempt is in flight.
	NotificationLock *NotificationLock `json:"notificationLock,omitempty" firestore:"notificationLock,omitempty"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Applicant is embedded in the Application document. Status mirrors (and may
// lag) the root status; DocumentURL points at an issued deliverable specific
// to this applicant, when one exists.
type Applicant struct {
	FirstName      string `json:"firstName" firestore:"firstName"`
	LastName       string `json:"lastName" firestore:"lastName"`
	Email          string `json:"email" firestore:"email"`
	PassportNumber string `json:"passportNumber,omitempty" firestore:"passportNumber,omitempty"`
	Nationality    string `json:"nationality,omitempty" firestore:"nationality,omitempty"`
	Status         string `json:"status" firestore:"status"`
	DocumentURL    string `json:"documentUrl,omitempty" firestore:"documentUrl,omitempty"`
}

// FullName joins the applicant's name parts for display in notifications.
func (a Applicant) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// NotificationLock marks an in-flight notification attempt. A lock older than
// the configured TTL is considered abandoned and may be reclaimed.
type NotificationLock struct {
	EventID   string    `json:"eventId" firestore:"eventId"`
	ClaimedAt time.Time `json:"claimedAt" firestore:"claimedAt"`
}
