package domain

import "time"

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

type NotificationKind string

const (
	NotificationContractSignedCustomer NotificationKind = "contract_signed_customer"
	NotificationContractSignedCompany  NotificationKind = "contract_signed_company"
	NotificationQuoteShared            NotificationKind = "quote_shared"
	NotificationShareExpiring          NotificationKind = "share_expiring"
)

// Notification is an outbox row for one outgoing email.
type Notification struct {
	ID            int64              `json:"id"`
	CompanyID     int32              `json:"company_id"`
	QuoteID       *int32             `json:"quote_id,omitempty"`
	Kind          NotificationKind   `json:"kind"`
	Recipient     string             `json:"recipient"`
	RecipientName string             `json:"recipient_name"`
	Subject       string             `json:"subject"`
	Body          string             `json:"body"`
	Status        NotificationStatus `json:"status"`
	Attempts      int                `json:"attempts"`
	LastError     string             `json:"last_error,omitempty"`
	NextAttemptAt *time.Time         `json:"next_attempt_at,omitempty"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	CreatedOn     time.Time          `json:"created_on"`
}
