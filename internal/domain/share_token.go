package domain

import "time"

type ShareTokenStatus string

const (
	ShareTokenStatusActive  ShareTokenStatus = "active"
	ShareTokenStatusSigned  ShareTokenStatus = "signed"
	ShareTokenStatusRevoked ShareTokenStatus = "revoked"
)

type ShareToken struct {
	ID             int32            `json:"id"`
	Token          string           `json:"token"`
	QuoteID        int32            `json:"quote_id"`
	CompanyID      int32            `json:"company_id"`
	Status         ShareTokenStatus `json:"status"`
	ExpiresAt      time.Time        `json:"expires_at"`
	RecipientEmail string           `json:"recipient_email,omitempty"`
	CreatedBy      *int32           `json:"created_by,omitempty"`
	SignedAt       *time.Time       `json:"signed_at,omitempty"`
	RevokedAt      *time.Time       `json:"revoked_at,omitempty"`
	RemindedAt     *time.Time       `json:"reminded_at,omitempty"`
	CreatedOn      time.Time        `json:"created_on"`
}

// IsExpired reports whether the token is past its expiry at the given instant.
// Expiry is never written back as a status.
func (t *ShareToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
