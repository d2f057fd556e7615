package domain

import "time"

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusActive   QuoteStatus = "active"
	QuoteStatusArchived QuoteStatus = "archived"
)

type Quote struct {
	ID             int32       `json:"id"`
	CompanyID      int32       `json:"company_id"`
	CustomerID     *int32      `json:"customer_id,omitempty"`
	CarID          int32       `json:"car_id"`
	RentPrice      int64       `json:"rent_price"` // monthly, VAT excluded
	Deposit        int64       `json:"deposit"`
	StartDate      *time.Time  `json:"start_date,omitempty"`
	EndDate        *time.Time  `json:"end_date,omitempty"`
	Terms          QuoteTerms  `json:"terms"`
	Status         QuoteStatus `json:"status"`
	TermsVersionID *int32      `json:"terms_version_id,omitempty"`
	SharedAt       *time.Time  `json:"shared_at,omitempty"`
	SignedAt       *time.Time  `json:"signed_at,omitempty"`
	CreatedOn      time.Time   `json:"created_on"`
	UpdatedOn      time.Time   `json:"updated_on"`
}

// IsArchived reports whether the quote can no longer be shared or signed.
func (q *Quote) IsArchived() bool {
	return q.Status == QuoteStatusArchived
}
