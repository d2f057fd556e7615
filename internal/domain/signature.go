package domain

import "time"

type CustomerSignature struct {
	ID            int32     `json:"id"`
	QuoteID       int32     `json:"quote_id"`
	TokenID       int32     `json:"token_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	SignatureData string    `json:"signature_data"`
	AgreedTerms   bool      `json:"agreed_terms"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent"`
	CreatedOn     time.Time `json:"created_on"`
}
