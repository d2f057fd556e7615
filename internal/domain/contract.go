package domain

import "time"

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusTerminated ContractStatus = "terminated"
	ContractStatusCompleted  ContractStatus = "completed"
)

// Contract is the binding record created exactly once per quote. Its terms are a
// snapshot taken at signing and never follow later template edits.
type Contract struct {
	ID             int32          `json:"id"`
	CompanyID      int32          `json:"company_id"`
	QuoteID        int32          `json:"quote_id"`
	CarID          int32          `json:"car_id"`
	CustomerID     *int32         `json:"customer_id,omitempty"`
	SignatureID    int32          `json:"signature_id"`
	ContractType   ContractType   `json:"contract_type"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	TermMonths     int            `json:"term_months"`
	Deposit        int64          `json:"deposit"`
	MonthlyRent    int64          `json:"monthly_rent"`
	Status         ContractStatus `json:"status"`
	TermsVersionID *int32         `json:"terms_version_id,omitempty"`
	SpecialTerms   string         `json:"special_terms"`
	PDFURL         string         `json:"pdf_url,omitempty"`
	PDFStoredAt    *time.Time     `json:"pdf_stored_at,omitempty"`
	CreatedOn      time.Time      `json:"created_on"`
}

// HasPDF reports whether a rendered document is already linked to the contract.
func (c *Contract) HasPDF() bool {
	return c.PDFURL != ""
}
