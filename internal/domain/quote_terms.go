package domain

import (
	"time"

	"fleet-erp-backend/internal/utils"
)

type ContractType string

const (
	ContractTypeReturn ContractType = "return"
	ContractTypeBuyout ContractType = "buyout"
	// ContractTypeAll only appears on special-terms templates.
	ContractTypeAll ContractType = "all"
)

const (
	DefaultTermMonths         = 36
	DefaultAnnualMileageKm    = 20000
	DefaultMaintenancePackage = "self"
	DefaultDriverAgeBracket   = "26+"
	DefaultDeductible         = int64(300000)
)

// QuoteDetail is the loosely typed detail document exactly as it is stored on the quote row.
// Every field is optional; NewQuoteTerms is the only place defaults are applied.
type QuoteDetail struct {
	ContractType       string `json:"contract_type,omitempty"`
	TermMonths         int    `json:"term_months,omitempty"`
	AnnualMileageKm    int    `json:"annual_mileage_km,omitempty"`
	MaintenancePackage string `json:"maintenance_package,omitempty"`
	DriverAgeBracket   string `json:"driver_age_bracket,omitempty"`
	Deductible         *int64 `json:"deductible,omitempty"`
	BuyoutPrice        int64  `json:"buyout_price,omitempty"`
}

type QuoteTerms struct {
	ContractType       ContractType `json:"contract_type"`
	TermMonths         int          `json:"term_months"`
	AnnualMileageKm    int          `json:"annual_mileage_km"`
	MaintenancePackage string       `json:"maintenance_package"`
	DriverAgeBracket   string       `json:"driver_age_bracket"`
	Deductible         int64        `json:"deductible"`
	BuyoutPrice        int64        `json:"buyout_price"`
}

// NewQuoteTerms fills every missing detail field. Term months fall back to the whole
// calendar months between start and end, then to DefaultTermMonths.
func NewQuoteTerms(d QuoteDetail, start, end *time.Time) QuoteTerms {
	t := QuoteTerms{
		ContractType:       ContractTypeReturn,
		TermMonths:         d.TermMonths,
		AnnualMileageKm:    d.AnnualMileageKm,
		MaintenancePackage: d.MaintenancePackage,
		DriverAgeBracket:   d.DriverAgeBracket,
		Deductible:         DefaultDeductible,
		BuyoutPrice:        d.BuyoutPrice,
	}
	if ContractType(d.ContractType) == ContractTypeBuyout {
		t.ContractType = ContractTypeBuyout
	}
	if t.TermMonths <= 0 && start != nil && end != nil {
		t.TermMonths = utils.MonthsBetween(*start, *end)
	}
	if t.TermMonths <= 0 {
		t.TermMonths = DefaultTermMonths
	}
	if t.AnnualMileageKm <= 0 {
		t.AnnualMileageKm = DefaultAnnualMileageKm
	}
	if t.MaintenancePackage == "" {
		t.MaintenancePackage = DefaultMaintenancePackage
	}
	if t.DriverAgeBracket == "" {
		t.DriverAgeBracket = DefaultDriverAgeBracket
	}
	if d.Deductible != nil && *d.Deductible >= 0 {
		t.Deductible = *d.Deductible
	}
	if t.ContractType == ContractTypeReturn || t.BuyoutPrice < 0 {
		t.BuyoutPrice = 0
	}
	return t
}

// Detail converts the terms back into the stored document shape.
func (t QuoteTerms) Detail() QuoteDetail {
	deductible := t.Deductible
	return QuoteDetail{
		ContractType:       string(t.ContractType),
		TermMonths:         t.TermMonths,
		AnnualMileageKm:    t.AnnualMileageKm,
		MaintenancePackage: t.MaintenancePackage,
		DriverAgeBracket:   t.DriverAgeBracket,
		Deductible:         &deductible,
		BuyoutPrice:        t.BuyoutPrice,
	}
}
