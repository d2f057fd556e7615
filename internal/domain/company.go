package domain

import "time"

type Company struct {
	ID                 int32  `json:"id"`
	Name               string `json:"name"`
	BusinessNumber     string `json:"business_number"`
	RepresentativeName string `json:"representative_name"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Address            string `json:"address"`
}

type Customer struct {
	ID        int32  `json:"id"`
	CompanyID int32  `json:"company_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type CarStatus string

const (
	CarStatusAvailable   CarStatus = "available"
	CarStatusRented      CarStatus = "rented"
	CarStatusMaintenance CarStatus = "maintenance"
)

type Car struct {
	ID        int32     `json:"id"`
	CompanyID int32     `json:"company_id"`
	Number    string    `json:"number"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Trim      string    `json:"trim"`
	Year      int       `json:"year"`
	FuelType  string    `json:"fuel_type"`
	Status    CarStatus `json:"status"`
}

type TermsVersionStatus string

const (
	TermsVersionActive   TermsVersionStatus = "active"
	TermsVersionDraft    TermsVersionStatus = "draft"
	TermsVersionArchived TermsVersionStatus = "archived"
)

// TermsVersion is a company's versioned legal boilerplate.
type TermsVersion struct {
	ID            int32              `json:"id"`
	CompanyID     int32              `json:"company_id"`
	Version       string             `json:"version"`
	Title         string             `json:"title"`
	Content       string             `json:"content"`
	Status        TermsVersionStatus `json:"status"`
	EffectiveFrom *time.Time         `json:"effective_from,omitempty"`
}

type SpecialTerm struct {
	ID           int32        `json:"id"`
	CompanyID    int32        `json:"company_id"`
	ContractType ContractType `json:"contract_type"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	SortOrder    int          `json:"sort_order"`
	IsDefault    bool         `json:"is_default"`
	IsActive     bool         `json:"is_active"`
}
