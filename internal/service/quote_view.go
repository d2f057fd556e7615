package service

import (
	"context"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

// QuoteView is the customer-facing summary behind a share link
type QuoteView struct {
	QuoteID     int32             `json:"quoteId"`
	CompanyName string            `json:"companyName"`
	CompanyTel  string            `json:"companyPhone,omitempty"`
	Car         QuoteViewCar      `json:"car"`
	Terms       domain.QuoteTerms `json:"terms"`
	RentPrice   int64             `json:"rentPrice"`
	RentVAT     int64             `json:"rentVat"`
	Deposit     int64             `json:"deposit"`
	StartDate   *time.Time        `json:"startDate,omitempty"`
	EndDate     *time.Time        `json:"endDate,omitempty"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

type QuoteViewCar struct {
	Number   string `json:"number"`
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Trim     string `json:"trim,omitempty"`
	Year     int    `json:"year,omitempty"`
	FuelType string `json:"fuelType,omitempty"`
}

type quoteViewService struct {
	repos     *repository.Repositories
	shares    ShareService
	lifecycle LifecycleService
}

func NewQuoteViewService(repos *repository.Repositories, shares ShareService, lifecycle LifecycleService) QuoteViewService {
	return &quoteViewService{repos: repos, shares: shares, lifecycle: lifecycle}
}

// View validates the token, records a (deduplicated) view and returns the summary.
// Signed tokens fail with ErrAlreadyUsed so the page can say so.
func (s *quoteViewService) View(ctx context.Context, token string, visitor Visitor) (*QuoteView, error) {
	tok, err := s.shares.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	quote, err := s.repos.Quotes.GetByID(ctx, tok.QuoteID)
	if err != nil {
		return nil, err
	}
	company, err := s.repos.Companies.GetByID(ctx, quote.CompanyID)
	if err != nil {
		return nil, err
	}
	car, err := s.repos.Cars.GetByID(ctx, quote.CarID)
	if err != nil {
		return nil, err
	}

	s.lifecycle.RecordViewed(ctx, quote.CompanyID, quote.ID, visitor)
	logger.WithQuote(quote.ID).DebugContext(ctx, "Quote viewed", "tokenID", tok.ID)

	return &QuoteView{
		QuoteID:     quote.ID,
		CompanyName: company.Name,
		CompanyTel:  company.Phone,
		Car: QuoteViewCar{
			Number:   car.Number,
			Brand:    car.Brand,
			Model:    car.Model,
			Trim:     car.Trim,
			Year:     car.Year,
			FuelType: car.FuelType,
		},
		Terms:     quote.Terms,
		RentPrice: quote.RentPrice,
		RentVAT:   VATFor(quote.RentPrice),
		Deposit:   quote.Deposit,
		StartDate: quote.StartDate,
		EndDate:   quote.EndDate,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}
