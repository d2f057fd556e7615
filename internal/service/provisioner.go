package service

import (
	"context"
	"errors"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/repository"
)

// ContractProvisioner derives the contract and its payment schedule from a
// signed quote. It only writes through the repositories it is given, so the
// caller decides the transaction boundary.
type ContractProvisioner struct{}

// Provision resolves the terms snapshot, inserts the contract and schedule and
// marks the car rented
func (p *ContractProvisioner) Provision(ctx context.Context, repos *repository.Repositories, quote *domain.Quote,
	sig *domain.CustomerSignature, now time.Time) (*domain.Contract, error) {
	var termsVersionID *int32
	tv, err := repos.Terms.GetActiveVersion(ctx, quote.CompanyID)
	switch {
	case err == nil:
		termsVersionID = int32Ref(tv.ID)
	case errors.Is(err, domain.ErrNotFound):
		// Companies without published terms still get contracts
	default:
		return nil, err
	}

	terms := quote.Terms
	special, err := repos.Terms.ListDefaultSpecialTerms(ctx, quote.CompanyID,
		[]domain.ContractType{terms.ContractType, domain.ContractTypeAll})
	if err != nil {
		return nil, err
	}

	start := truncateToDate(now)
	if quote.StartDate != nil {
		start = *quote.StartDate
	}

	contract := &domain.Contract{
		CompanyID:      quote.CompanyID,
		QuoteID:        quote.ID,
		CarID:          quote.CarID,
		CustomerID:     quote.CustomerID,
		SignatureID:    sig.ID,
		ContractType:   terms.ContractType,
		StartDate:      start,
		EndDate:        quote.EndDate,
		TermMonths:     terms.TermMonths,
		Deposit:        quote.Deposit,
		MonthlyRent:    quote.RentPrice,
		Status:         domain.ContractStatusActive,
		TermsVersionID: termsVersionID,
		SpecialTerms:   renderSpecialTerms(special),
		CreatedOn:      now,
	}
	if err := repos.Contracts.Create(ctx, contract); err != nil {
		return nil, err
	}

	schedule := BuildPaymentSchedule(contract.ID, contract.StartDate, contract.TermMonths, contract.MonthlyRent, contract.Deposit)
	if err := repos.Schedules.CreateBatch(ctx, schedule); err != nil {
		return nil, err
	}

	if err := repos.Cars.SetStatus(ctx, quote.CarID, domain.CarStatusRented); err != nil {
		return nil, err
	}
	return contract, nil
}
