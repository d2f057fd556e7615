package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

type contractRepository struct {
	db repository.DBTX
}

func NewContractRepository(db repository.DBTX) repository.ContractRepository {
	return &contractRepository{db: db}
}

const contractColumns = `id, company_id, quote_id, car_id, customer_id, signature_id, contract_type, start_date, end_date,
	term_months, deposit, monthly_rent, status, terms_version_id, COALESCE(special_terms, ''), COALESCE(pdf_url, ''),
	pdf_stored_at, created_on`

func scanContract(s scanner) (*domain.Contract, error) {
	c := &domain.Contract{}
	var (
		customerID, termsVersionID sql.NullInt32
		endDate, pdfStoredAt       sql.NullTime
	)
	err := s.Scan(&c.ID, &c.CompanyID, &c.QuoteID, &c.CarID, &customerID, &c.SignatureID, &c.ContractType,
		&c.StartDate, &endDate, &c.TermMonths, &c.Deposit, &c.MonthlyRent, &c.Status, &termsVersionID,
		&c.SpecialTerms, &c.PDFURL, &pdfStoredAt, &c.CreatedOn)
	if err != nil {
		return nil, err
	}
	c.CustomerID = int32Ptr(customerID)
	c.TermsVersionID = int32Ptr(termsVersionID)
	c.EndDate = timePtr(endDate)
	c.PDFStoredAt = timePtr(pdfStoredAt)
	return c, nil
}

// Create inserts the contract. A second contract for the same quote violates
// contracts_quote_id_key and surfaces as domain.ErrConflict.
func (r *contractRepository) Create(ctx context.Context, c *domain.Contract) error {
	logger.EnterMethod("contractRepository.Create", "quoteID", c.QuoteID)

	if c.CreatedOn.IsZero() {
		c.CreatedOn = time.Now()
	}
	query := `INSERT INTO contracts (company_id, quote_id, car_id, customer_id, signature_id, contract_type, start_date,
	              end_date, term_months, deposit, monthly_rent, status, terms_version_id, special_terms, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`
	logger.DatabaseCall("INSERT", "contracts", "quoteID", c.QuoteID)
	err := r.db.QueryRowContext(ctx, query, c.CompanyID, c.QuoteID, c.CarID, nullInt32(c.CustomerID), c.SignatureID,
		c.ContractType, c.StartDate, nullTime(c.EndDate), c.TermMonths, c.Deposit, c.MonthlyRent, c.Status,
		nullInt32(c.TermsVersionID), c.SpecialTerms, c.CreatedOn).Scan(&c.ID)
	logger.DatabaseResult("INSERT", 1, err, "contractID", c.ID)

	if err != nil {
		err = mapError(err, fmt.Sprintf("contract for quote %d", c.QuoteID))
		logger.ExitMethodWithError("contractRepository.Create", err)
		return err
	}
	logger.ExitMethod("contractRepository.Create", "contractID", c.ID)
	return nil
}

func (r *contractRepository) GetByID(ctx context.Context, id int32) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("contract %d", id))
	}
	return c, nil
}

func (r *contractRepository) GetByQuote(ctx context.Context, quoteID int32) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE quote_id = $1`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, quoteID))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("contract for quote %d", quoteID))
	}
	return c, nil
}

func (r *contractRepository) SetPDF(ctx context.Context, id int32, url string, at time.Time) (bool, error) {
	query := `UPDATE contracts SET pdf_url = $1, pdf_stored_at = $2 WHERE id = $3 AND pdf_url IS NULL`
	logger.DatabaseCall("UPDATE", "contracts.pdf_url", "contractID", id)
	res, err := r.db.ExecContext(ctx, query, url, at, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return false, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
