package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

type quoteRepository struct {
	db repository.DBTX
}

func NewQuoteRepository(db repository.DBTX) repository.QuoteRepository {
	return &quoteRepository{db: db}
}

const quoteSelect = `SELECT id, company_id, customer_id, car_id, rent_price, deposit, start_date, end_date,
	                 COALESCE(quote_detail, '{}'::jsonb), status, terms_version_id, shared_at, signed_at, created_on, updated_on
	          FROM quotes WHERE id = $1`

func (r *quoteRepository) GetByID(ctx context.Context, id int32) (*domain.Quote, error) {
	return r.get(ctx, quoteSelect, id)
}

func (r *quoteRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Quote, error) {
	return r.get(ctx, quoteSelect+` FOR UPDATE`, id)
}

func (r *quoteRepository) get(ctx context.Context, query string, id int32) (*domain.Quote, error) {

	q := &domain.Quote{}
	var (
		customerID, termsVersionID sql.NullInt32
		startDate, endDate         sql.NullTime
		sharedAt, signedAt         sql.NullTime
		detailJSON                 []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&q.ID, &q.CompanyID, &customerID, &q.CarID, &q.RentPrice, &q.Deposit, &startDate, &endDate,
		&detailJSON, &q.Status, &termsVersionID, &sharedAt, &signedAt, &q.CreatedOn, &q.UpdatedOn,
	)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("quote %d", id))
	}

	var detail domain.QuoteDetail
	if len(detailJSON) > 0 {
		if err := json.Unmarshal(detailJSON, &detail); err != nil {
			// A malformed detail document still yields a usable quote with defaults
			logger.Warn("Malformed quote detail, using defaults", "quoteID", id, "error", err)
			detail = domain.QuoteDetail{}
		}
	}

	q.CustomerID = int32Ptr(customerID)
	q.TermsVersionID = int32Ptr(termsVersionID)
	q.StartDate = timePtr(startDate)
	q.EndDate = timePtr(endDate)
	q.SharedAt = timePtr(sharedAt)
	q.SignedAt = timePtr(signedAt)
	q.Terms = domain.NewQuoteTerms(detail, q.StartDate, q.EndDate)
	return q, nil
}

func (r *quoteRepository) MarkShared(ctx context.Context, id int32, at time.Time) error {
	query := `UPDATE quotes SET shared_at = $1, updated_on = $1 WHERE id = $2`
	return r.exec(ctx, "quotes.MarkShared", query, at, id)
}

func (r *quoteRepository) MarkSigned(ctx context.Context, id int32, at time.Time, termsVersionID *int32) error {
	query := `UPDATE quotes SET signed_at = $1, terms_version_id = COALESCE($2, terms_version_id), updated_on = $1 WHERE id = $3`
	return r.exec(ctx, "quotes.MarkSigned", query, at, nullInt32(termsVersionID), id)
}

func (r *quoteRepository) exec(ctx context.Context, op, query string, args ...any) error {
	logger.DatabaseCall("UPDATE", op)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: quote", domain.ErrNotFound)
	}
	return nil
}
