package postgres

import (
	"context"
	"fmt"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

type signatureRepository struct {
	db repository.DBTX
}

func NewSignatureRepository(db repository.DBTX) repository.SignatureRepository {
	return &signatureRepository{db: db}
}

const signatureColumns = `id, quote_id, token_id, customer_name, COALESCE(customer_phone, ''), COALESCE(customer_email, ''),
	signature_data, agreed_terms, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_on`

func scanSignature(s scanner) (*domain.CustomerSignature, error) {
	sig := &domain.CustomerSignature{}
	err := s.Scan(&sig.ID, &sig.QuoteID, &sig.TokenID, &sig.CustomerName, &sig.CustomerPhone, &sig.CustomerEmail,
		&sig.SignatureData, &sig.AgreedTerms, &sig.IPAddress, &sig.UserAgent, &sig.CreatedOn)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (r *signatureRepository) Create(ctx context.Context, s *domain.CustomerSignature) error {
	if s.CreatedOn.IsZero() {
		s.CreatedOn = time.Now()
	}
	query := `INSERT INTO customer_signatures (quote_id, token_id, customer_name, customer_phone, customer_email,
	              signature_data, agreed_terms, ip_address, user_agent, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	logger.DatabaseCall("INSERT", "customer_signatures", "quoteID", s.QuoteID, "tokenID", s.TokenID)
	err := r.db.QueryRowContext(ctx, query, s.QuoteID, s.TokenID, s.CustomerName, nullString(s.CustomerPhone),
		nullString(s.CustomerEmail), s.SignatureData, s.AgreedTerms, nullString(s.IPAddress), nullString(s.UserAgent),
		s.CreatedOn).Scan(&s.ID)
	logger.DatabaseResult("INSERT", 1, err, "signatureID", s.ID)
	return mapError(err, "customer signature")
}

func (r *signatureRepository) GetByID(ctx context.Context, id int32) (*domain.CustomerSignature, error) {
	query := `SELECT ` + signatureColumns + ` FROM customer_signatures WHERE id = $1`
	sig, err := scanSignature(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("signature %d", id))
	}
	return sig, nil
}

func (r *signatureRepository) ListByQuote(ctx context.Context, quoteID int32) ([]domain.CustomerSignature, error) {
	query := `SELECT ` + signatureColumns + ` FROM customer_signatures WHERE quote_id = $1 ORDER BY created_on DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []domain.CustomerSignature
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, *sig)
	}
	return sigs, rows.Err()
}
