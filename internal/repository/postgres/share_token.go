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

type shareTokenRepository struct {
	db repository.DBTX
}

func NewShareTokenRepository(db repository.DBTX) repository.ShareTokenRepository {
	return &shareTokenRepository{db: db}
}

const shareTokenColumns = `id, token, quote_id, company_id, status, expires_at, COALESCE(recipient_email, ''),
	created_by, signed_at, revoked_at, reminded_at, created_on`

func scanShareToken(s scanner) (*domain.ShareToken, error) {
	t := &domain.ShareToken{}
	var (
		createdBy                       sql.NullInt32
		signedAt, revokedAt, remindedAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.Token, &t.QuoteID, &t.CompanyID, &t.Status, &t.ExpiresAt, &t.RecipientEmail,
		&createdBy, &signedAt, &revokedAt, &remindedAt, &t.CreatedOn); err != nil {
		return nil, err
	}
	t.CreatedBy = int32Ptr(createdBy)
	t.SignedAt = timePtr(signedAt)
	t.RevokedAt = timePtr(revokedAt)
	t.RemindedAt = timePtr(remindedAt)
	return t, nil
}

func (r *shareTokenRepository) Create(ctx context.Context, t *domain.ShareToken) error {
	logger.EnterMethod("shareTokenRepository.Create", "quoteID", t.QuoteID)

	if t.CreatedOn.IsZero() {
		t.CreatedOn = time.Now()
	}
	query := `INSERT INTO quote_share_tokens (token, quote_id, company_id, status, expires_at, recipient_email, created_by, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	logger.DatabaseCall("INSERT", "quote_share_tokens", "quoteID", t.QuoteID)
	err := r.db.QueryRowContext(ctx, query, t.Token, t.QuoteID, t.CompanyID, t.Status, t.ExpiresAt,
		nullString(t.RecipientEmail), nullInt32(t.CreatedBy), t.CreatedOn).Scan(&t.ID)
	logger.DatabaseResult("INSERT", 1, err, "tokenID", t.ID)

	if err != nil {
		err = mapError(err, "share token")
		logger.ExitMethodWithError("shareTokenRepository.Create", err, "quoteID", t.QuoteID)
		return err
	}
	logger.ExitMethod("shareTokenRepository.Create", "tokenID", t.ID)
	return nil
}

func (r *shareTokenRepository) GetByToken(ctx context.Context, token string) (*domain.ShareToken, error) {
	query := `SELECT ` + shareTokenColumns + ` FROM quote_share_tokens WHERE token = $1`
	t, err := scanShareToken(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		return nil, mapError(err, "share token")
	}
	return t, nil
}

func (r *shareTokenRepository) GetByTokenForUpdate(ctx context.Context, token string) (*domain.ShareToken, error) {
	query := `SELECT ` + shareTokenColumns + ` FROM quote_share_tokens WHERE token = $1 FOR UPDATE`
	t, err := scanShareToken(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		return nil, mapError(err, "share token")
	}
	return t, nil
}

func (r *shareTokenRepository) FindActiveByQuote(ctx context.Context, quoteID int32, now time.Time) (*domain.ShareToken, error) {
	query := `SELECT ` + shareTokenColumns + ` FROM quote_share_tokens
	          WHERE quote_id = $1 AND status = 'active' AND expires_at > $2
	          ORDER BY created_on DESC, id DESC LIMIT 1`
	t, err := scanShareToken(r.db.QueryRowContext(ctx, query, quoteID, now))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("active share token for quote %d", quoteID))
	}
	return t, nil
}

func (r *shareTokenRepository) ListByQuote(ctx context.Context, quoteID int32) ([]domain.ShareToken, error) {
	query := `SELECT ` + shareTokenColumns + ` FROM quote_share_tokens WHERE quote_id = $1 ORDER BY created_on DESC, id DESC`
	return r.list(ctx, query, quoteID)
}

func (r *shareTokenRepository) RevokeActiveByQuote(ctx context.Context, quoteID int32, at time.Time) (int64, error) {
	query := `UPDATE quote_share_tokens SET status = 'revoked', revoked_at = $1 WHERE quote_id = $2 AND status = 'active'`
	logger.DatabaseCall("UPDATE", "quote_share_tokens", "quoteID", quoteID)
	res, err := r.db.ExecContext(ctx, query, at, quoteID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	return n, err
}

func (r *shareTokenRepository) MarkSigned(ctx context.Context, id int32, at time.Time) error {
	query := `UPDATE quote_share_tokens SET status = 'signed', signed_at = $1 WHERE id = $2 AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: share token %d is no longer active", domain.ErrAlreadyUsed, id)
	}
	return nil
}

func (r *shareTokenRepository) ListExpiringUnreminded(ctx context.Context, from, to time.Time, limit int) ([]domain.ShareToken, error) {
	query := `SELECT ` + shareTokenColumns + ` FROM quote_share_tokens
	          WHERE status = 'active' AND reminded_at IS NULL AND expires_at > $1 AND expires_at <= $2
	          ORDER BY expires_at ASC LIMIT $3`
	return r.list(ctx, query, from, to, limit)
}

func (r *shareTokenRepository) MarkReminded(ctx context.Context, id int32, at time.Time) error {
	query := `UPDATE quote_share_tokens SET reminded_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

func (r *shareTokenRepository) list(ctx context.Context, query string, args ...any) ([]domain.ShareToken, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.ShareToken
	for rows.Next() {
		t, err := scanShareToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}
