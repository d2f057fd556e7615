package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/repository"
)

type termsRepository struct {
	db repository.DBTX
}

func NewTermsRepository(db repository.DBTX) repository.TermsRepository {
	return &termsRepository{db: db}
}

const termsColumns = `id, company_id, version, COALESCE(title, ''), COALESCE(content, ''), status, effective_from`

func (r *termsRepository) GetActiveVersion(ctx context.Context, companyID int32) (*domain.TermsVersion, error) {
	query := `SELECT ` + termsColumns + `
	          FROM contract_terms WHERE company_id = $1 AND status = 'active'
	          ORDER BY effective_from DESC NULLS LAST, id DESC LIMIT 1`
	return r.getVersion(ctx, fmt.Sprintf("active terms for company %d", companyID), query, companyID)
}

func (r *termsRepository) GetVersionByID(ctx context.Context, id int32) (*domain.TermsVersion, error) {
	query := `SELECT ` + termsColumns + ` FROM contract_terms WHERE id = $1`
	return r.getVersion(ctx, fmt.Sprintf("terms version %d", id), query, id)
}

func (r *termsRepository) getVersion(ctx context.Context, what, query string, arg int32) (*domain.TermsVersion, error) {
	v := &domain.TermsVersion{}
	var effectiveFrom sql.NullTime
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&v.ID, &v.CompanyID, &v.Version, &v.Title, &v.Content,
		&v.Status, &effectiveFrom)
	if err != nil {
		return nil, mapError(err, what)
	}
	v.EffectiveFrom = timePtr(effectiveFrom)
	return v, nil
}

func (r *termsRepository) ListDefaultSpecialTerms(ctx context.Context, companyID int32, types []domain.ContractType) ([]domain.SpecialTerm, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	query := `SELECT id, company_id, contract_type, title, content, sort_order, is_default, is_active
	          FROM contract_special_terms
	          WHERE company_id = $1 AND is_default = TRUE AND is_active = TRUE AND contract_type = ANY($2)
	          ORDER BY sort_order ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, companyID, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []domain.SpecialTerm
	for rows.Next() {
		var t domain.SpecialTerm
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.ContractType, &t.Title, &t.Content, &t.SortOrder, &t.IsDefault,
			&t.IsActive); err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
