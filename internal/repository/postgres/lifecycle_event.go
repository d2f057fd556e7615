package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

type lifecycleEventRepository struct {
	db repository.DBTX
}

func NewLifecycleEventRepository(db repository.DBTX) repository.LifecycleEventRepository {
	return &lifecycleEventRepository{db: db}
}

func (r *lifecycleEventRepository) Create(ctx context.Context, e *domain.LifecycleEvent) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if e.CreatedOn.IsZero() {
		e.CreatedOn = time.Now()
	}

	query := `INSERT INTO quote_lifecycle_events (company_id, quote_id, contract_id, event_type, channel, recipient, metadata, actor_id, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	logger.DatabaseCall("INSERT", "quote_lifecycle_events", "quoteID", e.QuoteID, "type", e.EventType)
	err = r.db.QueryRowContext(ctx, query, e.CompanyID, e.QuoteID, nullInt32(e.ContractID), e.EventType,
		nullString(string(e.Channel)), nullString(e.Recipient), metaJSON, nullInt32(e.ActorID), e.CreatedOn).Scan(&e.ID)
	logger.DatabaseResult("INSERT", 1, err, "eventID", e.ID)
	return err
}

// ListByQuote returns the newest events first
func (r *lifecycleEventRepository) ListByQuote(ctx context.Context, quoteID int32, limit int) ([]domain.LifecycleEvent, error) {
	query := `SELECT id, company_id, quote_id, contract_id, event_type, COALESCE(channel, ''), COALESCE(recipient, ''),
	                 COALESCE(metadata, '{}'::jsonb), actor_id, created_on
	          FROM quote_lifecycle_events WHERE quote_id = $1
	          ORDER BY created_on DESC, id DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, quoteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.LifecycleEvent
	for rows.Next() {
		var (
			e                   domain.LifecycleEvent
			contractID, actorID sql.NullInt32
			metaJSON            []byte
		)
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.QuoteID, &contractID, &e.EventType, &e.Channel, &e.Recipient,
			&metaJSON, &actorID, &e.CreatedOn); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
				return nil, err
			}
		}
		e.ContractID = int32Ptr(contractID)
		e.ActorID = int32Ptr(actorID)
		events = append(events, e)
	}
	return events, rows.Err()
}

// viewLockClass namespaces the per-quote advisory lock taken by CreateViewOnce
const viewLockClass = 7301

func (r *lifecycleEventRepository) CreateViewOnce(ctx context.Context, e *domain.LifecycleEvent, since time.Time, fingerprint string) (bool, error) {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, viewLockClass, e.QuoteID); err != nil {
		return false, err
	}

	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}
	if e.CreatedOn.IsZero() {
		e.CreatedOn = time.Now()
	}

	query := `INSERT INTO quote_lifecycle_events (company_id, quote_id, event_type, channel, metadata, created_on)
	          SELECT $1::int, $2::int, 'viewed', $3::varchar, $4::jsonb, $5::timestamptz
	          WHERE NOT EXISTS (
	              SELECT 1 FROM quote_lifecycle_events
	              WHERE quote_id = $2 AND event_type = 'viewed' AND created_on >= $6
	                AND ($7::text = '' OR metadata->>'visitor' = $7::text))
	          RETURNING id`
	logger.DatabaseCall("INSERT", "quote_lifecycle_events", "quoteID", e.QuoteID, "type", e.EventType)
	err = r.db.QueryRowContext(ctx, query, e.CompanyID, e.QuoteID, nullString(string(e.Channel)), string(metaJSON),
		e.CreatedOn, since, fingerprint).Scan(&e.ID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("INSERT", 0, nil, "quoteID", e.QuoteID)
		return false, nil
	}
	logger.DatabaseResult("INSERT", 1, err, "eventID", e.ID)
	return err == nil, err
}
