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

// stalePendingAfter is how long a pending row may sit before the retry job
// assumes the process that queued it died
const stalePendingAfter = 15 * time.Minute

type notificationRepository struct {
	db repository.DBTX
}

func NewNotificationRepository(db repository.DBTX) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, company_id, quote_id, kind, recipient, COALESCE(recipient_name, ''), subject, body, status,
	attempts, COALESCE(last_error, ''), next_attempt_at, sent_at, created_on`

func scanNotification(s scanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	var (
		quoteID               sql.NullInt32
		nextAttemptAt, sentAt sql.NullTime
	)
	if err := s.Scan(&n.ID, &n.CompanyID, &quoteID, &n.Kind, &n.Recipient, &n.RecipientName, &n.Subject, &n.Body,
		&n.Status, &n.Attempts, &n.LastError, &nextAttemptAt, &sentAt, &n.CreatedOn); err != nil {
		return nil, err
	}
	n.QuoteID = int32Ptr(quoteID)
	n.NextAttemptAt = timePtr(nextAttemptAt)
	n.SentAt = timePtr(sentAt)
	return n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "kind", n.Kind, "companyID", n.CompanyID)

	if n.Status == "" {
		n.Status = domain.NotificationStatusPending
	}
	if n.CreatedOn.IsZero() {
		n.CreatedOn = time.Now()
	}
	query := `INSERT INTO notification_outbox (company_id, quote_id, kind, recipient, recipient_name, subject, body, status, attempts, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	logger.DatabaseCall("INSERT", "notification_outbox", "companyID", n.CompanyID, "kind", n.Kind)
	err := r.db.QueryRowContext(ctx, query, n.CompanyID, nullInt32(n.QuoteID), n.Kind, n.Recipient,
		nullString(n.RecipientName), n.Subject, n.Body, n.Status, n.Attempts, n.CreatedOn).Scan(&n.ID)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "kind", n.Kind)
	} else {
		logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	}
	return err
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_outbox WHERE id = $1`
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("notification %d", id))
	}
	return n, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE notification_outbox SET status = 'sent', sent_at = $1, attempts = attempts + 1, last_error = NULL, next_attempt_at = NULL
	          WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastErr string, nextAttemptAt *time.Time) error {
	query := `UPDATE notification_outbox SET status = 'failed', attempts = $1, last_error = $2, next_attempt_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, attempts, lastErr, nullTime(nextAttemptAt), id)
	return err
}

// ListDue returns failed rows whose backoff has elapsed plus pending rows
// that were never picked up, oldest first
func (r *notificationRepository) ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_outbox
	          WHERE attempts < $2 AND (
	              (status = 'failed' AND (next_attempt_at IS NULL OR next_attempt_at <= $1))
	              OR (status = 'pending' AND created_on <= $3))
	          ORDER BY id ASC LIMIT $4`
	rows, err := r.db.QueryContext(ctx, query, now, maxAttempts, now.Add(-stalePendingAfter), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}
