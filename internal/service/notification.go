package service

import (
	"context"
	"time"

	"fleet-erp-backend/internal/dispatch"
	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

const retryBatch = 100

type notificationService struct {
	outbox      repository.NotificationRepository
	sender      EmailSender
	dispatcher  dispatch.Dispatcher
	lifecycle   LifecycleService
	maxAttempts int
	now         func() time.Time
}

// NewNotificationService creates the outbox backed email service. maxAttempts
// bounds delivery attempts per row across the queue and the retry job.
func NewNotificationService(outbox repository.NotificationRepository, sender EmailSender, d dispatch.Dispatcher,
	lifecycle LifecycleService, maxAttempts int) NotificationService {
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &notificationService{
		outbox:      outbox,
		sender:      sender,
		dispatcher:  d,
		lifecycle:   lifecycle,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Enqueue persists the row and hands delivery to the dispatcher. A full queue
// is not an error: the row stays pending and the retry job picks it up.
func (s *notificationService) Enqueue(ctx context.Context, n *domain.Notification) error {
	n.Status = domain.NotificationStatusPending
	n.Attempts = 0
	if n.CreatedOn.IsZero() {
		n.CreatedOn = s.now()
	}
	if err := s.outbox.Create(ctx, n); err != nil {
		return err
	}

	id := n.ID
	if err := s.dispatcher.Submit("notification:"+string(n.Kind), func(ctx context.Context) error {
		return s.Deliver(ctx, id)
	}); err != nil {
		logger.WarnContext(ctx, "Notification left for retry job", "notificationID", id, "error", err)
	}
	return nil
}

// Deliver makes one send attempt and records the outcome on the row
func (s *notificationService) Deliver(ctx context.Context, id int64) error {
	n, err := s.outbox.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.Status == domain.NotificationStatusSent || n.Attempts >= s.maxAttempts {
		return nil
	}

	logger.ExternalServiceCall(s.sender.Name(), "Send", "notificationID", n.ID, "kind", n.Kind)
	sendErr := s.sender.Send(ctx, EmailMessage{
		To:      n.Recipient,
		ToName:  n.RecipientName,
		Subject: n.Subject,
		Body:    n.Body,
	})
	logger.ExternalServiceResult(s.sender.Name(), "Send", sendErr, "notificationID", n.ID)

	now := s.now()
	if sendErr != nil {
		attempts := n.Attempts + 1
		var next *time.Time
		if attempts < s.maxAttempts {
			at := now.Add(retryBackoff(attempts))
			next = &at
		}
		if err := s.outbox.MarkFailed(ctx, n.ID, attempts, sendErr.Error(), next); err != nil {
			logger.Error("Failed to record notification failure", "notificationID", n.ID, "error", err)
		}
		return sendErr
	}

	if err := s.outbox.MarkSent(ctx, n.ID, now); err != nil {
		return err
	}
	if n.Kind == domain.NotificationQuoteShared && n.QuoteID != nil {
		s.lifecycle.Record(ctx, domain.LifecycleEvent{
			CompanyID: n.CompanyID,
			QuoteID:   *n.QuoteID,
			EventType: domain.EventSent,
			Channel:   domain.ChannelEmail,
			Recipient: n.Recipient,
			Metadata:  map[string]any{"notification_id": n.ID},
			CreatedOn: now,
		})
	}
	return nil
}

// RetryDue re-sends failed rows whose backoff elapsed and pending rows that
// were never delivered
func (s *notificationService) RetryDue(ctx context.Context) (RetryStats, error) {
	var stats RetryStats
	due, err := s.outbox.ListDue(ctx, s.now(), s.maxAttempts, retryBatch)
	if err != nil {
		return stats, err
	}
	for _, n := range due {
		stats.Attempted++
		if err := s.Deliver(ctx, n.ID); err != nil {
			stats.Failed++
			continue
		}
		stats.Sent++
	}
	return stats, nil
}

// retryBackoff grows quadratically in minutes, capped at six hours
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * time.Minute
	if d > 6*time.Hour {
		d = 6 * time.Hour
	}
	return d
}
