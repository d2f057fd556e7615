package service

import (
	"context"
	"time"

	"fleet-erp-backend/internal/dispatch"
	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
	"fleet-erp-backend/internal/security"
)

const (
	TimelineLimit = 100

	ViewDedupQuote   = "quote"
	ViewDedupVisitor = "visitor"
)

type lifecycleService struct {
	events      repository.LifecycleEventRepository
	quotes      repository.QuoteRepository
	tx          repository.TxManager
	dispatcher  dispatch.Dispatcher
	dedupWindow time.Duration
	dedupMode   string
	fingerprint *security.Fingerprinter
	now         func() time.Time
}

// NewLifecycleService creates the event log. tx scopes the view dedup check;
// fp is only used in visitor dedup mode.
func NewLifecycleService(events repository.LifecycleEventRepository, quotes repository.QuoteRepository, tx repository.TxManager,
	d dispatch.Dispatcher, dedupWindow time.Duration, dedupMode string, fp *security.Fingerprinter) LifecycleService {
	if dedupWindow <= 0 {
		dedupWindow = 10 * time.Minute
	}
	if dedupMode != ViewDedupVisitor || fp == nil {
		dedupMode = ViewDedupQuote
	}
	return &lifecycleService{
		events:      events,
		quotes:      quotes,
		tx:          tx,
		dispatcher:  d,
		dedupWindow: dedupWindow,
		dedupMode:   dedupMode,
		fingerprint: fp,
		now:         time.Now,
	}
}

// Record masks the recipient, stamps the event and appends it off the request path.
// The timestamp is taken here so queueing delay never reorders the trail.
func (s *lifecycleService) Record(ctx context.Context, e domain.LifecycleEvent) {
	if e.CreatedOn.IsZero() {
		e.CreatedOn = s.now()
	}
	e.Recipient = MaskRecipient(e.Recipient)

	err := s.dispatcher.Submit("lifecycle:"+string(e.EventType), func(ctx context.Context) error {
		return s.events.Create(ctx, &e)
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to queue lifecycle event", "quoteID", e.QuoteID, "type", e.EventType, "error", err)
	}
}

func (s *lifecycleService) RecordViewed(ctx context.Context, companyID, quoteID int32, visitor Visitor) {
	now := s.now()
	e := domain.LifecycleEvent{
		CompanyID: companyID,
		QuoteID:   quoteID,
		EventType: domain.EventViewed,
		Channel:   domain.ChannelLink,
		Metadata:  map[string]any{},
		CreatedOn: now,
	}
	fp := ""
	if s.dedupMode == ViewDedupVisitor {
		fp = s.fingerprint.Visitor(visitor.IP, visitor.UserAgent)
		e.Metadata["visitor"] = fp
	}
	if visitor.UserAgent != "" {
		e.Metadata["user_agent"] = visitor.UserAgent
	}

	// Check and insert share one transaction so parallel workers cannot both pass the check
	err := s.dispatcher.Submit("lifecycle:viewed", func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			created, err := repos.Events.CreateViewOnce(ctx, &e, now.Add(-s.dedupWindow), fp)
			if err != nil {
				return err
			}
			if !created {
				logger.Debug("Suppressing duplicate view event", "quoteID", quoteID, "mode", s.dedupMode)
			}
			return nil
		})
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to queue view event", "quoteID", quoteID, "error", err)
	}
}

func (s *lifecycleService) Timeline(ctx context.Context, actor domain.Actor, quoteID int32) ([]domain.LifecycleEvent, error) {
	if _, err := loadQuoteForActor(ctx, s.quotes, actor, quoteID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByQuote(ctx, quoteID, TimelineLimit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.LifecycleEvent{}
	}
	return events, nil
}
