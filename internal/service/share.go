package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
	"fleet-erp-backend/internal/security"
)

const (
	maxTokenAttempts = 3
	reminderBatch    = 100
)

// ShareOptions carries the share section of the configuration
type ShareOptions struct {
	PublicBaseURL     string
	DefaultExpiryDays int
	MaxExpiryDays     int
	ReminderWindow    time.Duration
}

type shareService struct {
	repos     *repository.Repositories
	tx        repository.TxManager
	lifecycle LifecycleService
	notifier  NotificationService
	opts      ShareOptions
	newToken  func() (string, error)
	now       func() time.Time
}

func NewShareService(repos *repository.Repositories, tx repository.TxManager, lifecycle LifecycleService,
	notifier NotificationService, opts ShareOptions) ShareService {
	if opts.DefaultExpiryDays <= 0 {
		opts.DefaultExpiryDays = 7
	}
	if opts.MaxExpiryDays < opts.DefaultExpiryDays {
		opts.MaxExpiryDays = opts.DefaultExpiryDays
	}
	if opts.ReminderWindow <= 0 {
		opts.ReminderWindow = 24 * time.Hour
	}
	opts.PublicBaseURL = strings.TrimSuffix(opts.PublicBaseURL, "/")
	return &shareService{
		repos:     repos,
		tx:        tx,
		lifecycle: lifecycle,
		notifier:  notifier,
		opts:      opts,
		newToken:  security.GenerateShareToken,
		now:       time.Now,
	}
}

func (s *shareService) Issue(ctx context.Context, actor domain.Actor, quoteID int32, req IssueShareRequest) (*ShareResult, error) {
	logger.EnterMethod("shareService.Issue", "quoteID", quoteID, "actorID", actor.UserID)

	expiryDays := req.ExpiryDays
	if expiryDays == 0 {
		expiryDays = s.opts.DefaultExpiryDays
	}
	if expiryDays < 0 || expiryDays > s.opts.MaxExpiryDays {
		err := fmt.Errorf("%w: expiryDays must be between 1 and %d", domain.ErrValidation, s.opts.MaxExpiryDays)
		logger.ExitMethodWithError("shareService.Issue", err)
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			err = fmt.Errorf("%w: invalid email address", domain.ErrValidation)
			logger.ExitMethodWithError("shareService.Issue", err)
			return nil, err
		}
	}

	quote, err := loadQuoteForActor(ctx, s.repos.Quotes, actor, quoteID)
	if err != nil {
		logger.ExitMethodWithError("shareService.Issue", err, "quoteID", quoteID)
		return nil, err
	}
	if quote.IsArchived() {
		err := fmt.Errorf("%w: archived quote %d cannot be shared", domain.ErrValidation, quoteID)
		logger.ExitMethodWithError("shareService.Issue", err)
		return nil, err
	}

	now := s.now()
	tok, reused, err := s.findOrCreateToken(ctx, actor, quote, expiryDays, email, now)
	if err != nil {
		logger.ExitMethodWithError("shareService.Issue", err, "quoteID", quoteID)
		return nil, err
	}

	result := &ShareResult{
		Token:      tok.Token,
		ShareURL:   s.shareURL(tok.Token),
		ExpiresAt:  tok.ExpiresAt,
		IsExisting: reused,
	}

	channel := domain.ChannelLink
	if email != "" {
		channel = domain.ChannelEmail
	}
	s.lifecycle.Record(ctx, domain.LifecycleEvent{
		CompanyID: quote.CompanyID,
		QuoteID:   quote.ID,
		EventType: domain.EventShared,
		Channel:   channel,
		Recipient: email,
		ActorID:   int32Ref(actor.UserID),
		Metadata: map[string]any{
			"token_id":     tok.ID,
			"expires_at":   tok.ExpiresAt.Format(time.RFC3339),
			"reused_token": reused,
		},
		CreatedOn: now,
	})

	if email != "" {
		s.queueShareEmail(ctx, quote, email, result)
	}

	logger.ExitMethod("shareService.Issue", "quoteID", quoteID, "tokenID", tok.ID, "reused", reused)
	return result, nil
}

// findOrCreateToken reuses the newest active unexpired token, otherwise issues a
// new one and stamps the quote as shared in the same transaction
func (s *shareService) findOrCreateToken(ctx context.Context, actor domain.Actor, quote *domain.Quote, expiryDays int,
	email string, now time.Time) (*domain.ShareToken, bool, error) {
	existing, err := s.repos.ShareTokens.FindActiveByQuote(ctx, quote.ID, now)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	tok := &domain.ShareToken{
		QuoteID:        quote.ID,
		CompanyID:      quote.CompanyID,
		Status:         domain.ShareTokenStatusActive,
		ExpiresAt:      now.Add(time.Duration(expiryDays) * 24 * time.Hour),
		RecipientEmail: email,
		CreatedBy:      int32Ref(actor.UserID),
		CreatedOn:      now,
	}

	for attempt := 1; ; attempt++ {
		value, err := s.newToken()
		if err != nil {
			return nil, false, err
		}
		tok.Token = value

		// The quote row lock serialises concurrent issues; whoever waited
		// reuses the token the winner created
		var reused *domain.ShareToken
		err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			if _, err := repos.Quotes.GetByIDForUpdate(ctx, quote.ID); err != nil {
				return err
			}
			existing, err := repos.ShareTokens.FindActiveByQuote(ctx, quote.ID, now)
			if err == nil {
				reused = existing
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err := repos.ShareTokens.Create(ctx, tok); err != nil {
				return err
			}
			return repos.Quotes.MarkShared(ctx, quote.ID, now)
		})
		if err == nil {
			if reused != nil {
				return reused, true, nil
			}
			return tok, false, nil
		}
		// A colliding token value is astronomically unlikely but cheap to retry
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxTokenAttempts {
			return nil, false, err
		}
		logger.Warn("Share token collision, regenerating", "quoteID", quote.ID, "attempt", attempt)
	}
}

func (s *shareService) queueShareEmail(ctx context.Context, quote *domain.Quote, email string, result *ShareResult) {
	companyName := ""
	if company, err := s.repos.Companies.GetByID(ctx, quote.CompanyID); err == nil {
		companyName = company.Name
	} else {
		logger.WarnContext(ctx, "Company lookup failed for share email", "companyID", quote.CompanyID, "error", err)
	}

	subject, body := quoteSharedEmail(companyName, quote, result)
	n := &domain.Notification{
		CompanyID: quote.CompanyID,
		QuoteID:   int32Ref(quote.ID),
		Kind:      domain.NotificationQuoteShared,
		Recipient: email,
		Subject:   subject,
		Body:      body,
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		logger.ErrorContext(ctx, "Failed to queue share email", "quoteID", quote.ID, "error", err)
	}
}

func (s *shareService) Validate(ctx context.Context, token string) (*domain.ShareToken, error) {
	if !security.IsWellFormedShareToken(token) {
		return nil, fmt.Errorf("%w: malformed share token", domain.ErrNotFound)
	}
	tok, err := s.repos.ShareTokens.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkTokenUsable(tok, s.now()); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *shareService) List(ctx context.Context, actor domain.Actor, quoteID int32) (*ShareListing, error) {
	if _, err := loadQuoteForActor(ctx, s.repos.Quotes, actor, quoteID); err != nil {
		return nil, err
	}
	tokens, err := s.repos.ShareTokens.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	sigs, err := s.repos.Signatures.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	listing := &ShareListing{Tokens: tokens, Signatures: sigs}
	if listing.Tokens == nil {
		listing.Tokens = []domain.ShareToken{}
	}
	if listing.Signatures == nil {
		listing.Signatures = []domain.CustomerSignature{}
	}
	return listing, nil
}

// RevokeAll revokes every active token of the quote and records a single
// revoked event. Nothing is recorded when there was nothing to revoke.
func (s *shareService) RevokeAll(ctx context.Context, actor domain.Actor, quoteID int32) (int64, error) {
	logger.EnterMethod("shareService.RevokeAll", "quoteID", quoteID, "actorID", actor.UserID)

	quote, err := loadQuoteForActor(ctx, s.repos.Quotes, actor, quoteID)
	if err != nil {
		logger.ExitMethodWithError("shareService.RevokeAll", err)
		return 0, err
	}

	now := s.now()
	count, err := s.repos.ShareTokens.RevokeActiveByQuote(ctx, quoteID, now)
	if err != nil {
		logger.ExitMethodWithError("shareService.RevokeAll", err)
		return 0, err
	}

	if count > 0 {
		s.lifecycle.Record(ctx, domain.LifecycleEvent{
			CompanyID: quote.CompanyID,
			QuoteID:   quote.ID,
			EventType: domain.EventRevoked,
			ActorID:   int32Ref(actor.UserID),
			Metadata:  map[string]any{"revoked_count": count},
			CreatedOn: now,
		})
	}

	logger.ExitMethod("shareService.RevokeAll", "quoteID", quoteID, "revoked", count)
	return count, nil
}

// SendExpiryReminders emails the company contact once per active token that
// expires within the reminder window
func (s *shareService) SendExpiryReminders(ctx context.Context) (int, error) {
	now := s.now()
	tokens, err := s.repos.ShareTokens.ListExpiringUnreminded(ctx, now, now.Add(s.opts.ReminderWindow), reminderBatch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, tok := range tokens {
		company, err := s.repos.Companies.GetByID(ctx, tok.CompanyID)
		if err != nil {
			logger.Error("Company lookup failed for expiry reminder", "tokenID", tok.ID, "error", err)
			continue
		}
		if company.Email != "" {
			subject, body := shareExpiringEmail(company.Name, tok, s.shareURL(tok.Token))
			n := &domain.Notification{
				CompanyID:     tok.CompanyID,
				QuoteID:       int32Ref(tok.QuoteID),
				Kind:          domain.NotificationShareExpiring,
				Recipient:     company.Email,
				RecipientName: company.Name,
				Subject:       subject,
				Body:          body,
			}
			if err := s.notifier.Enqueue(ctx, n); err != nil {
				logger.Error("Failed to queue expiry reminder", "tokenID", tok.ID, "error", err)
				continue
			}
			sent++
		}
		if err := s.repos.ShareTokens.MarkReminded(ctx, tok.ID, now); err != nil {
			logger.Error("Failed to mark token reminded", "tokenID", tok.ID, "error", err)
		}
	}
	return sent, nil
}

func (s *shareService) shareURL(token string) string {
	return fmt.Sprintf("%s/public/quote/%s", s.opts.PublicBaseURL, token)
}
