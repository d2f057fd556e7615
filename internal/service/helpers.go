package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/repository"
)

// loadQuoteForActor hides quotes of other companies behind ErrNotFound
func loadQuoteForActor(ctx context.Context, quotes repository.QuoteRepository, actor domain.Actor, quoteID int32) (*domain.Quote, error) {
	q, err := quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.CompanyID != actor.CompanyID {
		return nil, fmt.Errorf("%w: quote %d", domain.ErrNotFound, quoteID)
	}
	return q, nil
}

// checkTokenUsable applies the share token taxonomy in precedence order:
// signed, revoked, then expired
func checkTokenUsable(t *domain.ShareToken, now time.Time) error {
	switch t.Status {
	case domain.ShareTokenStatusSigned:
		return fmt.Errorf("%w: token %d", domain.ErrAlreadyUsed, t.ID)
	case domain.ShareTokenStatusRevoked:
		return fmt.Errorf("%w: token %d", domain.ErrRevoked, t.ID)
	}
	if t.IsExpired(now) {
		return fmt.Errorf("%w: token %d expired at %s", domain.ErrExpired, t.ID, t.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// renderSpecialTerms snapshots templates as numbered "title\ncontent" blocks
func renderSpecialTerms(terms []domain.SpecialTerm) string {
	blocks := make([]string, 0, len(terms))
	for i, t := range terms {
		blocks = append(blocks, fmt.Sprintf("%d. %s\n%s", i+1, strings.TrimSpace(t.Title), strings.TrimSpace(t.Content)))
	}
	return strings.Join(blocks, "\n\n")
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func int32Ref(v int32) *int32 {
	return &v
}
