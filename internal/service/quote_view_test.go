package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-erp-backend/internal/domain"
)

func TestQuoteViewService_View(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	token := env.issue(t)
	visitor := Visitor{IP: "203.0.113.9", UserAgent: "Mobile Safari"}

	view, err := env.views.View(ctx, token, visitor)
	require.NoError(t, err)
	assert.Equal(t, testQuoteID, view.QuoteID)
	assert.Equal(t, "한빛렌터카", view.CompanyName)
	assert.Equal(t, "Grandeur", view.Car.Model)
	assert.Equal(t, int64(590000), view.RentPrice)
	assert.Equal(t, int64(59000), view.RentVAT)
	assert.Equal(t, 36, view.Terms.TermMonths)
	assert.Equal(t, env.clock.Add(7*24*time.Hour), view.ExpiresAt)

	_, err = env.views.View(ctx, token, visitor)
	require.NoError(t, err)
	assert.Equal(t, []domain.LifecycleEventType{domain.EventShared, domain.EventViewed}, env.db.eventsOf(testQuoteID))

	_, err = env.contracts.Sign(ctx, token, validSignature())
	require.NoError(t, err)
	_, err = env.views.View(ctx, token, visitor)
	assert.ErrorIs(t, err, domain.ErrAlreadyUsed)

	_, err = env.views.View(ctx, "nope", visitor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
