package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/service"
)

type MockShareService struct {
	mock.Mock
}

func (m *MockShareService) Issue(ctx context.Context, actor domain.Actor, quoteID int32, req service.IssueShareRequest) (*service.ShareResult, error) {
	args := m.Called(ctx, actor, quoteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareResult), args.Error(1)
}

func (m *MockShareService) Validate(ctx context.Context, token string) (*domain.ShareToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShareToken), args.Error(1)
}

func (m *MockShareService) List(ctx context.Context, actor domain.Actor, quoteID int32) (*service.ShareListing, error) {
	args := m.Called(ctx, actor, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ShareListing), args.Error(1)
}

func (m *MockShareService) RevokeAll(ctx context.Context, actor domain.Actor, quoteID int32) (int64, error) {
	args := m.Called(ctx, actor, quoteID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockShareService) SendExpiryReminders(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) Record(ctx context.Context, e domain.LifecycleEvent) {
	m.Called(ctx, e)
}

func (m *MockLifecycleService) RecordViewed(ctx context.Context, companyID, quoteID int32, visitor service.Visitor) {
	m.Called(ctx, companyID, quoteID, visitor)
}

func (m *MockLifecycleService) Timeline(ctx context.Context, actor domain.Actor, quoteID int32) ([]domain.LifecycleEvent, error) {
	args := m.Called(ctx, actor, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LifecycleEvent), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) StoreForToken(ctx context.Context, token string, pdf []byte) (string, error) {
	args := m.Called(ctx, token, pdf)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) StoreForCompany(ctx context.Context, actor domain.Actor, contractID int32, pdf []byte) (string, error) {
	args := m.Called(ctx, actor, contractID, pdf)
	return args.String(0), args.Error(1)
}

type MockContractService struct {
	mock.Mock
}

func (m *MockContractService) Sign(ctx context.Context, token string, in service.SignatureInput) (*service.SignResult, error) {
	args := m.Called(ctx, token, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SignResult), args.Error(1)
}

func (m *MockContractService) PublicBundle(ctx context.Context, token string) (*service.ContractBundle, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ContractBundle), args.Error(1)
}

type MockQuoteViewService struct {
	mock.Mock
}

func (m *MockQuoteViewService) View(ctx context.Context, token string, visitor service.Visitor) (*service.QuoteView, error) {
	args := m.Called(ctx, token, visitor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QuoteView), args.Error(1)
}
