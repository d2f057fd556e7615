package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleet-erp-backend/internal/dispatch"
	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/security"
)

const (
	testCompanyID  = int32(1)
	otherCompanyID = int32(2)
	testQuoteID    = int32(10)
	testCarID      = int32(20)
	testCustomerID = int32(30)
)

var (
	staff    = domain.Actor{UserID: 5, CompanyID: testCompanyID, Email: "staff@rent.example", Role: "manager"}
	outsider = domain.Actor{UserID: 6, CompanyID: otherCompanyID, Email: "other@rent.example", Role: "manager"}
)

// testEnv wires every service against one memDB with a controllable clock and
// synchronous side effects
type testEnv struct {
	db         *memDB
	clock      time.Time
	sender     *MockEmailSender
	lifecycle  *lifecycleService
	notifier   *notificationService
	shares     *shareService
	signatures *signatureService
	contracts  *contractService
	views      *quoteViewService
}

func (e *testEnv) now() time.Time { return e.clock }

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newMemDB()
	seed(db)

	env := &testEnv{
		db:     db,
		clock:  time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		sender: new(MockEmailSender),
	}
	env.sender.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()

	repos := db.repos()
	env.lifecycle = NewLifecycleService(repos.Events, repos.Quotes, db, dispatch.Inline{}, 10*time.Minute, ViewDedupQuote, nil).(*lifecycleService)
	env.lifecycle.now = env.now
	env.notifier = NewNotificationService(repos.Notifications, env.sender, dispatch.Inline{}, env.lifecycle, 3).(*notificationService)
	env.notifier.now = env.now
	env.shares = NewShareService(repos, db, env.lifecycle, env.notifier, ShareOptions{
		PublicBaseURL:     "https://erp.example/",
		DefaultExpiryDays: 7,
		MaxExpiryDays:     90,
	}).(*shareService)
	env.shares.now = env.now
	env.signatures = NewSignatureService().(*signatureService)
	env.signatures.now = env.now
	env.contracts = NewContractService(repos, db, env.shares, env.signatures, env.notifier).(*contractService)
	env.contracts.now = env.now
	env.views = NewQuoteViewService(repos, env.shares, env.lifecycle).(*quoteViewService)
	return env
}

func seed(db *memDB) {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	customerID := testCustomerID
	s := &db.state
	s.companies[testCompanyID] = domain.Company{ID: testCompanyID, Name: "한빛렌터카", Email: "ops@hanbit.example", Phone: "02-123-4567"}
	s.companies[otherCompanyID] = domain.Company{ID: otherCompanyID, Name: "Other Rent", Email: "ops@other.example"}
	s.customers[testCustomerID] = domain.Customer{ID: testCustomerID, CompanyID: testCompanyID, Name: "홍길동", Email: "hong@example.com"}
	s.cars[testCarID] = domain.Car{ID: testCarID, CompanyID: testCompanyID, Number: "12가3456", Brand: "Hyundai", Model: "Grandeur", Status: domain.CarStatusAvailable}
	s.quotes[testQuoteID] = domain.Quote{
		ID:         testQuoteID,
		CompanyID:  testCompanyID,
		CustomerID: &customerID,
		CarID:      testCarID,
		RentPrice:  590000,
		Deposit:    1000000,
		StartDate:  &start,
		Terms:      domain.NewQuoteTerms(domain.QuoteDetail{}, nil, nil),
		Status:     domain.QuoteStatusPending,
	}
	s.termsVersions[3] = domain.TermsVersion{ID: 3, CompanyID: testCompanyID, Version: "2025.1", Status: domain.TermsVersionActive}
	s.specialTerms = []domain.SpecialTerm{
		{ID: 1, CompanyID: testCompanyID, ContractType: domain.ContractTypeAll, Title: "보험", Content: "종합보험 포함", SortOrder: 2, IsDefault: true, IsActive: true},
		{ID: 2, CompanyID: testCompanyID, ContractType: domain.ContractTypeReturn, Title: "반납", Content: "만기 시 반납", SortOrder: 1, IsDefault: true, IsActive: true},
		{ID: 3, CompanyID: testCompanyID, ContractType: domain.ContractTypeBuyout, Title: "인수", Content: "만기 시 인수", SortOrder: 1, IsDefault: true, IsActive: true},
		{ID: 4, CompanyID: testCompanyID, ContractType: domain.ContractTypeAll, Title: "비활성", Content: "x", SortOrder: 0, IsDefault: true, IsActive: false},
	}
}

// issue shares the test quote and returns the token value
func (e *testEnv) issue(t *testing.T) string {
	t.Helper()
	res, err := e.shares.Issue(context.Background(), staff, testQuoteID, IssueShareRequest{})
	require.NoError(t, err)
	return res.Token
}

// addToken inserts a token directly, bypassing Issue
func (e *testEnv) addToken(t *testing.T, status domain.ShareTokenStatus, expiresAt time.Time) string {
	t.Helper()
	value, err := security.GenerateShareToken()
	require.NoError(t, err)
	tok := &domain.ShareToken{
		Token:     value,
		QuoteID:   testQuoteID,
		CompanyID: testCompanyID,
		Status:    status,
		ExpiresAt: expiresAt,
		CreatedOn: e.clock,
	}
	require.NoError(t, e.db.repos().ShareTokens.Create(context.Background(), tok))
	return value
}

func validSignature() SignatureInput {
	return SignatureInput{
		CustomerName:  "홍길동",
		CustomerPhone: "010-1234-5678",
		SignatureData: "data:image/png;base64,iVBORw0KGgo=",
		AgreedTerms:   true,
		IPAddress:     "203.0.113.7",
		UserAgent:     "Mozilla/5.0",
	}
}
