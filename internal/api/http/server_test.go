package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/security"
	"fleet-erp-backend/internal/service"
	"fleet-erp-backend/internal/storage"
)

const testToken = "AbCdEfGhIjKlMnOpQrStUvWxYz012345"

type fixture struct {
	router    http.Handler
	server    *Server
	tokens    security.TokenManager
	shares    *MockShareService
	lifecycle *MockLifecycleService
	documents *MockDocumentService
	contracts *MockContractService
	views     *MockQuoteViewService
	files     *storage.MockStorageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tokens:    security.NewTokenManager("test-secret", "fleet-erp"),
		shares:    new(MockShareService),
		lifecycle: new(MockLifecycleService),
		documents: new(MockDocumentService),
		contracts: new(MockContractService),
		views:     new(MockQuoteViewService),
	}
	files, err := storage.NewMockStorageService("http://localhost", t.TempDir())
	require.NoError(t, err)
	f.files = files

	f.server = NewServer(&ServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		GracefulShutdownDuration: time.Second,
	}, Handlers{
		Staff:  NewStaffHandler(f.shares, f.lifecycle, f.documents, 64),
		Public: NewPublicHandler(f.views, f.contracts, f.documents, 64),
		Files:  NewFilesHandler(files),
		Auth:   NewAuthMiddleware(f.tokens),
	})
	f.router = f.server.srv.Handler
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "203.0.113.7:50000"
	req.Header.Set("User-Agent", "test-agent")
	if auth {
		token, err := f.tokens.GenerateAccessToken(5, 1, "staff@rent.example", "manager")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var staffActor = domain.Actor{UserID: 5, CompanyID: 1, Email: "staff@rent.example", Role: "manager"}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/livez", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	rec = f.do(t, http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.server.isReady.Store(false)
	rec = f.do(t, http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/quotes/10/share", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec)["code"])

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/10/timeline", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.shares.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestStaffShareEndpoints(t *testing.T) {
	f := newFixture(t)
	expires := time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC)

	t.Run("Issue", func(t *testing.T) {
		f.shares.On("Issue", mock.Anything, staffActor, int32(10), service.IssueShareRequest{ExpiryDays: 14, Email: "john@example.com"}).
			Return(&service.ShareResult{Token: testToken, ShareURL: "https://erp.example/public/quote/" + testToken, ExpiresAt: expires}, nil).Once()

		rec := f.do(t, http.MethodPost, "/api/quotes/10/share", []byte(`{"expiryDays":14,"email":"john@example.com"}`), true)
		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, testToken, body["token"])
		assert.Equal(t, false, body["isExisting"])
		assert.Equal(t, "2025-03-17T09:00:00Z", body["expiresAt"])
	})

	t.Run("Reissue returns existing token", func(t *testing.T) {
		f.shares.On("Issue", mock.Anything, staffActor, int32(11), service.IssueShareRequest{}).
			Return(&service.ShareResult{Token: testToken, IsExisting: true, ExpiresAt: expires}, nil).Once()
		rec := f.do(t, http.MethodPost, "/api/quotes/11/share", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["isExisting"])
	})

	t.Run("Malformed body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/quotes/10/share", []byte(`{`), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Foreign quote", func(t *testing.T) {
		f.shares.On("List", mock.Anything, staffActor, int32(99)).Return(nil, fmt.Errorf("%w: quote 99", domain.ErrNotFound)).Once()
		rec := f.do(t, http.MethodGet, "/api/quotes/99/share", nil, true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, msgNotFound, decode(t, rec)["message"])
	})

	t.Run("Revoke", func(t *testing.T) {
		f.shares.On("RevokeAll", mock.Anything, staffActor, int32(10)).Return(int64(2), nil).Once()
		rec := f.do(t, http.MethodDelete, "/api/quotes/10/share", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decode(t, rec)["revoked"])
	})

	t.Run("Timeline", func(t *testing.T) {
		f.lifecycle.On("Timeline", mock.Anything, staffActor, int32(10)).Return([]domain.LifecycleEvent{
			{ID: 2, EventType: domain.EventSigned},
			{ID: 1, EventType: domain.EventShared},
		}, nil).Once()
		rec := f.do(t, http.MethodGet, "/api/quotes/10/timeline", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		events := decode(t, rec)["events"].([]any)
		require.Len(t, events, 2)
		assert.Equal(t, "signed", events[0].(map[string]any)["event_type"])
	})

	f.shares.AssertExpectations(t)
	f.lifecycle.AssertExpectations(t)
}

func TestPublicSign(t *testing.T) {
	input := service.SignatureInput{
		CustomerName:  "홍길동",
		CustomerPhone: "010-1234-5678",
		SignatureData: "data:image/png;base64,AAAA",
		AgreedTerms:   true,
		IPAddress:     "198.51.100.20",
		UserAgent:     "test-agent",
	}
	body := []byte(`{"customer_name":"홍길동","customer_phone":"010-1234-5678","signature_data":"data:image/png;base64,AAAA","agreed_terms":true}`)

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"Unknown token", domain.ErrNotFound, http.StatusNotFound, msgInvalidLink},
		{"Already signed", domain.ErrAlreadyUsed, http.StatusConflict, msgAlreadySigned},
		{"Contract exists", domain.ErrConflict, http.StatusConflict, msgContracted},
		{"Expired", domain.ErrExpired, http.StatusGone, msgLinkClosed},
		{"Revoked", domain.ErrRevoked, http.StatusGone, msgLinkClosed},
		{"Missing fields", fmt.Errorf("%w: customer_name is required", domain.ErrValidation), http.StatusBadRequest, msgBadRequest},
		{"Database down", fmt.Errorf("connection reset"), http.StatusInternalServerError, msgInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.contracts.On("Sign", mock.Anything, testToken, input).Return(nil, tc.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/public/quote/"+testToken+"/sign", bytes.NewReader(body))
			req.Header.Set("X-Forwarded-For", "198.51.100.20, 10.0.0.1")
			req.Header.Set("User-Agent", "test-agent")
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			resp := decode(t, rec)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tc.message, resp["message"])
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		f.contracts.On("Sign", mock.Anything, testToken, mock.MatchedBy(func(in service.SignatureInput) bool {
			return in.CustomerName == "홍길동" && in.IPAddress == "203.0.113.7" && in.UserAgent == "test-agent"
		})).Return(&service.SignResult{ContractID: 42, SignatureID: 7, Token: testToken}, nil).Once()

		rec := f.do(t, http.MethodPost, "/public/quote/"+testToken+"/sign", body, false)
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, float64(42), resp["contractId"])
		assert.Equal(t, testToken, resp["token"])
	})

	t.Run("Malformed body", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/public/quote/"+testToken+"/sign", []byte("nope"), false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.contracts.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPublicQuoteAndBundle(t *testing.T) {
	f := newFixture(t)

	f.views.On("View", mock.Anything, testToken, service.Visitor{IP: "203.0.113.7", UserAgent: "test-agent"}).
		Return(&service.QuoteView{QuoteID: 10, CompanyName: "한빛렌터카"}, nil).Once()
	rec := f.do(t, http.MethodGet, "/public/quote/"+testToken, nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "한빛렌터카", decode(t, rec)["companyName"])

	f.contracts.On("PublicBundle", mock.Anything, testToken).Return(nil, domain.ErrNotFound).Once()
	rec = f.do(t, http.MethodGet, "/public/contract/"+testToken+"/pdf", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgInvalidLink, decode(t, rec)["message"])
}

func TestPDFUpload(t *testing.T) {
	pdf := []byte("%PDF-1.4 tiny")

	t.Run("Public", func(t *testing.T) {
		f := newFixture(t)
		f.documents.On("StoreForToken", mock.Anything, testToken, pdf).Return("http://localhost/files/contracts/1/2/a.pdf", nil).Once()
		rec := f.do(t, http.MethodPost, "/public/contract/"+testToken+"/pdf", pdf, false)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost/files/contracts/1/2/a.pdf", decode(t, rec)["url"])
	})

	t.Run("Staff", func(t *testing.T) {
		f := newFixture(t)
		f.documents.On("StoreForCompany", mock.Anything, staffActor, int32(42), pdf).Return("http://localhost/files/x.pdf", nil).Once()
		rec := f.do(t, http.MethodPost, "/api/contracts/42/pdf", pdf, true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Too large", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/public/contract/"+testToken+"/pdf", bytes.Repeat([]byte("x"), 65), false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.documents.AssertNotCalled(t, "StoreForToken", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFilesDownload(t *testing.T) {
	f := newFixture(t)
	_, err := f.files.Put(context.Background(), "contracts/1/2/a.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/files/contracts/1/2/a.pdf", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/files/contracts/1/2/missing.pdf", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.2")
	assert.Equal(t, "192.0.2.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.3, 10.0.0.1")
	assert.Equal(t, "192.0.2.3", clientIP(req))
}
