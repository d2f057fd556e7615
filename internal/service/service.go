package service

import (
	"context"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/repository"
)

// ShareService owns share token issuance, validation and revocation
type ShareService interface {
	Issue(ctx context.Context, actor domain.Actor, quoteID int32, req IssueShareRequest) (*ShareResult, error)
	Validate(ctx context.Context, token string) (*domain.ShareToken, error)
	List(ctx context.Context, actor domain.Actor, quoteID int32) (*ShareListing, error)
	RevokeAll(ctx context.Context, actor domain.Actor, quoteID int32) (int64, error)
	SendExpiryReminders(ctx context.Context) (int, error)
}

// SignatureService captures a customer's signature against a locked share token
// inside the caller's transaction
type SignatureService interface {
	Capture(ctx context.Context, repos *repository.Repositories, token string, in SignatureInput) (*domain.CustomerSignature, error)
}

// ContractService turns a signature submission into a contract
type ContractService interface {
	Sign(ctx context.Context, token string, in SignatureInput) (*SignResult, error)
	PublicBundle(ctx context.Context, token string) (*ContractBundle, error)
}

// QuoteViewService serves the customer-facing quote page
type QuoteViewService interface {
	View(ctx context.Context, token string, visitor Visitor) (*QuoteView, error)
}

// LifecycleService is the append-only quote audit trail
type LifecycleService interface {
	// Record never fails; errors are logged
	Record(ctx context.Context, e domain.LifecycleEvent)
	RecordViewed(ctx context.Context, companyID, quoteID int32, visitor Visitor)
	Timeline(ctx context.Context, actor domain.Actor, quoteID int32) ([]domain.LifecycleEvent, error)
}

// DocumentService links rendered contract PDFs to contracts
type DocumentService interface {
	StoreForToken(ctx context.Context, token string, pdf []byte) (string, error)
	StoreForCompany(ctx context.Context, actor domain.Actor, contractID int32, pdf []byte) (string, error)
}

// NotificationService persists outgoing emails and delivers them off the request path
type NotificationService interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	Deliver(ctx context.Context, id int64) error
	RetryDue(ctx context.Context) (RetryStats, error)
}

// EmailSender is any email backend
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
	Name() string
}

type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Visitor is the request provenance of a public page hit
type Visitor struct {
	IP        string
	UserAgent string
}

type IssueShareRequest struct {
	ExpiryDays int    // 0 selects the configured default
	Email      string // optional; the link is also emailed when set
}

type ShareResult struct {
	Token      string    `json:"token"`
	ShareURL   string    `json:"shareUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
	IsExisting bool      `json:"isExisting"`
}

type ShareListing struct {
	Tokens     []domain.ShareToken        `json:"tokens"`
	Signatures []domain.CustomerSignature `json:"signatures"`
}

type SignatureInput struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	SignatureData string
	AgreedTerms   bool
	IPAddress     string
	UserAgent     string
}

type SignResult struct {
	ContractID  int32  `json:"contractId"`
	SignatureID int32  `json:"signatureId"`
	Token       string `json:"token"`
}

type RetryStats struct {
	Attempted int
	Sent      int
	Failed    int
}
