package repository

import (
	"context"
	"database/sql"
	"time"

	"fleet-erp-backend/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type QuoteRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Quote, error)
	// GetByIDForUpdate locks the quote row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Quote, error)
	MarkShared(ctx context.Context, id int32, at time.Time) error
	MarkSigned(ctx context.Context, id int32, at time.Time, termsVersionID *int32) error
}

type ShareTokenRepository interface {
	Create(ctx context.Context, t *domain.ShareToken) error
	GetByToken(ctx context.Context, token string) (*domain.ShareToken, error)
	// GetByTokenForUpdate locks the row until the surrounding transaction ends
	GetByTokenForUpdate(ctx context.Context, token string) (*domain.ShareToken, error)
	// FindActiveByQuote returns the newest active token that has not expired at now
	FindActiveByQuote(ctx context.Context, quoteID int32, now time.Time) (*domain.ShareToken, error)
	ListByQuote(ctx context.Context, quoteID int32) ([]domain.ShareToken, error)
	RevokeActiveByQuote(ctx context.Context, quoteID int32, at time.Time) (int64, error)
	MarkSigned(ctx context.Context, id int32, at time.Time) error

	// Expiry reminders
	ListExpiringUnreminded(ctx context.Context, from, to time.Time, limit int) ([]domain.ShareToken, error)
	MarkReminded(ctx context.Context, id int32, at time.Time) error
}

type SignatureRepository interface {
	Create(ctx context.Context, s *domain.CustomerSignature) error
	GetByID(ctx context.Context, id int32) (*domain.CustomerSignature, error)
	ListByQuote(ctx context.Context, quoteID int32) ([]domain.CustomerSignature, error)
}

type ContractRepository interface {
	Create(ctx context.Context, c *domain.Contract) error
	GetByID(ctx context.Context, id int32) (*domain.Contract, error)
	GetByQuote(ctx context.Context, quoteID int32) (*domain.Contract, error)
	// SetPDF links a document only if none is linked yet; false means another writer won
	SetPDF(ctx context.Context, id int32, url string, at time.Time) (bool, error)
}

type PaymentScheduleRepository interface {
	CreateBatch(ctx context.Context, entries []domain.PaymentScheduleEntry) error
	ListByContract(ctx context.Context, contractID int32) ([]domain.PaymentScheduleEntry, error)
}

type LifecycleEventRepository interface {
	Create(ctx context.Context, e *domain.LifecycleEvent) error
	ListByQuote(ctx context.Context, quoteID int32, limit int) ([]domain.LifecycleEvent, error)
	// CreateViewOnce inserts a viewed event unless one exists since the given
	// instant; false means the view was suppressed. A non-empty fingerprint
	// narrows the check to one visitor. Must run inside a transaction so the
	// per-quote lock holds until commit.
	CreateViewOnce(ctx context.Context, e *domain.LifecycleEvent, since time.Time, fingerprint string) (bool, error)
}

type CompanyRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Company, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Customer, error)
}

type CarRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Car, error)
	SetStatus(ctx context.Context, id int32, status domain.CarStatus) error
}

type TermsRepository interface {
	// GetActiveVersion returns domain.ErrNotFound when the company has no active version
	GetActiveVersion(ctx context.Context, companyID int32) (*domain.TermsVersion, error)
	// GetVersionByID loads a version regardless of its status
	GetVersionByID(ctx context.Context, id int32) (*domain.TermsVersion, error)
	// ListDefaultSpecialTerms returns active default templates for the given
	// contract types ordered by sort_order, id
	ListDefaultSpecialTerms(ctx context.Context, companyID int32, types []domain.ContractType) ([]domain.SpecialTerm, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastErr string, nextAttemptAt *time.Time) error
	ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.Notification, error)
}

// Repositories groups every repository bound to the same DBTX
type Repositories struct {
	Quotes        QuoteRepository
	ShareTokens   ShareTokenRepository
	Signatures    SignatureRepository
	Contracts     ContractRepository
	Schedules     PaymentScheduleRepository
	Events        LifecycleEventRepository
	Companies     CompanyRepository
	Customers     CustomerRepository
	Cars          CarRepository
	Terms         TermsRepository
	Notifications NotificationRepository
}

// TxManager runs fn inside one database transaction. fn receives repositories
// bound to that transaction; returning an error rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}
