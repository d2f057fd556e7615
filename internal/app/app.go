package app

import (
	"database/sql"
	"fmt"
	"time"

	"fleet-erp-backend/internal/config"
	"fleet-erp-backend/internal/dispatch"
	"fleet-erp-backend/internal/repository/postgres"
	"fleet-erp-backend/internal/security"
	"fleet-erp-backend/internal/service"
	"fleet-erp-backend/internal/storage"
)

// Services is the fully wired service layer shared by the server, the cron
// runner and erpctl
type Services struct {
	Store         *postgres.Store
	Lifecycle     service.LifecycleService
	Notifications service.NotificationService
	Shares        service.ShareService
	Signatures    service.SignatureService
	Contracts     service.ContractService
	QuoteViews    service.QuoteViewService
	Documents     service.DocumentService
}

// NewServices wires every service on top of db. docs may be nil for processes
// that never store contract documents.
func NewServices(cfg *config.Config, db *sql.DB, d dispatch.Dispatcher, docs storage.DocumentStore) (*Services, error) {
	store := postgres.NewStore(db)

	sender, err := service.NewEmailSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email sender: %w", err)
	}

	var fp *security.Fingerprinter
	if cfg.Share.ViewDedupMode == service.ViewDedupVisitor {
		fp = security.NewFingerprinter(cfg.Share.FingerprintSecret)
	}
	lifecycle := service.NewLifecycleService(store.Events, store.Quotes, store, d,
		cfg.Share.ViewDedupWindow(), cfg.Share.ViewDedupMode, fp)
	notifications := service.NewNotificationService(store.Notifications, sender, d, lifecycle, cfg.Notification.MaxAttempts)

	shares := service.NewShareService(store.Repositories, store, lifecycle, notifications, service.ShareOptions{
		PublicBaseURL:     cfg.Server.PublicBaseURL,
		DefaultExpiryDays: cfg.Share.DefaultExpiryDays,
		MaxExpiryDays:     cfg.Share.MaxExpiryDays,
		ReminderWindow:    time.Duration(cfg.Share.ExpiryReminderHours) * time.Hour,
	})

	signatures := service.NewSignatureService()

	svc := &Services{
		Store:         store,
		Lifecycle:     lifecycle,
		Notifications: notifications,
		Shares:        shares,
		Signatures:    signatures,
		Contracts:     service.NewContractService(store.Repositories, store, shares, signatures, notifications),
		QuoteViews:    service.NewQuoteViewService(store.Repositories, shares, lifecycle),
	}
	if docs != nil {
		svc.Documents = service.NewDocumentService(store.Repositories, docs, lifecycle, cfg.MaxPDFSizeBytes())
	}
	return svc, nil
}
