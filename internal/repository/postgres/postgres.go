package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"

	_ "github.com/lib/pq"
)

// Store bundles the repositories bound to the connection pool and opens
// transactions that rebind them to a *sql.Tx.
type Store struct {
	db *sql.DB
	*repository.Repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Repositories: newRepositories(db),
	}
}

func newRepositories(db repository.DBTX) *repository.Repositories {
	return &repository.Repositories{
		Quotes:        NewQuoteRepository(db),
		ShareTokens:   NewShareTokenRepository(db),
		Signatures:    NewSignatureRepository(db),
		Contracts:     NewContractRepository(db),
		Schedules:     NewPaymentScheduleRepository(db),
		Events:        NewLifecycleEventRepository(db),
		Companies:     NewCompanyRepository(db),
		Customers:     NewCustomerRepository(db),
		Cars:          NewCarRepository(db),
		Terms:         NewTermsRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// DB exposes the underlying pool for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithinTx runs fn in a transaction, committing on success
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	logger.DatabaseCall("BEGIN", "transaction")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.DatabaseResult("BEGIN", 0, err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.DatabaseResult("COMMIT", 0, err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
