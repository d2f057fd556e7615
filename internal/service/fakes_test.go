package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/repository"
)

// memState is the table contents of memDB. Rows are stored by value so a
// shallow map copy is a full snapshot.
type memState struct {
	quotes        map[int32]domain.Quote
	tokens        map[int32]domain.ShareToken
	signatures    map[int32]domain.CustomerSignature
	contracts     map[int32]domain.Contract
	schedules     []domain.PaymentScheduleEntry
	events        []domain.LifecycleEvent
	companies     map[int32]domain.Company
	customers     map[int32]domain.Customer
	cars          map[int32]domain.Car
	termsVersions map[int32]domain.TermsVersion
	specialTerms  []domain.SpecialTerm
	notifications map[int64]domain.Notification
	nextID        int64
}

func (s memState) clone() memState {
	c := s
	c.quotes = cloneMap(s.quotes)
	c.tokens = cloneMap(s.tokens)
	c.signatures = cloneMap(s.signatures)
	c.contracts = cloneMap(s.contracts)
	c.schedules = append([]domain.PaymentScheduleEntry(nil), s.schedules...)
	c.events = append([]domain.LifecycleEvent(nil), s.events...)
	c.companies = cloneMap(s.companies)
	c.customers = cloneMap(s.customers)
	c.cars = cloneMap(s.cars)
	c.termsVersions = cloneMap(s.termsVersions)
	c.specialTerms = append([]domain.SpecialTerm(nil), s.specialTerms...)
	c.notifications = cloneMap(s.notifications)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memDB is an in-memory stand-in for postgres. WithinTx serialises
// transactions and restores the snapshot when fn fails, which is enough to
// model row locks and rollback.
type memDB struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state memState
	// failOn makes the named repository method return the error
	failOn map[string]error
	// delays stalls the named repository method outside mu so concurrent
	// callers interleave; set before any goroutine starts
	delays map[string]time.Duration
}

func newMemDB() *memDB {
	return &memDB{
		state: memState{
			quotes:        map[int32]domain.Quote{},
			tokens:        map[int32]domain.ShareToken{},
			signatures:    map[int32]domain.CustomerSignature{},
			contracts:     map[int32]domain.Contract{},
			companies:     map[int32]domain.Company{},
			customers:     map[int32]domain.Customer{},
			cars:          map[int32]domain.Car{},
			termsVersions: map[int32]domain.TermsVersion{},
			notifications: map[int64]domain.Notification{},
			nextID:        100,
		},
		failOn: map[string]error{},
		delays: map[string]time.Duration{},
	}
}

func (db *memDB) id() int64 {
	db.state.nextID++
	return db.state.nextID
}

func (db *memDB) fail(op string) error {
	return db.failOn[op]
}

func (db *memDB) stall(op string) {
	if d := db.delays[op]; d > 0 {
		time.Sleep(d)
	}
}

func (db *memDB) repos() *repository.Repositories {
	return &repository.Repositories{
		Quotes:        memQuotes{db},
		ShareTokens:   memTokens{db},
		Signatures:    memSignatures{db},
		Contracts:     memContracts{db},
		Schedules:     memSchedules{db},
		Events:        memEvents{db},
		Companies:     memCompanies{db},
		Customers:     memCustomers{db},
		Cars:          memCars{db},
		Terms:         memTerms{db},
		Notifications: memNotifications{db},
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.state.clone()
	db.mu.Unlock()

	if err := fn(ctx, db.repos()); err != nil {
		db.mu.Lock()
		db.state = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

func notFound(what string, id any) error {
	return fmt.Errorf("%w: %s %v", domain.ErrNotFound, what, id)
}

type memQuotes struct{ db *memDB }

func (r memQuotes) GetByID(ctx context.Context, id int32) (*domain.Quote, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	q, ok := r.db.state.quotes[id]
	if !ok {
		return nil, notFound("quote", id)
	}
	return &q, nil
}

// GetByIDForUpdate relies on WithinTx serialisation for the row lock
func (r memQuotes) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Quote, error) {
	return r.GetByID(ctx, id)
}

func (r memQuotes) MarkShared(ctx context.Context, id int32, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	q := r.db.state.quotes[id]
	if q.SharedAt == nil {
		q.SharedAt = &at
	}
	r.db.state.quotes[id] = q
	return nil
}

func (r memQuotes) MarkSigned(ctx context.Context, id int32, at time.Time, termsVersionID *int32) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("quotes.MarkSigned"); err != nil {
		return err
	}
	q := r.db.state.quotes[id]
	q.SignedAt = &at
	q.TermsVersionID = termsVersionID
	r.db.state.quotes[id] = q
	return nil
}

type memTokens struct{ db *memDB }

func (r memTokens) Create(ctx context.Context, t *domain.ShareToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.state.tokens {
		if existing.Token == t.Token {
			return fmt.Errorf("%w: token value", domain.ErrConflict)
		}
	}
	t.ID = int32(r.db.id())
	r.db.state.tokens[t.ID] = *t
	return nil
}

func (r memTokens) GetByToken(ctx context.Context, token string) (*domain.ShareToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.state.tokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, notFound("share token", token)
}

func (r memTokens) GetByTokenForUpdate(ctx context.Context, token string) (*domain.ShareToken, error) {
	return r.GetByToken(ctx, token)
}

func (r memTokens) FindActiveByQuote(ctx context.Context, quoteID int32, now time.Time) (*domain.ShareToken, error) {
	defer r.db.stall("tokens.FindActiveByQuote")
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var best *domain.ShareToken
	for _, t := range r.db.state.tokens {
		if t.QuoteID != quoteID || t.Status != domain.ShareTokenStatusActive || t.IsExpired(now) {
			continue
		}
		if best == nil || t.ID > best.ID {
			t := t
			best = &t
		}
	}
	if best == nil {
		return nil, notFound("active token for quote", quoteID)
	}
	return best, nil
}

func (r memTokens) ListByQuote(ctx context.Context, quoteID int32) ([]domain.ShareToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.ShareToken
	for _, t := range r.db.state.tokens {
		if t.QuoteID == quoteID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memTokens) RevokeActiveByQuote(ctx context.Context, quoteID int32, at time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, t := range r.db.state.tokens {
		if t.QuoteID == quoteID && t.Status == domain.ShareTokenStatusActive {
			t.Status = domain.ShareTokenStatusRevoked
			t.RevokedAt = &at
			r.db.state.tokens[id] = t
			n++
		}
	}
	return n, nil
}

func (r memTokens) MarkSigned(ctx context.Context, id int32, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t := r.db.state.tokens[id]
	t.Status = domain.ShareTokenStatusSigned
	t.SignedAt = &at
	r.db.state.tokens[id] = t
	return nil
}

func (r memTokens) ListExpiringUnreminded(ctx context.Context, from, to time.Time, limit int) ([]domain.ShareToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.ShareToken
	for _, t := range r.db.state.tokens {
		if t.Status == domain.ShareTokenStatusActive && t.RemindedAt == nil &&
			t.ExpiresAt.After(from) && !t.ExpiresAt.After(to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memTokens) MarkReminded(ctx context.Context, id int32, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t := r.db.state.tokens[id]
	t.RemindedAt = &at
	r.db.state.tokens[id] = t
	return nil
}

type memSignatures struct{ db *memDB }

func (r memSignatures) Create(ctx context.Context, s *domain.CustomerSignature) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.state.signatures {
		if existing.TokenID == s.TokenID {
			return fmt.Errorf("%w: signature for token %d", domain.ErrConflict, s.TokenID)
		}
	}
	s.ID = int32(r.db.id())
	r.db.state.signatures[s.ID] = *s
	return nil
}

func (r memSignatures) GetByID(ctx context.Context, id int32) (*domain.CustomerSignature, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.state.signatures[id]
	if !ok {
		return nil, notFound("signature", id)
	}
	return &s, nil
}

func (r memSignatures) ListByQuote(ctx context.Context, quoteID int32) ([]domain.CustomerSignature, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.CustomerSignature
	for _, s := range r.db.state.signatures {
		if s.QuoteID == quoteID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memContracts struct{ db *memDB }

func (r memContracts) Create(ctx context.Context, c *domain.Contract) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.state.contracts {
		if existing.QuoteID == c.QuoteID {
			return fmt.Errorf("%w: contract for quote %d", domain.ErrConflict, c.QuoteID)
		}
	}
	c.ID = int32(r.db.id())
	r.db.state.contracts[c.ID] = *c
	return nil
}

func (r memContracts) GetByID(ctx context.Context, id int32) (*domain.Contract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.state.contracts[id]
	if !ok {
		return nil, notFound("contract", id)
	}
	return &c, nil
}

func (r memContracts) GetByQuote(ctx context.Context, quoteID int32) (*domain.Contract, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.state.contracts {
		if c.QuoteID == quoteID {
			return &c, nil
		}
	}
	return nil, notFound("contract for quote", quoteID)
}

func (r memContracts) SetPDF(ctx context.Context, id int32, url string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.state.contracts[id]
	if !ok || c.PDFURL != "" {
		return false, nil
	}
	c.PDFURL = url
	c.PDFStoredAt = &at
	r.db.state.contracts[id] = c
	return true, nil
}

type memSchedules struct{ db *memDB }

func (r memSchedules) CreateBatch(ctx context.Context, entries []domain.PaymentScheduleEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("schedules.CreateBatch"); err != nil {
		return err
	}
	for i := range entries {
		entries[i].ID = int32(r.db.id())
		r.db.state.schedules = append(r.db.state.schedules, entries[i])
	}
	return nil
}

func (r memSchedules) ListByContract(ctx context.Context, contractID int32) ([]domain.PaymentScheduleEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.PaymentScheduleEntry
	for _, e := range r.db.state.schedules {
		if e.ContractID == contractID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memEvents struct{ db *memDB }

func (r memEvents) Create(ctx context.Context, e *domain.LifecycleEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = r.db.id()
	r.db.state.events = append(r.db.state.events, *e)
	return nil
}

func (r memEvents) ListByQuote(ctx context.Context, quoteID int32, limit int) ([]domain.LifecycleEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.LifecycleEvent
	for _, e := range r.db.state.events {
		if e.QuoteID == quoteID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedOn.After(out[j].CreatedOn)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateViewOnce checks and inserts under separate locks; only the
// surrounding WithinTx keeps concurrent views apart.
func (r memEvents) CreateViewOnce(ctx context.Context, e *domain.LifecycleEvent, since time.Time, fingerprint string) (bool, error) {
	if r.seenSince(e.QuoteID, since, fingerprint) {
		return false, nil
	}
	r.db.stall("events.CreateViewOnce")
	return true, r.Create(ctx, e)
}

func (r memEvents) seenSince(quoteID int32, since time.Time, fingerprint string) bool {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, e := range r.db.state.events {
		if e.QuoteID != quoteID || e.EventType != domain.EventViewed || e.CreatedOn.Before(since) {
			continue
		}
		if fingerprint != "" && e.Metadata["visitor"] != fingerprint {
			continue
		}
		return true
	}
	return false
}

// eventsOf returns the recorded event types of a quote in insertion order
func (db *memDB) eventsOf(quoteID int32) []domain.LifecycleEventType {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []domain.LifecycleEventType
	for _, e := range db.state.events {
		if e.QuoteID == quoteID {
			out = append(out, e.EventType)
		}
	}
	return out
}

type memCompanies struct{ db *memDB }

func (r memCompanies) GetByID(ctx context.Context, id int32) (*domain.Company, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.state.companies[id]
	if !ok {
		return nil, notFound("company", id)
	}
	return &c, nil
}

type memCustomers struct{ db *memDB }

func (r memCustomers) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.state.customers[id]
	if !ok {
		return nil, notFound("customer", id)
	}
	return &c, nil
}

type memCars struct{ db *memDB }

func (r memCars) GetByID(ctx context.Context, id int32) (*domain.Car, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.state.cars[id]
	if !ok {
		return nil, notFound("car", id)
	}
	return &c, nil
}

func (r memCars) SetStatus(ctx context.Context, id int32, status domain.CarStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := r.db.state.cars[id]
	c.Status = status
	r.db.state.cars[id] = c
	return nil
}

type memTerms struct{ db *memDB }

func (r memTerms) GetActiveVersion(ctx context.Context, companyID int32) (*domain.TermsVersion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, tv := range r.db.state.termsVersions {
		if tv.CompanyID == companyID && tv.Status == domain.TermsVersionActive {
			return &tv, nil
		}
	}
	return nil, notFound("active terms for company", companyID)
}

func (r memTerms) GetVersionByID(ctx context.Context, id int32) (*domain.TermsVersion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tv, ok := r.db.state.termsVersions[id]
	if !ok {
		return nil, notFound("terms version", id)
	}
	return &tv, nil
}

func (r memTerms) ListDefaultSpecialTerms(ctx context.Context, companyID int32, types []domain.ContractType) ([]domain.SpecialTerm, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.SpecialTerm
	for _, st := range r.db.state.specialTerms {
		if st.CompanyID != companyID || !st.IsDefault || !st.IsActive {
			continue
		}
		for _, t := range types {
			if st.ContractType == t {
				out = append(out, st)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder == out[j].SortOrder {
			return out[i].ID < out[j].ID
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out, nil
}

type memNotifications struct{ db *memDB }

func (r memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.id()
	r.db.state.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.state.notifications[id]
	if !ok {
		return nil, notFound("notification", id)
	}
	return &n, nil
}

func (r memNotifications) MarkSent(ctx context.Context, id int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := r.db.state.notifications[id]
	n.Status = domain.NotificationStatusSent
	n.SentAt = &at
	n.Attempts++
	n.NextAttemptAt = nil
	r.db.state.notifications[id] = n
	return nil
}

func (r memNotifications) MarkFailed(ctx context.Context, id int64, attempts int, lastErr string, next *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := r.db.state.notifications[id]
	n.Status = domain.NotificationStatusFailed
	n.Attempts = attempts
	n.LastError = lastErr
	n.NextAttemptAt = next
	r.db.state.notifications[id] = n
	return nil
}

func (r memNotifications) ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.db.state.notifications {
		if n.Attempts >= maxAttempts {
			continue
		}
		if n.Status == domain.NotificationStatusFailed && (n.NextAttemptAt == nil || !n.NextAttemptAt.After(now)) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// notificationsOf returns outbox rows of one kind
func (db *memDB) notificationsOf(kind domain.NotificationKind) []domain.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []domain.Notification
	for _, n := range db.state.notifications {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockEmailSender) Name() string {
	return "mock"
}
