package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

// ContractBundle is everything a client-side renderer needs to draw the signed contract
type ContractBundle struct {
	Contract     domain.Contract               `json:"contract"`
	Quote        domain.Quote                  `json:"quote"`
	Company      domain.Company                `json:"company"`
	Car          domain.Car                    `json:"car"`
	Customer     *domain.Customer              `json:"customer,omitempty"`
	Signature    domain.CustomerSignature      `json:"signature"`
	TermsVersion *domain.TermsVersion          `json:"termsVersion,omitempty"`
	Schedule     []domain.PaymentScheduleEntry `json:"schedule"`
}

type contractService struct {
	repos       *repository.Repositories
	tx          repository.TxManager
	shares      ShareService
	signatures  SignatureService
	provisioner *ContractProvisioner
	notifier    NotificationService
	now         func() time.Time
}

func NewContractService(repos *repository.Repositories, tx repository.TxManager, shares ShareService,
	signatures SignatureService, notifier NotificationService) ContractService {
	return &contractService{
		repos:       repos,
		tx:          tx,
		shares:      shares,
		signatures:  signatures,
		provisioner: &ContractProvisioner{},
		notifier:    notifier,
		now:         time.Now,
	}
}

// Sign captures the signature and provisions the contract, schedule, car status,
// token state and audit events in one transaction. The token row stays locked
// until commit so two concurrent submissions cannot both pass.
func (s *contractService) Sign(ctx context.Context, token string, in SignatureInput) (*SignResult, error) {
	logger.EnterMethod("contractService.Sign")

	if err := in.Validate(); err != nil {
		logger.ExitMethodWithError("contractService.Sign", err)
		return nil, err
	}
	tok, err := s.shares.Validate(ctx, token)
	if err != nil {
		logger.ExitMethodWithError("contractService.Sign", err)
		return nil, err
	}
	if err := s.ensureNoContract(ctx, s.repos, tok.QuoteID); err != nil {
		logger.ExitMethodWithError("contractService.Sign", err, "quoteID", tok.QuoteID)
		return nil, err
	}
	quote, err := s.repos.Quotes.GetByID(ctx, tok.QuoteID)
	if err != nil {
		logger.ExitMethodWithError("contractService.Sign", err, "quoteID", tok.QuoteID)
		return nil, err
	}

	now := s.now()
	var (
		contract  *domain.Contract
		signature *domain.CustomerSignature
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		signature, err = s.signatures.Capture(ctx, repos, token, in)
		if err != nil {
			return err
		}
		if err := s.ensureNoContract(ctx, repos, signature.QuoteID); err != nil {
			return err
		}

		contract, err = s.provisioner.Provision(ctx, repos, quote, signature, now)
		if err != nil {
			return err
		}

		if err := repos.ShareTokens.MarkSigned(ctx, signature.TokenID, now); err != nil {
			return err
		}
		if err := repos.Quotes.MarkSigned(ctx, quote.ID, now, contract.TermsVersionID); err != nil {
			return err
		}
		return s.recordSigningEvents(ctx, repos, quote, signature, contract, now)
	})
	if err != nil {
		logger.ExitMethodWithError("contractService.Sign", err, "quoteID", tok.QuoteID)
		return nil, err
	}

	s.notifySigned(ctx, quote, signature, contract)

	logger.ExitMethod("contractService.Sign", "quoteID", quote.ID, "contractID", contract.ID)
	return &SignResult{ContractID: contract.ID, SignatureID: signature.ID, Token: token}, nil
}

func (s *contractService) ensureNoContract(ctx context.Context, repos *repository.Repositories, quoteID int32) error {
	existing, err := repos.Contracts.GetByQuote(ctx, quoteID)
	if err == nil {
		return fmt.Errorf("%w: contract %d already exists for quote %d", domain.ErrConflict, existing.ID, quoteID)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// recordSigningEvents writes signed then contract_created inside the signing
// transaction so the trail can never claim a contract that was rolled back
func (s *contractService) recordSigningEvents(ctx context.Context, repos *repository.Repositories, quote *domain.Quote,
	sig *domain.CustomerSignature, c *domain.Contract, now time.Time) error {
	recipient := sig.CustomerPhone
	if recipient == "" {
		recipient = sig.CustomerEmail
	}
	signed := &domain.LifecycleEvent{
		CompanyID: quote.CompanyID,
		QuoteID:   quote.ID,
		EventType: domain.EventSigned,
		Channel:   domain.ChannelLink,
		Recipient: MaskRecipient(recipient),
		Metadata: map[string]any{
			"signature_id": sig.ID,
			"token_id":     sig.TokenID,
			"agreed_terms": sig.AgreedTerms,
			"ip_address":   sig.IPAddress,
			"user_agent":   sig.UserAgent,
		},
		CreatedOn: now,
	}
	if err := repos.Events.Create(ctx, signed); err != nil {
		return err
	}

	created := &domain.LifecycleEvent{
		CompanyID:  quote.CompanyID,
		QuoteID:    quote.ID,
		ContractID: int32Ref(c.ID),
		EventType:  domain.EventContractCreated,
		Metadata: map[string]any{
			"contract_id":  c.ID,
			"term_months":  c.TermMonths,
			"monthly_rent": c.MonthlyRent,
		},
		CreatedOn: now,
	}
	return repos.Events.Create(ctx, created)
}

// notifySigned queues the confirmation emails. Failures never reach the caller.
func (s *contractService) notifySigned(ctx context.Context, quote *domain.Quote, sig *domain.CustomerSignature, c *domain.Contract) {
	company, err := s.repos.Companies.GetByID(ctx, quote.CompanyID)
	if err != nil {
		logger.ErrorContext(ctx, "Company lookup failed, skipping signing notifications", "companyID", quote.CompanyID, "error", err)
		return
	}

	customerEmail := sig.CustomerEmail
	if customerEmail == "" && quote.CustomerID != nil {
		if customer, err := s.repos.Customers.GetByID(ctx, *quote.CustomerID); err == nil {
			customerEmail = customer.Email
		}
	}
	if customerEmail != "" {
		subject, body := contractSignedCustomerEmail(company.Name, sig.CustomerName, c)
		s.enqueue(ctx, &domain.Notification{
			CompanyID:     quote.CompanyID,
			QuoteID:       int32Ref(quote.ID),
			Kind:          domain.NotificationContractSignedCustomer,
			Recipient:     customerEmail,
			RecipientName: sig.CustomerName,
			Subject:       subject,
			Body:          body,
		})
	}

	if company.Email != "" {
		subject, body := contractSignedCompanyEmail(sig.CustomerName, c)
		s.enqueue(ctx, &domain.Notification{
			CompanyID:     quote.CompanyID,
			QuoteID:       int32Ref(quote.ID),
			Kind:          domain.NotificationContractSignedCompany,
			Recipient:     company.Email,
			RecipientName: company.Name,
			Subject:       subject,
			Body:          body,
		})
	}
}

func (s *contractService) enqueue(ctx context.Context, n *domain.Notification) {
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		logger.ErrorContext(ctx, "Failed to queue notification", "kind", n.Kind, "quoteID", n.QuoteID, "error", err)
	}
}

// PublicBundle returns the renderer data for a signed token. Tokens that are
// not signed yet are reported as not found.
func (s *contractService) PublicBundle(ctx context.Context, token string) (*ContractBundle, error) {
	tok, err := s.repos.ShareTokens.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if tok.Status != domain.ShareTokenStatusSigned {
		return nil, fmt.Errorf("%w: token %d is not signed", domain.ErrNotFound, tok.ID)
	}

	contract, err := s.repos.Contracts.GetByQuote(ctx, tok.QuoteID)
	if err != nil {
		return nil, err
	}
	quote, err := s.repos.Quotes.GetByID(ctx, tok.QuoteID)
	if err != nil {
		return nil, err
	}
	company, err := s.repos.Companies.GetByID(ctx, quote.CompanyID)
	if err != nil {
		return nil, err
	}
	car, err := s.repos.Cars.GetByID(ctx, contract.CarID)
	if err != nil {
		return nil, err
	}
	sig, err := s.repos.Signatures.GetByID(ctx, contract.SignatureID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.repos.Schedules.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	bundle := &ContractBundle{
		Contract:  *contract,
		Quote:     *quote,
		Company:   *company,
		Car:       *car,
		Signature: *sig,
		Schedule:  schedule,
	}
	if contract.CustomerID != nil {
		if customer, err := s.repos.Customers.GetByID(ctx, *contract.CustomerID); err == nil {
			bundle.Customer = customer
		}
	}
	if contract.TermsVersionID != nil {
		// The version snapshotted at signing, even if a newer one is active now
		tv, err := s.repos.Terms.GetVersionByID(ctx, *contract.TermsVersionID)
		if err != nil {
			return nil, err
		}
		bundle.TermsVersion = tv
	}
	return bundle, nil
}
