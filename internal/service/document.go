package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
	"fleet-erp-backend/internal/storage"
)

var pdfMagic = []byte("%PDF-")

type documentService struct {
	repos     *repository.Repositories
	docs      storage.DocumentStore
	lifecycle LifecycleService
	maxBytes  int64
	newKey    func(companyID, contractID int32) string
	now       func() time.Time
}

func NewDocumentService(repos *repository.Repositories, store storage.DocumentStore, lifecycle LifecycleService,
	maxBytes int64) DocumentService {
	return &documentService{
		repos:     repos,
		docs:      store,
		lifecycle: lifecycle,
		maxBytes:  maxBytes,
		newKey:    contractDocumentKey,
		now:       time.Now,
	}
}

func contractDocumentKey(companyID, contractID int32) string {
	return fmt.Sprintf("contracts/%d/%d/%s.pdf", companyID, contractID, uuid.NewString())
}

// StoreForToken accepts the rendered PDF from the signing page. Only signed
// tokens may upload.
func (s *documentService) StoreForToken(ctx context.Context, token string, pdf []byte) (string, error) {
	tok, err := s.repos.ShareTokens.GetByToken(ctx, token)
	if err != nil {
		return "", err
	}
	if tok.Status != domain.ShareTokenStatusSigned {
		return "", fmt.Errorf("%w: token %d is not signed", domain.ErrNotFound, tok.ID)
	}
	contract, err := s.repos.Contracts.GetByQuote(ctx, tok.QuoteID)
	if err != nil {
		return "", err
	}
	return s.link(ctx, contract, pdf, nil)
}

func (s *documentService) StoreForCompany(ctx context.Context, actor domain.Actor, contractID int32, pdf []byte) (string, error) {
	contract, err := s.repos.Contracts.GetByID(ctx, contractID)
	if err != nil {
		return "", err
	}
	if contract.CompanyID != actor.CompanyID {
		return "", fmt.Errorf("%w: contract %d", domain.ErrNotFound, contractID)
	}
	return s.link(ctx, contract, pdf, int32Ref(actor.UserID))
}

// link uploads once per contract. A contract that already has a URL keeps it,
// and when two uploads race the first link written wins.
func (s *documentService) link(ctx context.Context, contract *domain.Contract, pdf []byte, actorID *int32) (string, error) {
	logger.EnterMethod("documentService.link", "contractID", contract.ID)

	if contract.HasPDF() {
		logger.ExitMethod("documentService.link", "contractID", contract.ID, "existing", true)
		return contract.PDFURL, nil
	}
	if err := s.checkPDF(pdf); err != nil {
		logger.ExitMethodWithError("documentService.link", err)
		return "", err
	}

	key := s.newKey(contract.CompanyID, contract.ID)
	logger.ExternalServiceCall(s.docs.Name(), "Put", "key", key, "bytes", len(pdf))
	url, err := s.docs.Put(ctx, key, pdf, "application/pdf")
	logger.ExternalServiceResult(s.docs.Name(), "Put", err, "key", key)
	if err != nil {
		logger.ExitMethodWithError("documentService.link", err, "contractID", contract.ID)
		return "", fmt.Errorf("failed to store contract document: %w", err)
	}

	now := s.now()
	linked, err := s.repos.Contracts.SetPDF(ctx, contract.ID, url, now)
	if err != nil {
		logger.ExitMethodWithError("documentService.link", err, "contractID", contract.ID)
		return "", err
	}
	if !linked {
		current, err := s.repos.Contracts.GetByID(ctx, contract.ID)
		if err != nil {
			return "", err
		}
		logger.Warn("Contract document already linked by a concurrent upload", "contractID", contract.ID, "orphanKey", key)
		return current.PDFURL, nil
	}

	s.lifecycle.Record(ctx, domain.LifecycleEvent{
		CompanyID:  contract.CompanyID,
		QuoteID:    contract.QuoteID,
		ContractID: int32Ref(contract.ID),
		EventType:  domain.EventPDFStored,
		ActorID:    actorID,
		Metadata: map[string]any{
			"contract_id": contract.ID,
			"url":         url,
			"bytes":       len(pdf),
		},
		CreatedOn: now,
	})

	logger.ExitMethod("documentService.link", "contractID", contract.ID, "url", url)
	return url, nil
}

func (s *documentService) checkPDF(pdf []byte) error {
	if len(pdf) == 0 {
		return fmt.Errorf("%w: empty document", domain.ErrValidation)
	}
	if s.maxBytes > 0 && int64(len(pdf)) > s.maxBytes {
		return fmt.Errorf("%w: document exceeds %d bytes", domain.ErrValidation, s.maxBytes)
	}
	if !bytes.HasPrefix(pdf, pdfMagic) {
		return fmt.Errorf("%w: document is not a PDF", domain.ErrValidation)
	}
	return nil
}
