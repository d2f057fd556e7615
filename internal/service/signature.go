package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

const maxSignatureBytes = 2 << 20

type signatureService struct {
	now func() time.Time
}

func NewSignatureService() SignatureService {
	return &signatureService{now: time.Now}
}

// Validate checks the required fields of a submission
func (in *SignatureInput) Validate() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	if in.CustomerName == "" {
		return fmt.Errorf("%w: customer_name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.SignatureData) == "" {
		return fmt.Errorf("%w: signature_data is required", domain.ErrValidation)
	}
	if len(in.SignatureData) > maxSignatureBytes {
		return fmt.Errorf("%w: signature_data is too large", domain.ErrValidation)
	}
	return nil
}

func newSignature(tok *domain.ShareToken, in SignatureInput) *domain.CustomerSignature {
	return &domain.CustomerSignature{
		QuoteID:       tok.QuoteID,
		TokenID:       tok.ID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CustomerEmail: in.CustomerEmail,
		SignatureData: in.SignatureData,
		AgreedTerms:   in.AgreedTerms,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
	}
}

// Capture locks the token row, checks it is still usable and stores the
// signature through repos. Callers own the transaction: the token lock and the
// new row live until it ends.
func (s *signatureService) Capture(ctx context.Context, repos *repository.Repositories, token string, in SignatureInput) (*domain.CustomerSignature, error) {
	logger.EnterMethod("signatureService.Capture")

	if err := in.Validate(); err != nil {
		logger.ExitMethodWithError("signatureService.Capture", err)
		return nil, err
	}
	tok, err := repos.ShareTokens.GetByTokenForUpdate(ctx, token)
	if err != nil {
		logger.ExitMethodWithError("signatureService.Capture", err)
		return nil, err
	}
	now := s.now()
	if err := checkTokenUsable(tok, now); err != nil {
		logger.ExitMethodWithError("signatureService.Capture", err, "tokenID", tok.ID)
		return nil, err
	}

	sig := newSignature(tok, in)
	sig.CreatedOn = now
	if err := repos.Signatures.Create(ctx, sig); err != nil {
		logger.ExitMethodWithError("signatureService.Capture", err, "tokenID", tok.ID)
		return nil, err
	}

	logger.ExitMethod("signatureService.Capture", "signatureID", sig.ID)
	return sig, nil
}
