package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/service"
)

// StaffHandler serves the authenticated ERP endpoints
type StaffHandler struct {
	shares      service.ShareService
	lifecycle   service.LifecycleService
	documents   service.DocumentService
	maxPDFBytes int64
}

func NewStaffHandler(shares service.ShareService, lifecycle service.LifecycleService, documents service.DocumentService,
	maxPDFBytes int64) *StaffHandler {
	return &StaffHandler{
		shares:      shares,
		lifecycle:   lifecycle,
		documents:   documents,
		maxPDFBytes: maxPDFBytes,
	}
}

type issueShareBody struct {
	ExpiryDays int    `json:"expiryDays"`
	Email      string `json:"email"`
}

type revokeResponse struct {
	Success bool  `json:"success"`
	Revoked int64 `json:"revoked"`
}

type timelineResponse struct {
	Events []domain.LifecycleEvent `json:"events"`
}

type pdfResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func (h *StaffHandler) IssueShare(w http.ResponseWriter, r *http.Request) {
	actor, quoteID, err := staffQuote(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body issueShareBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && err != io.EOF {
			writeError(w, r, fmt.Errorf("%w: malformed JSON body", domain.ErrValidation))
			return
		}
	}

	res, err := h.shares.Issue(r.Context(), actor, quoteID, service.IssueShareRequest{
		ExpiryDays: body.ExpiryDays,
		Email:      body.Email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.IsExisting {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *StaffHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	actor, quoteID, err := staffQuote(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	listing, err := h.shares.List(r.Context(), actor, quoteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *StaffHandler) RevokeShares(w http.ResponseWriter, r *http.Request) {
	actor, quoteID, err := staffQuote(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.shares.RevokeAll(r.Context(), actor, quoteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revokeResponse{Success: true, Revoked: n})
}

func (h *StaffHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	actor, quoteID, err := staffQuote(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.lifecycle.Timeline(r.Context(), actor, quoteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineResponse{Events: events})
}

func (h *StaffHandler) StoreContractPDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthorized)
		return
	}
	contractID, err := pathID(r, "contractId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pdf, err := readPDF(w, r, h.maxPDFBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.documents.StoreForCompany(r.Context(), actor, contractID, pdf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pdfResponse{Success: true, URL: url})
}

func staffQuote(r *http.Request) (domain.Actor, int32, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return domain.Actor{}, 0, domain.ErrUnauthorized
	}
	quoteID, err := pathID(r, "quoteId")
	if err != nil {
		return domain.Actor{}, 0, err
	}
	return actor, quoteID, nil
}

func pathID(r *http.Request, name string) (int32, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 32)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrValidation, name)
	}
	return int32(v), nil
}

// readPDF reads at most limit bytes; anything larger is rejected before the
// service sees it
func readPDF(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, limit)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrValidation, limit)
	}
	return data, nil
}
