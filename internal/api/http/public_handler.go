package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/service"
)

const maxSignBody = 4 << 20

// PublicHandler serves the customer signing page. The share token in the
// path is the only credential.
type PublicHandler struct {
	views       service.QuoteViewService
	contracts   service.ContractService
	documents   service.DocumentService
	maxPDFBytes int64
}

func NewPublicHandler(views service.QuoteViewService, contracts service.ContractService, documents service.DocumentService,
	maxPDFBytes int64) *PublicHandler {
	return &PublicHandler{
		views:       views,
		contracts:   contracts,
		documents:   documents,
		maxPDFBytes: maxPDFBytes,
	}
}

type signBody struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	SignatureData string `json:"signature_data"`
	AgreedTerms   bool   `json:"agreed_terms"`
}

type signResponse struct {
	Success    bool   `json:"success"`
	ContractID int32  `json:"contractId"`
	Token      string `json:"token"`
}

func (h *PublicHandler) ViewQuote(w http.ResponseWriter, r *http.Request) {
	view, err := h.views.View(r.Context(), mux.Vars(r)["token"], service.Visitor{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PublicHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var body signBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSignBody)).Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body", domain.ErrValidation))
		return
	}

	token := mux.Vars(r)["token"]
	res, err := h.contracts.Sign(r.Context(), token, service.SignatureInput{
		CustomerName:  body.CustomerName,
		CustomerPhone: body.CustomerPhone,
		CustomerEmail: body.CustomerEmail,
		SignatureData: body.SignatureData,
		AgreedTerms:   body.AgreedTerms,
		IPAddress:     clientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signResponse{Success: true, ContractID: res.ContractID, Token: res.Token})
}

func (h *PublicHandler) ContractBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.contracts.PublicBundle(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *PublicHandler) StoreContractPDF(w http.ResponseWriter, r *http.Request) {
	pdf, err := readPDF(w, r, h.maxPDFBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.documents.StoreForToken(r.Context(), mux.Vars(r)["token"], pdf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pdfResponse{Success: true, URL: url})
}
