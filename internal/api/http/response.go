package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleet-erp-backend/internal/config"
	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
)

// Public messages are shown verbatim on the customer signing page
const (
	msgInvalidLink   = "유효하지 않은 링크입니다."
	msgAlreadySigned = "이미 서명이 완료된 견적입니다."
	msgLinkClosed    = "만료되었거나 취소된 링크입니다."
	msgContracted    = "이미 계약이 체결된 견적입니다."
	msgBadRequest    = "입력값을 확인해 주세요."
	msgUnauthorized  = "로그인이 필요합니다."
	msgForbidden     = "권한이 없습니다."
	msgNotFound      = "요청한 정보를 찾을 수 없습니다."
	msgInternal      = "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
)

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorMapping struct {
	status  int
	code    string
	message string
}

// mapError is the single place error kinds become HTTP statuses
func mapError(err error, public bool) errorMapping {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if public {
			return errorMapping{http.StatusNotFound, "not_found", msgInvalidLink}
		}
		return errorMapping{http.StatusNotFound, "not_found", msgNotFound}
	case errors.Is(err, domain.ErrAlreadyUsed):
		return errorMapping{http.StatusConflict, "already_signed", msgAlreadySigned}
	case errors.Is(err, domain.ErrConflict):
		return errorMapping{http.StatusConflict, "conflict", msgContracted}
	case errors.Is(err, domain.ErrRevoked):
		return errorMapping{http.StatusGone, "revoked", msgLinkClosed}
	case errors.Is(err, domain.ErrExpired):
		return errorMapping{http.StatusGone, "expired", msgLinkClosed}
	case errors.Is(err, domain.ErrValidation):
		return errorMapping{http.StatusBadRequest, "validation", msgBadRequest}
	case errors.Is(err, domain.ErrUnauthorized):
		return errorMapping{http.StatusUnauthorized, "unauthorized", msgUnauthorized}
	case errors.Is(err, domain.ErrForbidden):
		return errorMapping{http.StatusForbidden, "forbidden", msgForbidden}
	default:
		return errorMapping{http.StatusInternalServerError, "internal", msgInternal}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	public := config.GetSecurityLevel(routeName(r)) == config.SecurityPublic
	m := mapError(err, public)

	resp := errorResponse{Code: m.code, Message: m.message}
	if m.status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "route", routeName(r), "error", err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "route", routeName(r), "status", m.status, "error", err)
		if m.status == http.StatusBadRequest {
			resp.Detail = err.Error()
		}
	}
	writeJSON(w, m.status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
