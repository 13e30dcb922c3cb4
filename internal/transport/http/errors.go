package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brewhouse/cafe-orders/internal/domain"
)

const (
	codeMethodNotAllowed         = "method_not_allowed"
	codeNotFound                 = "not_found"
	codeInvalidRequestBody       = "invalid_request_body"
	codeValidationFailed         = "validation_failed"
	codeInvalidID                = "invalid_id"
	codeEmptyOrder               = "empty_order"
	codeInvalidTransition        = "invalid_transition"
	codeInvalidPaymentTransition = "invalid_payment_transition"
	codeConflict                 = "conflict"
	codeOrderNotFound            = "order_not_found"
	codeMenuItemNotFound         = "menu_item_not_found"
	codeOrderNumberExhausted     = "order_number_exhausted"
	codeForbidden                = "forbidden"
	codeInternalError            = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, vErr.Error())
		return
	}
	var tErr *domain.InvalidTransitionError
	if errors.As(err, &tErr) {
		writeError(w, http.StatusConflict, codeInvalidTransition, tErr.Error())
		return
	}
	var pErr *domain.InvalidPaymentTransitionError
	if errors.As(err, &pErr) {
		writeError(w, http.StatusConflict, codeInvalidPaymentTransition, pErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, codeEmptyOrder, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrMenuItemNotFound):
		writeError(w, http.StatusNotFound, codeMenuItemNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, domain.ErrOrderNumberExhausted):
		writeError(w, http.StatusServiceUnavailable, codeOrderNumberExhausted, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
