package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(v)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the error taxonomy onto status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := domainError(r, err)
	writeJSON(w, status, resp)
}

// writeMessageError is writeDomainError for routes whose clients read message.
func writeMessageError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := domainError(r, err)
	resp.Message = resp.Error
	writeJSON(w, status, resp)
}

func domainError(r *http.Request, err error) (int, errorResponse) {
	var (
		validation *domain.ValidationError
		ledgerErr  *domain.LedgerError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorResponse{Error: validation.Error(), Field: validation.Field}
	case errors.Is(err, domain.ErrEntityNotFound):
		return http.StatusNotFound, errorResponse{Error: "Event not found"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrNoSeatsLeft):
		return http.StatusBadRequest, errorResponse{Error: "No seats left to hold"}
	case errors.Is(err, domain.ErrHoldNotHeld):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.As(err, &ledgerErr):
		return http.StatusBadRequest, errorResponse{Error: ledgerErr.Error(), Code: ledgerErr.Code}
	default:
		logger(r).Error("request failed", "error", err)
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			return err
		}
		return domain.InvalidField("body", "must be valid JSON")
	}
	return nil
}
