package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/services"
)

type Holds interface {
	CreateHold(ctx context.Context, eventID string) (*domain.Hold, error)
	GetHold(ctx context.Context, id string) (*domain.Hold, error)
	Cancel(ctx context.Context, id string) (*domain.Hold, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, bookingID, txHash string) (*services.ConfirmResult, error)
}

type BookingHandler struct {
	holds     Holds
	confirmer Confirmer
}

func NewBookingHandler(holds Holds, confirmer Confirmer) *BookingHandler {
	return &BookingHandler{holds: holds, confirmer: confirmer}
}

type bookRequest struct {
	EventID string `json:"eventId"`
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	hold, err := h.holds.CreateHold(r.Context(), req.EventID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHold(hold))
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	hold, err := h.holds.GetHold(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHold(hold))
}

type confirmRequest struct {
	BookingID string `json:"bookingId"`
	TxHash    string `json:"txHash"`
}

// Confirm answers 200 only for a confirmed booking. Expired, pending and
// cancelled outcomes are 400 with the booking status.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessageError(w, r, err)
		return
	}

	res, err := h.confirmer.Confirm(r.Context(), req.BookingID, req.TxHash)
	if err != nil {
		writeMessageError(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, toConfirm(res))
}

type cancelRequest struct {
	BookingID string `json:"bookingId"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	hold, err := h.holds.Cancel(r.Context(), req.BookingID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHold(hold))
}
