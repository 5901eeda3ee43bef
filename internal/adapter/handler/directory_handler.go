package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/services"
)

const noSeatsAvailable = "No seats available"

type Directory interface {
	ListEntities(ctx context.Context) ([]domain.EntitySummary, error)
	Availability(ctx context.Context, name string) (*domain.Availability, error)
	AvailabilityByID(ctx context.Context, id string) (*domain.Availability, error)
	HoldSeat(ctx context.Context, id string) (services.HoldSeatResult, error)
}

type DirectoryHandler struct {
	svc Directory
}

func NewDirectoryHandler(svc Directory) *DirectoryHandler {
	return &DirectoryHandler{svc: svc}
}

func (h *DirectoryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	entities, err := h.svc.ListEntities(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]summaryResponse, 0, len(entities))
	for _, e := range entities {
		out = append(out, summaryResponse{ID: e.ID, Name: e.Name, Category: e.Category})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DirectoryHandler) AvailabilityByID(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.AvailabilityByID(r.Context(), chi.URLParam(r, "id"))
	h.writeAvailability(w, r, a, err)
}

func (h *DirectoryHandler) AvailabilityByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeDomainError(w, r, domain.MissingField("name"))
		return
	}
	a, err := h.svc.Availability(r.Context(), name)
	h.writeAvailability(w, r, a, err)
}

func (h *DirectoryHandler) writeAvailability(w http.ResponseWriter, r *http.Request, a *domain.Availability, err error) {
	switch {
	case errors.Is(err, domain.ErrNoSeatsAvailable):
		writeJSON(w, http.StatusOK, noSeatsAvailable)
	case err != nil:
		writeDomainError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, toAvailability(a))
	}
}

type holdSeatResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Remaining int    `json:"remaining"`
}

func (h *DirectoryHandler) HoldSeat(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.HoldSeat(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holdSeatResponse{
		Success:   res.Success,
		Message:   "Seat held successfully",
		Remaining: res.RemainingSeats,
	})
}
