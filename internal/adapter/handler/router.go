package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewRouter(cfg RouterConfig, directory *DirectoryHandler, bookings *BookingHandler, escrows *EscrowHandler) http.Handler {
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(base.With("module", "http")))
	r.Use(recoverMiddleware)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/events", directory.ListEvents)
	r.Get("/events/{id}/availability", directory.AvailabilityByID)
	r.Post("/events/{id}/hold-seat", directory.HoldSeat)
	r.Get("/availability", directory.AvailabilityByName)

	r.Route("/api", func(r chi.Router) {
		r.Post("/book", bookings.Book)
		r.Get("/bookings/{id}", bookings.GetBooking)
		r.Post("/confirm", bookings.Confirm)
		r.Post("/cancel", bookings.Cancel)
	})

	r.Route("/escrow", func(r chi.Router) {
		r.Post("/hold", escrows.Hold)
		r.Post("/release", escrows.Release)
		r.Post("/refund", escrows.Refund)
		r.Get("/status/{owner}/{seq}", escrows.Status)
		r.Get("/{owner}", escrows.List)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
