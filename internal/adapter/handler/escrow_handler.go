package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/services"
)

type Escrows interface {
	OpenEscrow(ctx context.Context, in services.OpenEscrowInput) (*services.OpenEscrowResult, error)
	FinishEscrow(ctx context.Context, in services.EscrowPointerInput) (*services.EscrowTxResult, error)
	CancelEscrow(ctx context.Context, in services.EscrowPointerInput) (*services.EscrowTxResult, error)
	EscrowStatus(ctx context.Context, owner, sequence string) (*services.EscrowStatusResult, error)
	ListEscrows(ctx context.Context, owner string) ([]domain.EscrowRecord, error)
}

type EscrowHandler struct {
	svc Escrows
}

func NewEscrowHandler(svc Escrows) *EscrowHandler {
	return &EscrowHandler{svc: svc}
}

type openEscrowRequest struct {
	OwnerSeed                 string         `json:"ownerSeed"`
	Destination               string         `json:"destination"`
	Amount                    *domain.Amount `json:"amount"`
	CancelAfterSecondsFromNow *int64         `json:"cancelAfterSecondsFromNow"`
	FinishAfterSecondsFromNow *int64         `json:"finishAfterSecondsFromNow"`
	Condition                 string         `json:"condition"`
	BookingID                 string         `json:"bookingId"`
}

type openEscrowResponse struct {
	Pointer     pointerResponse      `json:"pointer"`
	Result      ledgerResultResponse `json:"result"`
	CancelAfter time.Time            `json:"cancelAfter"`
	FinishAfter *time.Time           `json:"finishAfter,omitempty"`
	BookingID   string               `json:"bookingId,omitempty"`
}

func (h *EscrowHandler) Hold(w http.ResponseWriter, r *http.Request) {
	var req openEscrowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.svc.OpenEscrow(r.Context(), services.OpenEscrowInput{
		OwnerCredential:    req.OwnerSeed,
		Destination:        req.Destination,
		Amount:             req.Amount,
		CancelAfterSeconds: req.CancelAfterSecondsFromNow,
		FinishAfterSeconds: req.FinishAfterSecondsFromNow,
		Condition:          req.Condition,
		BookingID:          req.BookingID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, openEscrowResponse{
		Pointer:     *toPointer(&res.Pointer),
		Result:      toLedgerResult(res.Result, res.ExplorerURL),
		CancelAfter: res.CancelAfter,
		FinishAfter: res.FinishAfter,
		BookingID:   res.BookingID,
	})
}

type pointerRequest struct {
	Owner         string           `json:"owner"`
	OfferSequence flexibleSequence `json:"offerSequence"`
	Fulfillment   string           `json:"fulfillment"`
	Condition     string           `json:"condition"`
	FinisherSeed  string           `json:"finisherSeed"`
	OperatorSeed  string           `json:"operatorSeed"`
}

type escrowTxResponse struct {
	Pointer pointerResponse      `json:"pointer"`
	Result  ledgerResultResponse `json:"result"`
}

func (h *EscrowHandler) Release(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.svc.FinishEscrow(r.Context(), services.EscrowPointerInput{
		Credential:    req.FinisherSeed,
		Owner:         req.Owner,
		OfferSequence: string(req.OfferSequence),
		Fulfillment:   req.Fulfillment,
		Condition:     req.Condition,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, escrowTxResponse{
		Pointer: *toPointer(&res.Pointer),
		Result:  toLedgerResult(res.Result, res.ExplorerURL),
	})
}

func (h *EscrowHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.svc.CancelEscrow(r.Context(), services.EscrowPointerInput{
		Credential:    req.OperatorSeed,
		Owner:         req.Owner,
		OfferSequence: string(req.OfferSequence),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, escrowTxResponse{
		Pointer: *toPointer(&res.Pointer),
		Result:  toLedgerResult(res.Result, res.ExplorerURL),
	})
}

type listEscrowsResponse struct {
	Owner   string                 `json:"owner"`
	Escrows []escrowRecordResponse `json:"escrows"`
}

func (h *EscrowHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	records, err := h.svc.ListEscrows(r.Context(), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := listEscrowsResponse{Owner: owner, Escrows: make([]escrowRecordResponse, 0, len(records))}
	for _, rec := range records {
		out.Escrows = append(out.Escrows, toEscrowRecord(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type escrowStatusResponse struct {
	Owner         string                `json:"owner"`
	OfferSequence uint32                `json:"offerSequence"`
	Status        domain.EscrowStatus   `json:"status"`
	Escrow        *escrowRecordResponse `json:"escrow,omitempty"`
	BookingID     string                `json:"bookingId,omitempty"`
}

func (h *EscrowHandler) Status(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.EscrowStatus(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "seq"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := escrowStatusResponse{
		Owner:         res.Pointer.Owner,
		OfferSequence: res.Pointer.OfferSequence,
		Status:        res.Status,
		BookingID:     res.BookingID,
	}
	if res.Escrow != nil {
		rec := toEscrowRecord(*res.Escrow)
		out.Escrow = &rec
	}
	writeJSON(w, http.StatusOK, out)
}
