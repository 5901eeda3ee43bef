package handler

import (
	"strconv"
	"time"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/services"
)

type entityResponse struct {
	ID              string  `json:"id"`
	Category        string  `json:"category"`
	Name            string  `json:"name"`
	SubCategory     string  `json:"subCategory,omitempty"`
	Capacity        int     `json:"capacity"`
	CurrentBookings int     `json:"currentBookings"`
	DepositRequired float64 `json:"depositRequired"`
	PayoutAddress   string  `json:"payoutAddress"`
}

type summaryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type availabilityResponse struct {
	AvailableSeats  int            `json:"availableSeats"`
	TotalCapacity   int            `json:"totalCapacity"`
	DepositRequired float64        `json:"depositRequired"`
	PayoutAddress   string         `json:"payoutAddress"`
	EntityDetails   entityResponse `json:"entityDetails"`
	Note            string         `json:"note,omitempty"`
}

type pointerResponse struct {
	Owner         string `json:"owner"`
	OfferSequence uint32 `json:"offerSequence"`
}

type holdResponse struct {
	ID            string           `json:"id"`
	EventID       string           `json:"eventId"`
	Status        string           `json:"status"`
	HoldExpiresAt int64            `json:"holdExpiresAt"`
	CreatedAt     int64            `json:"createdAt"`
	ResolvedAt    *int64           `json:"resolvedAt,omitempty"`
	SeatReserved  bool             `json:"seatReserved"`
	Escrow        *pointerResponse `json:"escrow,omitempty"`
}

type ledgerResultResponse struct {
	Hash            string `json:"hash"`
	TransactionType string `json:"transactionType,omitempty"`
	Validated       bool   `json:"validated"`
	ResultCode      string `json:"resultCode"`
	LedgerIndex     uint32 `json:"ledgerIndex,omitempty"`
	ExplorerURL     string `json:"explorerUrl,omitempty"`
}

type escrowRecordResponse struct {
	Index         string        `json:"index"`
	Owner         string        `json:"owner"`
	Destination   string        `json:"destination"`
	Amount        domain.Amount `json:"amount"`
	CancelAfter   *time.Time    `json:"cancelAfter,omitempty"`
	FinishAfter   *time.Time    `json:"finishAfter,omitempty"`
	Condition     string        `json:"condition,omitempty"`
	PreviousTxnID string        `json:"previousTxnId,omitempty"`
}

func toEntity(e domain.BookableEntity) entityResponse {
	return entityResponse{
		ID:              e.ID,
		Category:        e.Category,
		Name:            e.Name,
		SubCategory:     e.SubCategory,
		Capacity:        e.Capacity,
		CurrentBookings: e.CurrentBookings,
		DepositRequired: e.DepositRequired,
		PayoutAddress:   e.PayoutAddress,
	}
}

func toAvailability(a *domain.Availability) availabilityResponse {
	return availabilityResponse{
		AvailableSeats:  a.AvailableSeats,
		TotalCapacity:   a.TotalCapacity,
		DepositRequired: a.DepositRequired,
		PayoutAddress:   a.PayoutAddress,
		EntityDetails:   toEntity(a.Entity),
		Note:            a.Note,
	}
}

func toPointer(p *domain.EscrowPointer) *pointerResponse {
	if p == nil {
		return nil
	}
	return &pointerResponse{Owner: p.Owner, OfferSequence: p.OfferSequence}
}

func toHold(h *domain.Hold) holdResponse {
	resp := holdResponse{
		ID:            h.ID,
		EventID:       h.EventID,
		Status:        string(h.Status),
		HoldExpiresAt: h.HoldExpiresAt.UnixMilli(),
		CreatedAt:     h.CreatedAt.UnixMilli(),
		SeatReserved:  h.SeatReserved,
		Escrow:        toPointer(h.Escrow),
	}
	if h.ResolvedAt != nil {
		ms := h.ResolvedAt.UnixMilli()
		resp.ResolvedAt = &ms
	}
	return resp
}

func toLedgerResult(r domain.LedgerResult, explorerURL string) ledgerResultResponse {
	return ledgerResultResponse{
		Hash:            r.Hash,
		TransactionType: r.TransactionType,
		Validated:       r.Validated,
		ResultCode:      r.ResultCode,
		LedgerIndex:     r.LedgerIndex,
		ExplorerURL:     explorerURL,
	}
}

func toEscrowRecord(r domain.EscrowRecord) escrowRecordResponse {
	return escrowRecordResponse{
		Index:         r.Index,
		Owner:         r.Owner,
		Destination:   r.Destination,
		Amount:        r.Amount,
		CancelAfter:   r.CancelAfter,
		FinishAfter:   r.FinishAfter,
		Condition:     r.Condition,
		PreviousTxnID: r.PreviousTxnID,
	}
}

type confirmResponse struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	Retryable bool   `json:"retryable,omitempty"`
}

func toConfirm(res *services.ConfirmResult) confirmResponse {
	return confirmResponse{Message: res.Message, Status: string(res.Status), Retryable: res.Retryable}
}

// flexibleSequence accepts offerSequence as a JSON number or string.
type flexibleSequence string

func (s *flexibleSequence) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return domain.InvalidField("offerSequence", "must be an integer")
		}
		*s = flexibleSequence(unquoted)
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	*s = flexibleSequence(data)
	return nil
}
