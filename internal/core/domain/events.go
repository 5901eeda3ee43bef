package domain

import "time"

const (
	EventHoldCreated   = "hold.created"
	EventHoldConfirmed = "hold.confirmed"
	EventHoldExpired   = "hold.expired"
	EventHoldCancelled = "hold.cancelled"
	EventEscrowFinish  = "escrow.finished"
)

// HoldEvent describes a hold lifecycle change for downstream consumers.
type HoldEvent struct {
	Type       string         `json:"type"`
	HoldID     string         `json:"holdId"`
	EventID    string         `json:"eventId"`
	Status     HoldStatus     `json:"status"`
	OccurredAt time.Time      `json:"occurredAt"`
	Escrow     *EscrowPointer `json:"escrow,omitempty"`
	Detail     string         `json:"detail,omitempty"`
}
