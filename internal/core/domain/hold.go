package domain

import (
	"time"
)

type HoldStatus string

const (
	HoldHeld      HoldStatus = "HELD"
	HoldConfirmed HoldStatus = "CONFIRMED"
	HoldCancelled HoldStatus = "CANCELLED"
	HoldExpired   HoldStatus = "EXPIRED"
)

// IsTerminal reports whether the status can no longer change.
func (s HoldStatus) IsTerminal() bool {
	return s != HoldHeld
}

type Hold struct {
	ID            string
	EventID       string
	Status        HoldStatus
	HoldExpiresAt time.Time
	CreatedAt     time.Time
	ResolvedAt    *time.Time
	SeatReserved  bool
	Escrow        *EscrowPointer
}

// IsExpiredAt reports whether the hold window has closed at now.
// The deadline itself counts as expired.
func (h *Hold) IsExpiredAt(now time.Time) bool {
	return !now.Before(h.HoldExpiresAt)
}

// Resolution is the outcome of a confirmation attempt.
type Resolution string

const (
	ResolutionConfirmed Resolution = "CONFIRMED"
	ResolutionExpired   Resolution = "EXPIRED"
	ResolutionPending   Resolution = "PENDING"
)

type EvidenceVerdict int

const (
	EvidencePending EvidenceVerdict = iota
	EvidenceConfirming
	EvidenceFailed
)

// Evidence is what the ledger reported for a payment reference.
type Evidence struct {
	TxHash string
	Found  bool
	Tx     LedgerResult
}

// Verdict classifies the evidence. When payoutAddress is known the
// transaction must be a Payment to exactly that address.
func (e Evidence) Verdict(payoutAddress string) EvidenceVerdict {
	if !e.Found || !e.Tx.Validated {
		return EvidencePending
	}
	if !e.Tx.Succeeded() {
		return EvidenceFailed
	}
	if payoutAddress != "" && (e.Tx.TransactionType != TxPayment || e.Tx.Destination != payoutAddress) {
		return EvidenceFailed
	}
	return EvidenceConfirming
}
