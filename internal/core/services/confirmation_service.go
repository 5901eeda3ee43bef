package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports"
)

const (
	MessageConfirmed = "Success! Table is yours."
	MessageExpired   = "Payment failed or too late."
	MessagePending   = "Payment not yet validated on the ledger, retry before the hold expires."
	MessageCancelled = "Booking was cancelled."

	DefaultSettleTimeout = 20 * time.Second
)

type HoldResolver interface {
	ExpireIfDue(ctx context.Context, id string) (*domain.Hold, error)
	Resolve(ctx context.Context, id string, evidence domain.Evidence) (*domain.Hold, domain.Resolution, error)
}

type EscrowFinisher interface {
	FinishEscrow(ctx context.Context, in EscrowPointerInput) (*EscrowTxResult, error)
}

type ConfirmResult struct {
	Success    bool
	Status     domain.HoldStatus
	Resolution domain.Resolution
	Message    string
	Retryable  bool
	Hold       *domain.Hold
}

type ConfirmationService struct {
	ledger        ports.LedgerClient
	resolver      HoldResolver
	finisher      EscrowFinisher
	publisher     ports.EventPublisher
	settleTimeout time.Duration
	logger        *slog.Logger

	wg      sync.WaitGroup
	settled sync.Map
}

func NewConfirmationService(resolver HoldResolver, ledger ports.LedgerClient, finisher EscrowFinisher, publisher ports.EventPublisher, settleTimeout time.Duration, logger *slog.Logger) *ConfirmationService {
	if settleTimeout <= 0 {
		settleTimeout = DefaultSettleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationService{
		ledger:        ledger,
		resolver:      resolver,
		finisher:      finisher,
		publisher:     publisher,
		settleTimeout: settleTimeout,
		logger:        logger.With("module", "confirmation"),
	}
}

// Confirm checks a payment reference against a hold. Expired, pending and
// cancelled outcomes are results, not errors; errors are reserved for bad
// input, unknown bookings and ledger failures.
func (s *ConfirmationService) Confirm(ctx context.Context, bookingID, txHash string) (*ConfirmResult, error) {
	bookingID = strings.TrimSpace(bookingID)
	txHash = strings.TrimSpace(txHash)
	if bookingID == "" {
		return nil, domain.MissingField("bookingId")
	}
	if txHash == "" {
		return nil, domain.MissingField("txHash")
	}
	if !domain.IsTxHash(txHash) {
		return nil, domain.InvalidField("txHash", "must be 64 hex characters")
	}

	hold, err := s.resolver.ExpireIfDue(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if hold.Status.IsTerminal() {
		return resultFor(hold, ""), nil
	}

	evidence := domain.Evidence{TxHash: txHash}
	tx, err := s.ledger.Transaction(ctx, txHash)
	switch {
	case errors.Is(err, domain.ErrTxNotFound):
	case err != nil:
		return nil, asLedgerError("confirm payment", err)
	default:
		evidence.Found = true
		evidence.Tx = tx
	}

	final, resolution, err := s.resolver.Resolve(ctx, bookingID, evidence)
	if errors.Is(err, domain.ErrHoldNotHeld) {
		return resultFor(final, ""), nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("confirmation processed", "booking_id", bookingID, "tx_hash", txHash, "resolution", resolution)
	if resolution == domain.ResolutionConfirmed {
		s.settle(final)
	}
	return resultFor(final, resolution), nil
}

// Wait blocks until every dispatched escrow finish has returned.
func (s *ConfirmationService) Wait() {
	s.wg.Wait()
}

// settle finishes the escrow behind a confirmed hold outside the request.
// Each hold is settled at most once.
func (s *ConfirmationService) settle(hold *domain.Hold) {
	if hold.Escrow == nil || s.finisher == nil {
		return
	}
	if _, loaded := s.settled.LoadOrStore(hold.ID, struct{}{}); loaded {
		return
	}

	pointer := *hold.Escrow
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.settleTimeout)
		defer cancel()

		res, err := s.finisher.FinishEscrow(ctx, EscrowPointerInput{
			Owner:         pointer.Owner,
			OfferSequence: strconv.FormatUint(uint64(pointer.OfferSequence), 10),
		})
		if err != nil {
			s.logger.Error("escrow finish after confirmation failed", "booking_id", hold.ID, "escrow", pointer.String(), "error", err)
			return
		}

		s.logger.Info("escrow finished after confirmation", "booking_id", hold.ID, "escrow", pointer.String(), "hash", res.Result.Hash)
		if s.publisher == nil {
			return
		}
		event := domain.HoldEvent{
			Type:       domain.EventEscrowFinish,
			HoldID:     hold.ID,
			EventID:    hold.EventID,
			Status:     hold.Status,
			OccurredAt: time.Now().UTC(),
			Escrow:     &pointer,
			Detail:     res.Result.Hash,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish escrow event", "booking_id", hold.ID, "error", err)
		}
	}()
}

func resultFor(hold *domain.Hold, resolution domain.Resolution) *ConfirmResult {
	r := &ConfirmResult{Status: hold.Status, Resolution: resolution, Hold: hold}
	switch hold.Status {
	case domain.HoldConfirmed:
		r.Success = true
		r.Resolution = domain.ResolutionConfirmed
		r.Message = MessageConfirmed
	case domain.HoldExpired:
		r.Resolution = domain.ResolutionExpired
		r.Message = MessageExpired
	case domain.HoldCancelled:
		r.Message = MessageCancelled
	default:
		r.Resolution = domain.ResolutionPending
		r.Message = MessagePending
		r.Retryable = true
	}
	return r
}
