package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports"
	"github.com/srgjo27/escrow_booking/internal/platform/clock"
)

const (
	DefaultHoldDuration  = 10 * time.Minute
	DefaultSweepInterval = 1 * time.Minute
	sweepBatchSize       = 100
)

// SeatDirectory is the part of the directory the hold manager needs.
type SeatDirectory interface {
	GetEntity(ctx context.Context, id string) (*domain.BookableEntity, error)
	HoldSeat(ctx context.Context, id string) (HoldSeatResult, error)
	ReleaseSeat(ctx context.Context, id string) (int, error)
}

type HoldOption func(*HoldService)

func WithHoldDuration(d time.Duration) HoldOption {
	return func(s *HoldService) {
		if d > 0 {
			s.duration = d
		}
	}
}

func WithPublisher(p ports.EventPublisher) HoldOption {
	return func(s *HoldService) {
		s.publisher = p
	}
}

type HoldService struct {
	holds     ports.HoldRepository
	directory SeatDirectory
	clock     clock.Clock
	duration  time.Duration
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewHoldService(holds ports.HoldRepository, directory SeatDirectory, clk clock.Clock, logger *slog.Logger, opts ...HoldOption) *HoldService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &HoldService{
		holds:     holds,
		directory: directory,
		clock:     clk,
		duration:  DefaultHoldDuration,
		logger:    logger.With("module", "holds"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HoldService) Duration() time.Duration {
	return s.duration
}

// CreateHold reserves a seat and opens the hold window. Unknown resources
// still get a hold, flagged as unreserved.
func (s *HoldService) CreateHold(ctx context.Context, eventID string) (*domain.Hold, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, domain.MissingField("eventId")
	}

	reserved := true
	if _, err := s.directory.HoldSeat(ctx, eventID); err != nil {
		if !errors.Is(err, domain.ErrEntityNotFound) {
			return nil, err
		}
		reserved = false
		s.logger.Warn("hold created for unknown resource, no seat reserved", "event_id", eventID)
	}

	now := s.clock.Now()
	hold := &domain.Hold{
		ID:            uuid.NewString(),
		EventID:       eventID,
		Status:        domain.HoldHeld,
		HoldExpiresAt: now.Add(s.duration),
		CreatedAt:     now,
		SeatReserved:  reserved,
	}

	if err := s.holds.Create(ctx, hold); err != nil {
		if reserved {
			s.releaseSeat(ctx, hold)
		}
		return nil, fmt.Errorf("create hold: %w", err)
	}

	s.logger.Info("hold created", "hold_id", hold.ID, "event_id", eventID, "expires_at", hold.HoldExpiresAt)
	s.publish(ctx, domain.EventHoldCreated, hold, "")
	return hold, nil
}

func (s *HoldService) GetHold(ctx context.Context, id string) (*domain.Hold, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.MissingField("bookingId")
	}
	return s.holds.GetByID(ctx, id)
}

// ExpireIfDue moves a HELD hold past its deadline to EXPIRED. Holds that are
// not due are returned as they are.
func (s *HoldService) ExpireIfDue(ctx context.Context, id string) (*domain.Hold, error) {
	hold, err := s.GetHold(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.Status != domain.HoldHeld || !hold.IsExpiredAt(s.clock.Now()) {
		return hold, nil
	}

	final, _, err := s.transition(ctx, hold, domain.HoldExpired, "hold window elapsed")
	return final, err
}

// Resolve applies ledger evidence to a hold. Expiry is judged when the new
// status is committed and wins over any evidence.
func (s *HoldService) Resolve(ctx context.Context, id string, evidence domain.Evidence) (*domain.Hold, domain.Resolution, error) {
	hold, err := s.GetHold(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if hold.Status.IsTerminal() {
		return resolutionOf(hold)
	}

	payout := s.payoutAddress(ctx, hold.EventID)
	if hold.IsExpiredAt(s.clock.Now()) {
		final, _, err := s.transition(ctx, hold, domain.HoldExpired, "hold window elapsed")
		if err != nil {
			return nil, "", err
		}
		return resolutionOf(final)
	}

	var (
		target domain.HoldStatus
		detail string
	)
	switch evidence.Verdict(payout) {
	case domain.EvidencePending:
		return hold, domain.ResolutionPending, nil
	case domain.EvidenceFailed:
		target, detail = domain.HoldExpired, fmt.Sprintf("payment %s rejected (%s)", evidence.TxHash, evidence.Tx.ResultCode)
	default:
		target, detail = domain.HoldConfirmed, "payment "+evidence.TxHash
	}

	final, _, err := s.transition(ctx, hold, target, detail)
	if err != nil {
		return nil, "", err
	}
	return resolutionOf(final)
}

func (s *HoldService) Cancel(ctx context.Context, id string) (*domain.Hold, error) {
	hold, err := s.GetHold(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.Status.IsTerminal() {
		return hold, domain.ErrHoldNotHeld
	}

	final, won, err := s.transition(ctx, hold, domain.HoldCancelled, "cancelled by user")
	if err != nil {
		return nil, err
	}
	if !won {
		return final, domain.ErrHoldNotHeld
	}
	return final, nil
}

func (s *HoldService) AttachEscrow(ctx context.Context, id string, pointer domain.EscrowPointer) error {
	if err := s.holds.AttachEscrow(ctx, id, pointer); err != nil {
		return fmt.Errorf("attach escrow to hold %s: %w", id, err)
	}
	s.logger.Info("escrow attached", "hold_id", id, "escrow", pointer.String())
	return nil
}

// LookupBooking returns the hold and, when its resource is known, the payout
// address that deposits for it must go to.
func (s *HoldService) LookupBooking(ctx context.Context, id string) (*domain.Hold, string, error) {
	hold, err := s.GetHold(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return hold, s.payoutAddress(ctx, hold.EventID), nil
}

func (s *HoldService) HoldForEscrow(ctx context.Context, pointer domain.EscrowPointer) (*domain.Hold, error) {
	return s.holds.FindByEscrow(ctx, pointer)
}

// SweepExpired expires every overdue HELD hold and returns how many it moved.
func (s *HoldService) SweepExpired(ctx context.Context) (int, error) {
	expired := 0
	for {
		ids, err := s.holds.ListExpired(ctx, s.clock.Now(), sweepBatchSize)
		if err != nil {
			return expired, fmt.Errorf("list expired holds: %w", err)
		}

		moved := 0
		for _, id := range ids {
			hold, err := s.ExpireIfDue(ctx, id)
			if err != nil {
				s.logger.Error("failed to expire hold", "hold_id", id, "error", err)
				continue
			}
			if hold.Status == domain.HoldExpired {
				moved++
			}
		}
		expired += moved

		if len(ids) < sweepBatchSize || moved == 0 {
			return expired, nil
		}
	}
}

func (s *HoldService) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				s.logger.Error("expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("expired holds released", "count", n)
			}
		}
	}
}

// transition performs the HELD -> status swap. Only the winner of the swap
// releases the seat and publishes, so a seat is returned at most once.
func (s *HoldService) transition(ctx context.Context, hold *domain.Hold, status domain.HoldStatus, detail string) (*domain.Hold, bool, error) {
	final, won, err := s.holds.TransitionStatus(ctx, hold.ID, status, s.clock.Now())
	if err != nil {
		return nil, false, fmt.Errorf("transition hold %s to %s: %w", hold.ID, status, err)
	}
	if !won {
		if status == domain.HoldConfirmed && final.Status == domain.HoldHeld {
			return s.transition(ctx, final, domain.HoldExpired, "hold window elapsed")
		}
		s.logger.Info("hold already resolved", "hold_id", hold.ID, "status", final.Status, "wanted", status)
		return final, false, nil
	}

	if status != domain.HoldConfirmed && final.SeatReserved {
		s.releaseSeat(ctx, final)
	}

	s.logger.Info("hold resolved", "hold_id", final.ID, "status", final.Status, "detail", detail)
	s.publish(ctx, eventTypeFor(status), final, detail)
	return final, true, nil
}

func (s *HoldService) releaseSeat(ctx context.Context, hold *domain.Hold) {
	if _, err := s.directory.ReleaseSeat(ctx, hold.EventID); err != nil {
		s.logger.Error("failed to release seat", "hold_id", hold.ID, "event_id", hold.EventID, "error", err)
	}
}

func (s *HoldService) payoutAddress(ctx context.Context, eventID string) string {
	entity, err := s.directory.GetEntity(ctx, eventID)
	if err != nil {
		if !errors.Is(err, domain.ErrEntityNotFound) {
			s.logger.Warn("payout address lookup failed", "event_id", eventID, "error", err)
		}
		return ""
	}
	return entity.PayoutAddress
}

func (s *HoldService) publish(ctx context.Context, eventType string, hold *domain.Hold, detail string) {
	if s.publisher == nil {
		return
	}
	event := domain.HoldEvent{
		Type:       eventType,
		HoldID:     hold.ID,
		EventID:    hold.EventID,
		Status:     hold.Status,
		OccurredAt: s.clock.Now(),
		Escrow:     hold.Escrow,
		Detail:     detail,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish hold event", "hold_id", hold.ID, "type", eventType, "error", err)
	}
}

func resolutionOf(hold *domain.Hold) (*domain.Hold, domain.Resolution, error) {
	switch hold.Status {
	case domain.HoldConfirmed:
		return hold, domain.ResolutionConfirmed, nil
	case domain.HoldExpired:
		return hold, domain.ResolutionExpired, nil
	case domain.HoldHeld:
		return hold, domain.ResolutionPending, nil
	default:
		return hold, "", domain.ErrHoldNotHeld
	}
}

func eventTypeFor(status domain.HoldStatus) string {
	switch status {
	case domain.HoldConfirmed:
		return domain.EventHoldConfirmed
	case domain.HoldCancelled:
		return domain.EventHoldCancelled
	default:
		return domain.EventHoldExpired
	}
}
