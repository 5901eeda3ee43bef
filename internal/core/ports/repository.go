package ports

import (
	"context"
	"time"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

type EntityRepository interface {
	List(ctx context.Context) ([]domain.BookableEntity, error)
	GetByID(ctx context.Context, id string) (*domain.BookableEntity, error)
	FindByName(ctx context.Context, name string) (*domain.BookableEntity, error)
	// IncrementBookings reserves one seat in a single atomic step and
	// returns the seats left. It fails with domain.ErrNoSeatsLeft when full.
	IncrementBookings(ctx context.Context, id string) (int, error)
	DecrementBookings(ctx context.Context, id string) (int, error)
}

type HoldRepository interface {
	Create(ctx context.Context, hold *domain.Hold) error
	GetByID(ctx context.Context, id string) (*domain.Hold, error)
	// TransitionStatus moves a HELD hold to status. The returned bool is
	// false when another caller already moved it; the returned hold then
	// carries the winning status. A move to CONFIRMED at or after the hold
	// deadline is refused and the hold comes back still HELD.
	TransitionStatus(ctx context.Context, id string, status domain.HoldStatus, at time.Time) (*domain.Hold, bool, error)
	AttachEscrow(ctx context.Context, id string, pointer domain.EscrowPointer) error
	FindByEscrow(ctx context.Context, pointer domain.EscrowPointer) (*domain.Hold, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}
