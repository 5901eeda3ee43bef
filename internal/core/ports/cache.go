package ports

import (
	"context"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

type AvailabilityCache interface {
	Get(ctx context.Context, entityID string) (*domain.Availability, bool, error)
	Set(ctx context.Context, entityID string, availability domain.Availability) error
	Invalidate(ctx context.Context, entityID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.HoldEvent) error
}
