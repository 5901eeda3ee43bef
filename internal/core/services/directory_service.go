package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports"
)

const (
	FallbackCapacity      = 100
	FallbackDeposit       = 20.0
	FallbackPayoutAddress = "r9cZA1mLK5R5Am25ArfXFmqgNwjZgnfk59"
	FallbackNote          = "Created Generic Event entry as requested name was not found."
)

var fallbackNamespace = uuid.MustParse("6f1c2d0e-8a4b-4f7e-9c35-0b9e4d2a7c11")

type HoldSeatResult struct {
	Success        bool
	RemainingSeats int
}

type DirectoryService struct {
	entities ports.EntityRepository
	cache    ports.AvailabilityCache
	logger   *slog.Logger

	// mu orders cache writes against invalidations. versions counts
	// invalidations per entity.
	mu       sync.Mutex
	versions map[string]uint64
}

func NewDirectoryService(entities ports.EntityRepository, cache ports.AvailabilityCache, logger *slog.Logger) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{
		entities: entities,
		cache:    cache,
		logger:   logger.With("module", "directory"),
		versions: make(map[string]uint64),
	}
}

func (s *DirectoryService) ListEntities(ctx context.Context) ([]domain.EntitySummary, error) {
	entities, err := s.entities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}

	out := make([]domain.EntitySummary, 0, len(entities))
	for _, e := range entities {
		out = append(out, domain.EntitySummary{ID: e.ID, Name: e.Name, Category: e.Category})
	}
	return out, nil
}

func (s *DirectoryService) GetEntity(ctx context.Context, id string) (*domain.BookableEntity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.MissingField("id")
	}
	return s.entities.GetByID(ctx, id)
}

// Availability looks an entity up by name. Unknown names get a generic,
// unpersisted fallback entity instead of an error.
func (s *DirectoryService) Availability(ctx context.Context, name string) (*domain.Availability, error) {
	entity, err := s.entities.FindByName(ctx, domain.NormalizeName(name))
	switch {
	case errors.Is(err, domain.ErrEntityNotFound):
		fallback := fallbackEntity(name)
		return &domain.Availability{
			AvailableSeats:  fallback.RemainingSeats(),
			TotalCapacity:   fallback.Capacity,
			DepositRequired: fallback.DepositRequired,
			PayoutAddress:   fallback.PayoutAddress,
			Entity:          fallback,
			Note:            FallbackNote,
		}, nil
	case err != nil:
		return nil, fmt.Errorf("find entity by name: %w", err)
	}

	return availabilityOf(entity)
}

// AvailabilityByID serves from the cache when one is configured.
func (s *DirectoryService) AvailabilityByID(ctx context.Context, id string) (*domain.Availability, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("availability cache read failed", "entity_id", id, "error", err)
		} else if ok {
			if cached.AvailableSeats <= 0 {
				return nil, domain.ErrNoSeatsAvailable
			}
			return cached, nil
		}
	}

	version := s.version(id)
	entity, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	availability := domain.Availability{
		AvailableSeats:  entity.RemainingSeats(),
		TotalCapacity:   entity.Capacity,
		DepositRequired: entity.DepositRequired,
		PayoutAddress:   entity.PayoutAddress,
		Entity:          *entity,
	}
	s.store(ctx, id, version, availability)

	if availability.AvailableSeats <= 0 {
		return nil, domain.ErrNoSeatsAvailable
	}
	return &availability, nil
}

func (s *DirectoryService) HoldSeat(ctx context.Context, id string) (HoldSeatResult, error) {
	if strings.TrimSpace(id) == "" {
		return HoldSeatResult{}, domain.MissingField("id")
	}

	remaining, err := s.entities.IncrementBookings(ctx, id)
	if err != nil {
		return HoldSeatResult{}, err
	}
	s.invalidate(ctx, id)

	s.logger.Info("seat held", "entity_id", id, "remaining", remaining)
	return HoldSeatResult{Success: true, RemainingSeats: remaining}, nil
}

func (s *DirectoryService) ReleaseSeat(ctx context.Context, id string) (int, error) {
	remaining, err := s.entities.DecrementBookings(ctx, id)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, id)

	s.logger.Info("seat released", "entity_id", id, "remaining", remaining)
	return remaining, nil
}

func (s *DirectoryService) version(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[id]
}

// store writes availability read at version. The write is dropped when the
// entity was invalidated since.
func (s *DirectoryService) store(ctx context.Context, id string, version uint64, availability domain.Availability) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.versions[id] != version {
		s.logger.Debug("availability changed while loading, not caching", "entity_id", id)
		return
	}
	if err := s.cache.Set(ctx, id, availability); err != nil {
		s.logger.Warn("availability cache write failed", "entity_id", id, "error", err)
	}
}

func (s *DirectoryService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions[id]++
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("availability cache invalidate failed", "entity_id", id, "error", err)
	}
}

func availabilityOf(entity *domain.BookableEntity) (*domain.Availability, error) {
	if !entity.HasSeats() {
		return nil, domain.ErrNoSeatsAvailable
	}
	return &domain.Availability{
		AvailableSeats:  entity.RemainingSeats(),
		TotalCapacity:   entity.Capacity,
		DepositRequired: entity.DepositRequired,
		PayoutAddress:   entity.PayoutAddress,
		Entity:          *entity,
	}, nil
}

// fallbackEntity derives every field from the normalized name, so names that
// differ only in case or spacing produce the same entity.
func fallbackEntity(name string) domain.BookableEntity {
	normalized := strings.Join(strings.Fields(domain.NormalizeName(name)), " ")
	display := cases.Title(language.Und).String(normalized)
	if display == "" {
		display = "Generic Event"
	}

	id := uuid.NewSHA1(fallbackNamespace, []byte(normalized)).String()
	return domain.BookableEntity{
		ID:              "evt_" + strings.ReplaceAll(id, "-", "")[:8],
		Category:        "Event",
		Name:            display,
		SubCategory:     "Generic Event",
		Capacity:        FallbackCapacity,
		CurrentBookings: 0,
		DepositRequired: FallbackDeposit,
		PayoutAddress:   FallbackPayoutAddress,
	}
}
