package memory

import (
	"context"
	"sync"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

// EntityRepository is a guarded in-memory table of bookable entities.
// Every seat mutation happens under the write lock.
type EntityRepository struct {
	mu       sync.RWMutex
	order    []string
	entities map[string]*domain.BookableEntity
}

func NewEntityRepository(seed []domain.BookableEntity) *EntityRepository {
	r := &EntityRepository{entities: make(map[string]*domain.BookableEntity, len(seed))}
	for _, e := range seed {
		if _, exists := r.entities[e.ID]; !exists {
			r.order = append(r.order, e.ID)
		}
		r.entities[e.ID] = &e
	}
	return r
}

func (r *EntityRepository) List(ctx context.Context) ([]domain.BookableEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.BookableEntity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.entities[id])
	}
	return out, nil
}

func (r *EntityRepository) GetByID(ctx context.Context, id string) (*domain.BookableEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entities[id]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *EntityRepository) FindByName(ctx context.Context, name string) (*domain.BookableEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if e := r.entities[id]; e.MatchesName(name) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrEntityNotFound
}

func (r *EntityRepository) IncrementBookings(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[id]
	if !ok {
		return 0, domain.ErrEntityNotFound
	}
	if !e.HasSeats() {
		return 0, domain.ErrNoSeatsLeft
	}
	e.CurrentBookings++
	return e.RemainingSeats(), nil
}

func (r *EntityRepository) DecrementBookings(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[id]
	if !ok {
		return 0, domain.ErrEntityNotFound
	}
	if e.CurrentBookings > 0 {
		e.CurrentBookings--
	}
	return e.RemainingSeats(), nil
}
