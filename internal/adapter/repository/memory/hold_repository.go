package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

// HoldRepository keeps holds for the process lifetime.
type HoldRepository struct {
	mu    sync.Mutex
	holds map[string]*domain.Hold
}

func NewHoldRepository() *HoldRepository {
	return &HoldRepository{holds: make(map[string]*domain.Hold)}
}

func (r *HoldRepository) Create(ctx context.Context, hold *domain.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := copyHold(hold)
	r.holds[hold.ID] = cp
	return nil
}

func (r *HoldRepository) GetByID(ctx context.Context, id string) (*domain.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.holds[id]
	if !ok {
		return nil, domain.ErrHoldNotFound
	}
	return copyHold(h), nil
}

func (r *HoldRepository) TransitionStatus(ctx context.Context, id string, status domain.HoldStatus, at time.Time) (*domain.Hold, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.holds[id]
	if !ok {
		return nil, false, domain.ErrHoldNotFound
	}
	if h.Status != domain.HoldHeld {
		return copyHold(h), false, nil
	}
	if status == domain.HoldConfirmed && h.IsExpiredAt(at) {
		return copyHold(h), false, nil
	}

	h.Status = status
	resolvedAt := at
	h.ResolvedAt = &resolvedAt
	return copyHold(h), true, nil
}

func (r *HoldRepository) AttachEscrow(ctx context.Context, id string, pointer domain.EscrowPointer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.holds[id]
	if !ok {
		return domain.ErrHoldNotFound
	}
	p := pointer
	h.Escrow = &p
	return nil
}

func (r *HoldRepository) FindByEscrow(ctx context.Context, pointer domain.EscrowPointer) (*domain.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.holds {
		if h.Escrow != nil && *h.Escrow == pointer {
			return copyHold(h), nil
		}
	}
	return nil, domain.ErrHoldNotFound
}

func (r *HoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*domain.Hold
	for _, h := range r.holds {
		if h.Status == domain.HoldHeld && h.IsExpiredAt(now) {
			expired = append(expired, h)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].HoldExpiresAt.Before(expired[j].HoldExpiresAt)
	})

	ids := make([]string, 0, len(expired))
	for _, h := range expired {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func copyHold(h *domain.Hold) *domain.Hold {
	cp := *h
	if h.ResolvedAt != nil {
		t := *h.ResolvedAt
		cp.ResolvedAt = &t
	}
	if h.Escrow != nil {
		p := *h.Escrow
		cp.Escrow = &p
	}
	return &cp
}
