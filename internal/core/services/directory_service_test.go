package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/escrow_booking/internal/adapter/repository/memory"
	"github.com/srgjo27/escrow_booking/internal/core/domain"
	"github.com/srgjo27/escrow_booking/internal/core/ports/mocks"
	"github.com/srgjo27/escrow_booking/internal/core/services"
	"github.com/srgjo27/escrow_booking/internal/platform/seed"
)

// racingEntities runs onLoad once, right after the first entity load.
type racingEntities struct {
	*memory.EntityRepository
	once   sync.Once
	onLoad func()
}

func (r *racingEntities) GetByID(ctx context.Context, id string) (*domain.BookableEntity, error) {
	e, err := r.EntityRepository.GetByID(ctx, id)
	r.once.Do(r.onLoad)
	return e, err
}

func newDirectory(t *testing.T) (*services.DirectoryService, *memory.EntityRepository) {
	t.Helper()
	repo := memory.NewEntityRepository(seed.Default())
	return services.NewDirectoryService(repo, nil, nil), repo
}

func TestListEntities(t *testing.T) {
	dir, _ := newDirectory(t)

	summaries, err := dir.ListEntities(context.Background())

	require.NoError(t, err)
	require.Len(t, summaries, 4)
	assert.Equal(t, domain.EntitySummary{ID: "hosp_1", Name: "St. Marys", Category: "Hospital"}, summaries[0])
}

func TestGetEntity_NotFound(t *testing.T) {
	dir, _ := newDirectory(t)

	_, err := dir.GetEntity(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAvailability_IgnoresCaseAndWhitespace(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()

	a, err := dir.Availability(ctx, "St. Marys")
	require.NoError(t, err)
	b, err := dir.Availability(ctx, "  st. MARYS ")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 6, a.AvailableSeats)
	assert.Equal(t, 10, a.TotalCapacity)
	assert.Equal(t, 50.0, a.DepositRequired)
	assert.Equal(t, "hosp_1", a.Entity.ID)
	assert.Empty(t, a.Note)
}

func TestAvailability_FullEntity(t *testing.T) {
	dir, _ := newDirectory(t)

	_, err := dir.Availability(context.Background(), "London Central")

	assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable)
}

func TestAvailability_UnknownNameFallsBack(t *testing.T) {
	dir, repo := newDirectory(t)
	ctx := context.Background()

	a, err := dir.Availability(ctx, "Jazz Night")
	require.NoError(t, err)
	b, err := dir.Availability(ctx, "  jazz   NIGHT ")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 100, a.AvailableSeats)
	assert.Equal(t, 100, a.TotalCapacity)
	assert.Equal(t, 20.0, a.DepositRequired)
	assert.Equal(t, services.FallbackPayoutAddress, a.PayoutAddress)
	assert.Equal(t, services.FallbackNote, a.Note)
	assert.Equal(t, "Jazz Night", a.Entity.Name)
	assert.Equal(t, "Event", a.Entity.Category)
	assert.Regexp(t, `^evt_[0-9a-f]{8}$`, a.Entity.ID)

	_, err = repo.GetByID(ctx, a.Entity.ID)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound, "fallback entities are not persisted")
}

func TestHoldSeat(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()

	t.Run("reserves one seat", func(t *testing.T) {
		res, err := dir.HoldSeat(ctx, "rest_1")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.RemainingSeats)
	})

	t.Run("fails closed when full", func(t *testing.T) {
		_, err := dir.HoldSeat(ctx, "hosp_2")
		assert.ErrorIs(t, err, domain.ErrNoSeatsLeft)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := dir.HoldSeat(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	})
}

func TestHoldSeat_NeverExceedsCapacity(t *testing.T) {
	repo := memory.NewEntityRepository([]domain.BookableEntity{
		{ID: "table_1", Name: "Window", Capacity: 5, PayoutAddress: "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"},
	})
	dir := services.NewDirectoryService(repo, nil, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := dir.HoldSeat(context.Background(), "table_1"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	entity, err := repo.GetByID(context.Background(), "table_1")
	require.NoError(t, err)
	assert.Equal(t, 5, success)
	assert.Equal(t, 5, entity.CurrentBookings)
}

func TestReleaseSeat_FloorsAtZero(t *testing.T) {
	repo := memory.NewEntityRepository([]domain.BookableEntity{{ID: "a", Name: "A", Capacity: 2}})
	dir := services.NewDirectoryService(repo, nil, nil)

	remaining, err := dir.ReleaseSeat(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestAvailabilityByID_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss loads and stores", func(t *testing.T) {
		cache := mocks.NewAvailabilityCache(t)
		dir := services.NewDirectoryService(memory.NewEntityRepository(seed.Default()), cache, nil)

		cache.On("Get", mock.Anything, "rest_2").Return(nil, false, nil).Once()
		cache.On("Set", mock.Anything, "rest_2", mock.MatchedBy(func(a domain.Availability) bool {
			return a.AvailableSeats == 10 && a.Entity.ID == "rest_2"
		})).Return(nil).Once()

		a, err := dir.AvailabilityByID(ctx, "rest_2")

		require.NoError(t, err)
		assert.Equal(t, 10, a.AvailableSeats)
	})

	t.Run("hit skips the repository", func(t *testing.T) {
		cache := mocks.NewAvailabilityCache(t)
		dir := services.NewDirectoryService(memory.NewEntityRepository(nil), cache, nil)

		cached := &domain.Availability{AvailableSeats: 3, TotalCapacity: 4}
		cache.On("Get", mock.Anything, "rest_9").Return(cached, true, nil).Once()

		a, err := dir.AvailabilityByID(ctx, "rest_9")

		require.NoError(t, err)
		assert.Equal(t, cached, a)
	})

	t.Run("seat mutation invalidates", func(t *testing.T) {
		cache := mocks.NewAvailabilityCache(t)
		dir := services.NewDirectoryService(memory.NewEntityRepository(seed.Default()), cache, nil)

		cache.On("Invalidate", mock.Anything, "rest_2").Return(nil).Twice()

		_, err := dir.HoldSeat(ctx, "rest_2")
		require.NoError(t, err)
		_, err = dir.ReleaseSeat(ctx, "rest_2")
		require.NoError(t, err)
	})

	t.Run("hold during load is not cached stale", func(t *testing.T) {
		cache := mocks.NewAvailabilityCache(t)
		repo := &racingEntities{EntityRepository: memory.NewEntityRepository(seed.Default())}
		dir := services.NewDirectoryService(repo, cache, nil)
		repo.onLoad = func() {
			_, err := dir.HoldSeat(ctx, "rest_2")
			require.NoError(t, err)
		}

		cache.On("Get", mock.Anything, "rest_2").Return(nil, false, nil).Twice()
		cache.On("Invalidate", mock.Anything, "rest_2").Return(nil).Once()
		cache.On("Set", mock.Anything, "rest_2", mock.MatchedBy(func(a domain.Availability) bool {
			return a.AvailableSeats == 9
		})).Return(nil).Once()

		stale, err := dir.AvailabilityByID(ctx, "rest_2")
		require.NoError(t, err)
		assert.Equal(t, 10, stale.AvailableSeats)

		fresh, err := dir.AvailabilityByID(ctx, "rest_2")
		require.NoError(t, err)
		assert.Equal(t, 9, fresh.AvailableSeats)
	})

	t.Run("unknown id", func(t *testing.T) {
		cache := mocks.NewAvailabilityCache(t)
		dir := services.NewDirectoryService(memory.NewEntityRepository(nil), cache, nil)

		cache.On("Get", mock.Anything, "ghost").Return(nil, false, nil).Once()

		_, err := dir.AvailabilityByID(ctx, "ghost")

		assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	})
}
