package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/escrow_booking/internal/adapter/cache"
	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

func sampleAvailability() domain.Availability {
	return domain.Availability{
		AvailableSeats:  10,
		TotalCapacity:   15,
		DepositRequired: 15,
		PayoutAddress:   "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn",
		Entity:          domain.BookableEntity{ID: "rest_2", Name: "Pasta Palace", Capacity: 15, CurrentBookings: 5},
	}
}

func TestAvailabilityCache_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		db, mockRedis := redismock.NewClientMock()
		c := cache.NewAvailabilityCache(db, time.Minute)

		payload, err := json.Marshal(sampleAvailability())
		require.NoError(t, err)
		mockRedis.ExpectGet("availability:rest_2").SetVal(string(payload))

		got, ok, err := c.Get(ctx, "rest_2")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sampleAvailability(), *got)
		assert.NoError(t, mockRedis.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		db, mockRedis := redismock.NewClientMock()
		c := cache.NewAvailabilityCache(db, time.Minute)

		mockRedis.ExpectGet("availability:rest_2").RedisNil()

		got, ok, err := c.Get(ctx, "rest_2")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.NoError(t, mockRedis.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		db, mockRedis := redismock.NewClientMock()
		c := cache.NewAvailabilityCache(db, time.Minute)

		mockRedis.ExpectGet("availability:rest_2").SetErr(errors.New("connection reset"))

		_, _, err := c.Get(ctx, "rest_2")

		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestAvailabilityCache_Set(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewAvailabilityCache(db, 45*time.Second)

	payload, err := json.Marshal(sampleAvailability())
	require.NoError(t, err)
	mockRedis.ExpectSet("availability:rest_2", string(payload), 45*time.Second).SetVal("OK")

	require.NoError(t, c.Set(context.Background(), "rest_2", sampleAvailability()))
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestAvailabilityCache_Invalidate(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewAvailabilityCache(db, 0)

	mockRedis.ExpectDel("availability:rest_2").SetVal(1)

	require.NoError(t, c.Invalidate(context.Background(), "rest_2"))
	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
