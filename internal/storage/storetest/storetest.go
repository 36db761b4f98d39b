// Package storetest holds the behaviour every spot and ticket store must
// share. Backends run it from their own tests against a store seeded with
// two car spots (1, 2) and one bike spot (3).
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-system/internal/parking"
)

type Store interface {
	parking.SpotStore
	parking.TicketStore
	ListSpots(ctx context.Context) ([]parking.Spot, error)
	Reset(ctx context.Context) error
}

// Factory returns an empty store seeded with 2 car spots and 1 bike spot.
type Factory func(t *testing.T) Store

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("NextAvailable", func(t *testing.T) { testNextAvailable(t, newStore(t)) })
	t.Run("ConditionalOccupy", func(t *testing.T) { testConditionalOccupy(t, newStore(t)) })
	t.Run("TicketRoundTrip", func(t *testing.T) { testTicketRoundTrip(t, newStore(t)) })
	t.Run("MostRecentTicket", func(t *testing.T) { testMostRecentTicket(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func testNextAvailable(t *testing.T, store Store) {
	ctx := context.Background()

	id, err := store.NextAvailable(ctx, parking.Car)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = store.NextAvailable(ctx, parking.Bike)
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	require.NoError(t, store.UpdateSpot(ctx, parking.Spot{ID: 3, Category: parking.Bike}))
	id, err = store.NextAvailable(ctx, parking.Bike)
	require.NoError(t, err)
	assert.Equal(t, parking.NoSpotAvailable, id)
}

func testConditionalOccupy(t *testing.T, store Store) {
	ctx := context.Background()
	spot := parking.Spot{ID: 1, Category: parking.Car}

	require.NoError(t, store.UpdateSpot(ctx, spot))
	assert.ErrorIs(t, store.UpdateSpot(ctx, spot), parking.ErrSpotTaken)

	id, err := store.NextAvailable(ctx, parking.Car)
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	spot.Release()
	require.NoError(t, store.UpdateSpot(ctx, spot))
	require.NoError(t, store.UpdateSpot(ctx, spot))

	spots, err := store.ListSpots(ctx)
	require.NoError(t, err)
	require.Len(t, spots, 3)
	for _, s := range spots {
		assert.True(t, s.Available, "spot %d", s.ID)
	}
}

func testTicketRoundTrip(t *testing.T, store Store) {
	ctx := context.Background()
	spot := parking.Spot{ID: 2, Category: parking.Car}
	require.NoError(t, store.UpdateSpot(ctx, spot))

	_, err := store.TicketByVehicle(ctx, "ABCDEF")
	assert.ErrorIs(t, err, parking.ErrTicketNotFound)

	ticket := parking.NewTicket(spot, "ABCDEF", t0, parking.LoyaltyDiscountPercent)
	require.NoError(t, store.SaveTicket(ctx, ticket))
	assert.Positive(t, ticket.ID)

	got, err := store.TicketByVehicle(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	assert.Equal(t, 2, got.Spot.ID)
	assert.Equal(t, parking.Car, got.Spot.Category)
	assert.True(t, got.InTime.Equal(t0))
	assert.Nil(t, got.OutTime)
	assert.Equal(t, parking.LoyaltyDiscountPercent, got.DiscountPercent)

	out := t0.Add(time.Hour)
	got.OutTime = &out
	got.Price = decimal.RequireFromString("1.425")
	require.NoError(t, store.UpdateTicket(ctx, got))

	closed, err := store.TicketByVehicle(ctx, "ABCDEF")
	require.NoError(t, err)
	require.NotNil(t, closed.OutTime)
	assert.True(t, closed.OutTime.Equal(out))
	assert.True(t, closed.Price.Equal(decimal.RequireFromString("1.425")), "price %s", closed.Price)
	assert.Equal(t, parking.Departed, closed.State())
}

func testMostRecentTicket(t *testing.T, store Store) {
	ctx := context.Background()
	spot := parking.Spot{ID: 1, Category: parking.Car}

	older := parking.NewTicket(spot, "ABCDEF", t0, 0)
	newer := parking.NewTicket(spot, "ABCDEF", t0.Add(24*time.Hour), parking.LoyaltyDiscountPercent)
	other := parking.NewTicket(spot, "GHIJKL", t0.Add(48*time.Hour), 0)
	for _, ticket := range []*parking.Ticket{newer, older, other} {
		require.NoError(t, store.SaveTicket(ctx, ticket))
	}

	got, err := store.TicketByVehicle(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
}

func testReset(t *testing.T, store Store) {
	ctx := context.Background()
	spot := parking.Spot{ID: 1, Category: parking.Car}

	require.NoError(t, store.UpdateSpot(ctx, spot))
	require.NoError(t, store.SaveTicket(ctx, parking.NewTicket(spot, "ABCDEF", t0, 0)))
	require.NoError(t, store.Reset(ctx))

	id, err := store.NextAvailable(ctx, parking.Car)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = store.TicketByVehicle(ctx, "ABCDEF")
	assert.ErrorIs(t, err, parking.ErrTicketNotFound)
}
