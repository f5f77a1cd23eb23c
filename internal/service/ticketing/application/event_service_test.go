package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/service/ticketing/domain"
)

func eventInput() CreateEventInput {
	return CreateEventInput{
		Name:           "Jazz Night",
		Type:           "concert",
		AvailableSeats: 100,
		MaxPurchase:    4,
		StartDate:      testNow.Add(48 * time.Hour),
		EndDate:        testNow.Add(52 * time.Hour),
		Regulations:    []string{"no smoking"},
	}
}

func TestEventService_Create(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	event, err := h.events.Create(ctx, manager, eventInput())
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, manager.UserID, event.ManagerID)
	assert.Equal(t, testNow, event.CreatedAt)

	_, err = h.events.Create(ctx, attendee, eventInput())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	bad := eventInput()
	bad.EndDate = bad.StartDate.Add(-time.Hour)
	_, err = h.events.Create(ctx, manager, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := h.events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"no smoking"}, got.Regulations)

	_, err = h.events.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventService_Update(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	event, err := h.events.Create(ctx, manager, eventInput())
	require.NoError(t, err)
	h.seedTier(t, event.ID, 10, 60)

	fewer := 50
	_, err = h.events.Update(ctx, manager, event.ID, domain.EventPatch{AvailableSeats: &fewer})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 100, h.store.EventRows[event.ID].AvailableSeats)

	enough := 60
	name := "Late Jazz Night"
	updated, err := h.events.Update(ctx, manager, event.ID, domain.EventPatch{AvailableSeats: &enough, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.AvailableSeats)
	assert.Equal(t, name, updated.Name)

	_, err = h.events.Update(ctx, manager, "missing", domain.EventPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades to tiers and coupons", func(t *testing.T) {
		h := newHarness()
		event, err := h.events.Create(ctx, manager, eventInput())
		require.NoError(t, err)
		tier := h.seedTier(t, event.ID, 10, 10)
		h.seedCoupon(t, event.ID, tier.ID, "X", domain.CouponFixed, 1, 1)

		require.NoError(t, h.events.Delete(ctx, admin, event.ID))
		assert.Empty(t, h.store.EventRows)
		assert.Empty(t, h.store.TierRows)
		assert.Empty(t, h.store.CouponRows)
	})

	t.Run("blocked when tickets exist", func(t *testing.T) {
		h := newHarness()
		event, err := h.events.Create(ctx, manager, eventInput())
		require.NoError(t, err)
		tier := h.seedTier(t, event.ID, 10, 10)
		_, err = h.issuance.Purchase(ctx, attendee, PurchaseInput{EventID: event.ID, TierID: tier.ID, TicketCount: 1})
		require.NoError(t, err)

		err = h.events.Delete(ctx, manager, event.ID)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Len(t, h.store.EventRows, 1)
	})
}

func TestEventService_Availability(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	event, err := h.events.Create(ctx, manager, eventInput())
	require.NoError(t, err)
	tier := h.seedTier(t, event.ID, 10, 30)
	h.seedTier(t, event.ID, 20, 20)
	_, err = h.issuance.Purchase(ctx, attendee, PurchaseInput{EventID: event.ID, TierID: tier.ID, TicketCount: 3})
	require.NoError(t, err)

	av, err := h.events.Availability(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, av.Capacity)
	assert.Equal(t, 50, av.Allocated)
	assert.Equal(t, 3, av.Issued)
	assert.Equal(t, 50, av.Unallocated)
	require.Len(t, av.Tiers, 2)

	var remaining int
	for _, ta := range av.Tiers {
		remaining += ta.Remaining
	}
	assert.Equal(t, 47, remaining)
}

func TestEventService_List(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	_, err := h.events.Create(ctx, manager, eventInput())
	require.NoError(t, err)
	other := eventInput()
	other.Type = "theatre"
	_, err = h.events.Create(ctx, manager, other)
	require.NoError(t, err)

	all, err := h.events.List(ctx, domain.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	theatre, err := h.events.List(ctx, domain.EventFilter{Type: "theatre"})
	require.NoError(t, err)
	assert.Len(t, theatre, 1)
}
